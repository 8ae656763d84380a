// Package config provides configuration loading for planner.
//
// Configuration is assembled from hardcoded defaults, an optional YAML file
// and environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Supported language-model providers.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Config holds the complete planner configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	LLM           LLMConfig           `koanf:"llm"`
	Observability ObservabilityConfig `koanf:"observability"`
	Events        EventsConfig        `koanf:"events"`
	Secrets       SecretsConfig       `koanf:"secrets"`
	Client        ClientConfig        `koanf:"client"`
	Store         StoreConfig         `koanf:"store"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string   `koanf:"http_host"`
	Port            int      `koanf:"http_port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
	CORSOrigins     []string `koanf:"cors_origins"`
	RateLimit       float64  `koanf:"rate_limit"` // requests per second per client, 0 disables
	BodyLimit       string   `koanf:"body_limit"`
}

// LLMConfig configures the upstream language-model API.
type LLMConfig struct {
	Provider    string   `koanf:"provider"`
	APIKey      Secret   `koanf:"api_key"`
	Model       string   `koanf:"model"`
	BaseURL     string   `koanf:"base_url"`
	MaxTokens   int      `koanf:"max_tokens"`
	Temperature float64  `koanf:"temperature"`
	Timeout     Duration `koanf:"timeout"`
	MaxAttempts int      `koanf:"max_attempts"`
	Backoff     Duration `koanf:"backoff"`
	RateLimit   float64  `koanf:"rate_limit"` // upstream calls per second
}

// ObservabilityConfig holds logging and OpenTelemetry settings.
type ObservabilityConfig struct {
	ServiceName     string `koanf:"service_name"`
	LogLevel        string `koanf:"log_level"`
	LogFormat       string `koanf:"log_format"`
	EnableTelemetry bool   `koanf:"enable_telemetry"`
	OTLPEndpoint    string `koanf:"otlp_endpoint"`
	OTLPProtocol    string `koanf:"otlp_protocol"`
	OTLPInsecure    bool   `koanf:"otlp_insecure"`
}

// EventsConfig configures plan event publishing. An empty NATSURL disables it.
type EventsConfig struct {
	NATSURL string `koanf:"nats_url"`
	Subject string `koanf:"subject"`
}

// SecretsConfig controls redaction of goals before they reach the model API.
type SecretsConfig struct {
	Enabled       bool   `koanf:"enabled"`
	AllowlistPath string `koanf:"allowlist_path"`
}

// ClientConfig configures planctl's connection to the proxy.
type ClientConfig struct {
	ServerURL string   `koanf:"server_url"`
	Timeout   Duration `koanf:"timeout"`
}

// StoreConfig configures the local plan database.
type StoreConfig struct {
	Path string `koanf:"path"`
}

// Default returns a configuration populated with defaults.
func Default() *Config {
	cfg := &Config{
		Secrets: SecretsConfig{Enabled: true},
	}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8787
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(10 * time.Second)
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{"*"}
	}
	if cfg.Server.BodyLimit == "" {
		cfg.Server.BodyLimit = "64K"
	}

	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = ProviderOpenAI
	}
	if cfg.LLM.Model == "" {
		switch cfg.LLM.Provider {
		case ProviderGemini:
			cfg.LLM.Model = "gemini-2.0-flash"
		default:
			cfg.LLM.Model = "gpt-4o-mini"
		}
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 1500
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = 0.7
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = Duration(60 * time.Second)
	}
	if cfg.LLM.MaxAttempts == 0 {
		cfg.LLM.MaxAttempts = 2
	}
	if cfg.LLM.Backoff == 0 {
		cfg.LLM.Backoff = Duration(time.Second)
	}
	if cfg.LLM.RateLimit == 0 {
		cfg.LLM.RateLimit = 5
	}

	if cfg.Observability.ServiceName == "" {
		cfg.Observability.ServiceName = "planner"
	}
	if cfg.Observability.LogLevel == "" {
		cfg.Observability.LogLevel = "info"
	}
	if cfg.Observability.LogFormat == "" {
		cfg.Observability.LogFormat = "json"
	}
	if cfg.Observability.OTLPEndpoint == "" {
		cfg.Observability.OTLPEndpoint = "localhost:4317"
	}
	if cfg.Observability.OTLPProtocol == "" {
		cfg.Observability.OTLPProtocol = "grpc"
	}

	if cfg.Events.Subject == "" {
		cfg.Events.Subject = "planner.plans.generated"
	}

	if cfg.Client.ServerURL == "" {
		cfg.Client.ServerURL = "http://localhost:8787"
	}
	if cfg.Client.Timeout == 0 {
		cfg.Client.Timeout = Duration(90 * time.Second)
	}

	if cfg.Store.Path == "" {
		cfg.Store.Path = "~/.config/planner/plans.db"
	}
}

// Validate validates the configuration.
//
// Returns an error if:
//   - Server port is not between 1 and 65535
//   - Shutdown timeout is not positive
//   - The LLM provider is unknown or its retry settings are out of range
//   - Any configured URL is not http(s) (nats for events)
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout.Duration() <= 0 {
		return errors.New("shutdown timeout must be positive")
	}
	if c.Server.RateLimit < 0 {
		return errors.New("server rate limit cannot be negative")
	}

	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderGemini:
	default:
		return fmt.Errorf("unsupported llm provider %q (must be %s or %s)", c.LLM.Provider, ProviderOpenAI, ProviderGemini)
	}
	if c.LLM.MaxAttempts < 1 {
		return fmt.Errorf("llm max attempts must be >= 1, got %d", c.LLM.MaxAttempts)
	}
	if c.LLM.MaxTokens < 1 {
		return fmt.Errorf("llm max tokens must be >= 1, got %d", c.LLM.MaxTokens)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm temperature must be between 0 and 2, got %v", c.LLM.Temperature)
	}
	if c.LLM.BaseURL != "" {
		if err := validateURL(c.LLM.BaseURL, "http", "https"); err != nil {
			return fmt.Errorf("invalid llm base url: %w", err)
		}
	}

	if c.Observability.EnableTelemetry && c.Observability.ServiceName == "" {
		return errors.New("service name required when telemetry is enabled")
	}

	if c.Events.NATSURL != "" {
		if err := validateURL(c.Events.NATSURL, "nats", "tls"); err != nil {
			return fmt.Errorf("invalid events nats url: %w", err)
		}
	}

	if err := validateURL(c.Client.ServerURL, "http", "https"); err != nil {
		return fmt.Errorf("invalid client server url: %w", err)
	}

	if strings.Contains(c.Store.Path, "..") {
		return fmt.Errorf("store path must not contain '..': %s", c.Store.Path)
	}

	return nil
}

func validateURL(raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	for _, s := range schemes {
		if u.Scheme == s {
			if u.Host == "" {
				return fmt.Errorf("missing host in %q", raw)
			}
			return nil
		}
	}
	return fmt.Errorf("scheme %q not allowed (want one of %v)", u.Scheme, schemes)
}
