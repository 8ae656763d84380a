package secrets

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/fyrsmithlabs/planner/internal/config"
	gitleaksConfig "github.com/zricethezav/gitleaks/v8/config"
	"github.com/zricethezav/gitleaks/v8/detect"
	gitleaksRegexp "github.com/zricethezav/gitleaks/v8/regexp"
)

// Finding describes one detected secret. The secret itself is not kept.
type Finding struct {
	RuleID   string `json:"rule_id"`
	RuleDesc string `json:"rule_desc"`
	Length   int    `json:"length"`
}

// Result is the outcome of a redaction.
type Result struct {
	Content  string
	Findings []Finding
}

// Redacted reports whether anything was replaced.
func (r Result) Redacted() bool {
	return len(r.Findings) > 0
}

// RuleIDs returns the distinct rule IDs that matched, sorted.
func (r Result) RuleIDs() []string {
	seen := make(map[string]struct{}, len(r.Findings))
	ids := make([]string, 0, len(r.Findings))
	for _, f := range r.Findings {
		if _, ok := seen[f.RuleID]; ok {
			continue
		}
		seen[f.RuleID] = struct{}{}
		ids = append(ids, f.RuleID)
	}
	sort.Strings(ids)
	return ids
}

// Redactor removes secrets from text.
type Redactor interface {
	Redact(content string) Result
}

// New returns a Gitleaks-backed redactor, or a Nop redactor when cfg
// disables redaction.
func New(cfg config.SecretsConfig) (Redactor, error) {
	if !cfg.Enabled {
		return Nop{}, nil
	}

	allowlist, err := LoadAllowlist(cfg.AllowlistPath)
	if err != nil {
		return nil, fmt.Errorf("loading allowlist: %w", err)
	}
	return NewGitleaks(allowlist)
}

// GitleaksRedactor detects secrets with the default Gitleaks rule set.
type GitleaksRedactor struct {
	mu       sync.Mutex
	detector *detect.Detector
}

// NewGitleaks builds a redactor. allowlist may be nil.
func NewGitleaks(allowlist *Allowlist) (*GitleaksRedactor, error) {
	detector, err := detect.NewDetectorDefaultConfig()
	if err != nil {
		return nil, fmt.Errorf("creating detector: %w", err)
	}

	if allowlist != nil {
		if err := applyAllowlist(&detector.Config, allowlist); err != nil {
			return nil, err
		}
	}

	return &GitleaksRedactor{detector: detector}, nil
}

// Redact replaces every detected secret with a [REDACTED:<rule-id>] marker.
func (g *GitleaksRedactor) Redact(content string) Result {
	if content == "" {
		return Result{}
	}

	// The detector accumulates state between scans.
	g.mu.Lock()
	found := g.detector.DetectString(content)
	g.mu.Unlock()

	if len(found) == 0 {
		return Result{Content: content}
	}

	findings := make([]Finding, 0, len(found))
	for _, f := range found {
		if f.Secret == "" {
			continue
		}
		findings = append(findings, Finding{
			RuleID:   f.RuleID,
			RuleDesc: f.Description,
			Length:   len(f.Secret),
		})
	}

	// Longest first so a secret containing another is replaced whole.
	sorted := append(found[:0:0], found...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Secret) > len(sorted[j].Secret)
	})

	redacted := content
	for _, f := range sorted {
		if f.Secret == "" {
			continue
		}
		redacted = strings.ReplaceAll(redacted, f.Secret, fmt.Sprintf("[REDACTED:%s]", f.RuleID))
	}

	return Result{Content: redacted, Findings: findings}
}

func applyAllowlist(cfg *gitleaksConfig.Config, allowlist *Allowlist) error {
	global := &gitleaksConfig.Allowlist{
		Description: "planner allowlist",
	}

	for _, pattern := range allowlist.Regexes {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return fmt.Errorf("%w: '%s': %v", ErrInvalidRegex, pattern, err)
		}
		global.Regexes = append(global.Regexes, (*gitleaksRegexp.Regexp)(re))
	}
	global.StopWords = append(global.StopWords, allowlist.StopWords...)

	cfg.Allowlists = append(cfg.Allowlists, global)
	return nil
}

// Nop returns content unchanged.
type Nop struct{}

// Redact implements Redactor.
func (Nop) Redact(content string) Result {
	return Result{Content: content}
}

var (
	_ Redactor = (*GitleaksRedactor)(nil)
	_ Redactor = Nop{}
)
