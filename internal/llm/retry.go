package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/planner/internal/logging"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultMaxAttempts = 2
	defaultBackoff     = time.Second
)

// RetryingClient retries a Client with a fixed pause between attempts.
//
// Every attempt waits on Limiter first (when set). Context cancellation
// stops retrying immediately.
type RetryingClient struct {
	Client      Client
	MaxAttempts int
	Backoff     time.Duration
	Limiter     *rate.Limiter
	Logger      *logging.Logger
}

// Complete calls the wrapped client until it succeeds or attempts run out.
// The last error is returned when every attempt fails.
func (r *RetryingClient) Complete(ctx context.Context, req Request) (string, error) {
	attempts := r.MaxAttempts
	if attempts < 1 {
		attempts = defaultMaxAttempts
	}
	backoff := r.Backoff
	if backoff <= 0 {
		backoff = defaultBackoff
	}
	logger := r.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		if r.Limiter != nil {
			if err := r.Limiter.Wait(ctx); err != nil {
				return "", fmt.Errorf("rate limiter error: %w", err)
			}
		}

		out, err := r.Client.Complete(ctx, req)
		if err == nil {
			return out, nil
		}
		lastErr = err

		logger.Warn(ctx, "model call failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
			zap.Error(err),
		)

		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}

	return "", fmt.Errorf("max attempts exceeded: %w", lastErr)
}
