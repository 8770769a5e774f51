package readiness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Sentinel errors returned by Poll for invalid configuration and timeout.
// Callers can match these with errors.Is through wrapped error chains.
var (
	// ErrIntervalNotPositive indicates a non-positive poll interval.
	ErrIntervalNotPositive = errors.New("interval must be positive")

	// ErrTimeoutNotPositive indicates a non-positive timeout.
	ErrTimeoutNotPositive = errors.New("timeout must be positive")

	// ErrTimedOut indicates the budget expired before the check succeeded.
	ErrTimedOut = errors.New("timed out waiting for condition")
)

// Check is a single probe of a condition. The attempt parameter is 1-based
// (the first call receives attempt=1). It returns true when the condition
// holds, false to continue polling. The error return is for fatal conditions
// that should abort polling immediately.
type Check func(ctx context.Context, attempt int) (done bool, err error)

// Config configures one polling loop.
type Config struct {
	Name     string        // For logging and error messages (e.g. "database-reachable")
	Interval time.Duration // Delay between consecutive probes
	Timeout  time.Duration // Overall budget
	Logger   *slog.Logger  // Optional logger (defaults to slog.Default())
}

// Attempts returns the probe budget: ceil(Timeout / Interval), at least 1.
// The first probe fires immediately, so a 120s budget at 5s intervals
// yields 24 probes.
func (c Config) Attempts() int {
	if c.Interval <= 0 || c.Timeout <= 0 {
		return 1
	}
	n := int((c.Timeout + c.Interval - 1) / c.Interval)
	if n < 1 {
		n = 1
	}
	return n
}

// Poll probes the check until it succeeds, fails fatally, the attempt budget
// is spent, or the context is canceled. The first probe runs immediately;
// the loop is attempt-bounded rather than wall-clock-bounded so a slow probe
// cannot sneak in extra attempts.
func Poll(ctx context.Context, cfg Config, check Check) error {
	if cfg.Name == "" {
		return errors.New("poll: name must not be empty")
	}
	if cfg.Interval <= 0 {
		return fmt.Errorf("poll %s: %w", cfg.Name, ErrIntervalNotPositive)
	}
	if cfg.Timeout <= 0 {
		return fmt.Errorf("poll %s: %w", cfg.Name, ErrTimeoutNotPositive)
	}

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	maxAttempts := cfg.Attempts()
	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for attempt := 1; ; attempt++ {
		done, err := check(ctx, attempt)
		if err != nil {
			// Fatal error - abort polling
			return fmt.Errorf("poll %s: %w", cfg.Name, err)
		}
		if done {
			log.Debug("poll succeeded", "name", cfg.Name, "attempt", attempt)
			return nil
		}
		if attempt >= maxAttempts {
			log.Debug("poll budget spent", "name", cfg.Name, "attempts", attempt)
			return fmt.Errorf("poll %s after %d attempts: %w", cfg.Name, attempt, ErrTimedOut)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("poll %s: %w", cfg.Name, ctx.Err())
		case <-ticker.C:
		}
	}
}
