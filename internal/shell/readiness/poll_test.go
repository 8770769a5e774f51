package readiness

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pollTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fastConfig(name string) Config {
	return Config{
		Name:     name,
		Interval: time.Millisecond,
		Timeout:  50 * time.Millisecond,
		Logger:   pollTestLogger(),
	}
}

// =============================================================================
// Attempt Budget
// =============================================================================

func TestConfig_Attempts(t *testing.T) {
	tests := []struct {
		name     string
		interval time.Duration
		timeout  time.Duration
		want     int
	}{
		{"containers budget", 5 * time.Second, 120 * time.Second, 24},
		{"database budget", 5 * time.Second, 90 * time.Second, 18},
		{"installed budget", 10 * time.Second, 180 * time.Second, 18},
		{"non-divisible rounds up", 2 * time.Second, 7 * time.Second, 4},
		{"equal means one", 5 * time.Second, 5 * time.Second, 1},
		{"timeout below interval still probes once", 5 * time.Second, 1 * time.Second, 1},
		{"zero interval", 0, time.Second, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{Interval: tt.interval, Timeout: tt.timeout}
			assert.Equal(t, tt.want, cfg.Attempts())
		})
	}
}

// TestPoll_SpendsExactBudget pins the probe count: a budget of 24 intervals
// must produce exactly 24 probes before giving up, no more, regardless of
// scheduling jitter.
func TestPoll_SpendsExactBudget(t *testing.T) {
	cfg := Config{
		Name:     "never-ready",
		Interval: time.Millisecond,
		Timeout:  24 * time.Millisecond,
		Logger:   pollTestLogger(),
	}
	require.Equal(t, 24, cfg.Attempts())

	probes := 0
	err := Poll(context.Background(), cfg, func(ctx context.Context, attempt int) (bool, error) {
		probes++
		return false, nil
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimedOut)
	assert.Equal(t, 24, probes)
}

// =============================================================================
// Poll Behavior
// =============================================================================

func TestPoll_SucceedsImmediately(t *testing.T) {
	probes := 0
	err := Poll(context.Background(), fastConfig("instant"), func(ctx context.Context, attempt int) (bool, error) {
		probes++
		return true, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, probes)
}

func TestPoll_SucceedsAfterRetries(t *testing.T) {
	err := Poll(context.Background(), fastConfig("third-time"), func(ctx context.Context, attempt int) (bool, error) {
		return attempt >= 3, nil
	})
	require.NoError(t, err)
}

func TestPoll_AttemptsAreOneBased(t *testing.T) {
	var seen []int
	err := Poll(context.Background(), fastConfig("attempts"), func(ctx context.Context, attempt int) (bool, error) {
		seen = append(seen, attempt)
		return attempt == 2, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, seen)
}

func TestPoll_FatalErrorAborts(t *testing.T) {
	fatal := errors.New("container exited")
	probes := 0
	err := Poll(context.Background(), fastConfig("fatal"), func(ctx context.Context, attempt int) (bool, error) {
		probes++
		if attempt == 2 {
			return false, fatal
		}
		return false, nil
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, fatal)
	assert.NotErrorIs(t, err, ErrTimedOut)
	assert.Equal(t, 2, probes)
}

func TestPoll_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	cfg := Config{
		Name:     "canceled",
		Interval: 10 * time.Millisecond,
		Timeout:  time.Second,
		Logger:   pollTestLogger(),
	}

	err := Poll(ctx, cfg, func(ctx context.Context, attempt int) (bool, error) {
		cancel()
		return false, nil
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

// =============================================================================
// Config Validation
// =============================================================================

func TestPoll_InvalidConfig(t *testing.T) {
	noop := func(ctx context.Context, attempt int) (bool, error) { return true, nil }

	err := Poll(context.Background(), Config{Name: "", Interval: time.Second, Timeout: time.Second}, noop)
	require.Error(t, err)

	err = Poll(context.Background(), Config{Name: "x", Interval: 0, Timeout: time.Second}, noop)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIntervalNotPositive)

	err = Poll(context.Background(), Config{Name: "x", Interval: time.Second, Timeout: 0}, noop)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeoutNotPositive)
}
