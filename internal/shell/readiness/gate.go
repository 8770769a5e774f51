// Package readiness decides when a freshly started instance is actually
// usable. Docker reporting containers as running says nothing about MySQL
// accepting connections or WordPress being installed, so the gate walks a
// fixed sequence of stages, each with its own budget, and fails with a
// diagnostic dump naming the stage that broke.
package readiness

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pressbox/pressbox/internal/core/compose"
	"github.com/pressbox/pressbox/internal/core/health"
)

// =============================================================================
// Stages
// =============================================================================

// Stage identifies one step of the readiness sequence.
type Stage string

const (
	StageStarting   Stage = "starting"
	StageContainers Stage = "containers-healthy"
	StageDatabase   Stage = "database-reachable"
	StageInstalled  Stage = "app-installed"
	StageReady      Stage = "ready"
)

// StageError reports which stage failed, with a diagnostic dump captured at
// the moment of failure.
type StageError struct {
	Stage       Stage
	Diagnostics string
	Err         error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("readiness gate failed at stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// =============================================================================
// Budgets
// =============================================================================

// Budgets holds the per-stage time budgets and poll intervals.
type Budgets struct {
	Grace time.Duration // pause before the single starting check

	ContainersTimeout  time.Duration
	ContainersInterval time.Duration

	DatabaseTimeout  time.Duration
	DatabaseInterval time.Duration

	InstalledTimeout  time.Duration
	InstalledInterval time.Duration

	HTTPAttempts int
	HTTPInterval time.Duration
}

// DefaultBudgets returns the stock budgets. The database stage dominates
// cold starts: MySQL initializes its data directory on the first boot, which
// takes well over a minute on slow disks.
func DefaultBudgets() Budgets {
	return Budgets{
		Grace:              5 * time.Second,
		ContainersTimeout:  120 * time.Second,
		ContainersInterval: 5 * time.Second,
		DatabaseTimeout:    90 * time.Second,
		DatabaseInterval:   5 * time.Second,
		InstalledTimeout:   180 * time.Second,
		InstalledInterval:  10 * time.Second,
		HTTPAttempts:       10,
		HTTPInterval:       3 * time.Second,
	}
}

// =============================================================================
// Gate
// =============================================================================

// StackObserver provides the container facts and diagnostics the gate needs.
type StackObserver interface {
	StackStates(ctx context.Context, instanceName string) ([]health.ContainerState, error)
	StatusDump(ctx context.Context, instanceName string) string
	ServiceLogs(ctx context.Context, instanceName, service, tail string) (string, error)
}

// Prober runs the in-container application checks.
type Prober interface {
	DBCheck(ctx context.Context, instanceName string) error
	IsInstalled(ctx context.Context, instanceName string) (bool, error)
}

// Gate walks an instance through the readiness stages.
type Gate struct {
	obs     StackObserver
	prober  Prober
	budgets Budgets
	logger  *slog.Logger
}

// New creates a readiness gate.
func New(obs StackObserver, prober Prober, budgets Budgets, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		obs:     obs,
		prober:  prober,
		budgets: budgets,
		logger:  logger,
	}
}

// =============================================================================
// Stage Entry Points
// =============================================================================

// WaitContainers runs the starting and containers-healthy stages.
//
// Starting is a single check after a grace pause: every expected service
// must have a container and none may have already exited. A container that
// dies on boot fails here instead of burning the whole containers budget.
//
// Containers-healthy then polls until every expected service is running and
// its healthcheck, if any, reports healthy.
func (g *Gate) WaitContainers(ctx context.Context, instanceName string, expected []string) error {
	g.logger.Info("waiting for containers", "instance", instanceName, "stage", StageStarting, "grace", g.budgets.Grace)

	select {
	case <-ctx.Done():
		return &StageError{Stage: StageStarting, Err: ctx.Err()}
	case <-time.After(g.budgets.Grace):
	}

	observed, err := g.obs.StackStates(ctx, instanceName)
	if err != nil {
		return &StageError{Stage: StageStarting, Err: err}
	}
	if !health.AllPresent(expected, observed) {
		return g.stageFailure(ctx, instanceName, StageStarting,
			fmt.Errorf("not all services have containers"), expected)
	}
	if c, exited := health.AnyExited(observed); exited {
		return g.stageFailure(ctx, instanceName, StageStarting,
			fmt.Errorf("service %s exited during startup", c.Service), []string{c.Service})
	}

	g.logger.Info("waiting for containers", "instance", instanceName, "stage", StageContainers)
	err = Poll(ctx, g.pollConfig(StageContainers, g.budgets.ContainersInterval, g.budgets.ContainersTimeout),
		func(pollCtx context.Context, attempt int) (bool, error) {
			observed, err := g.obs.StackStates(pollCtx, instanceName)
			if err != nil {
				// Transient daemon hiccups are retried, not fatal
				g.logger.Debug("container state check failed", "attempt", attempt, "error", err)
				return false, nil
			}
			if c, exited := health.AnyExited(observed); exited {
				return false, fmt.Errorf("service %s exited", c.Service)
			}
			return health.AllHealthy(expected, observed), nil
		})
	if err != nil {
		return g.stageFailure(ctx, instanceName, StageContainers, err, expected)
	}
	return nil
}

// WaitDatabase runs the database-reachable stage: `wp db check` through the
// cli container until it succeeds. The probe uses the site's own
// credentials, so success means the application can actually connect.
func (g *Gate) WaitDatabase(ctx context.Context, instanceName string) error {
	g.logger.Info("waiting for database", "instance", instanceName, "stage", StageDatabase)

	var lastErr error
	err := Poll(ctx, g.pollConfig(StageDatabase, g.budgets.DatabaseInterval, g.budgets.DatabaseTimeout),
		func(pollCtx context.Context, attempt int) (bool, error) {
			if err := g.prober.DBCheck(pollCtx, instanceName); err != nil {
				lastErr = err
				g.logger.Debug("database not reachable yet", "attempt", attempt, "error", err)
				return false, nil
			}
			return true, nil
		})
	if err != nil {
		if lastErr != nil {
			err = fmt.Errorf("%w (last probe: %v)", err, lastErr)
		}
		return g.stageFailure(ctx, instanceName, StageDatabase, err, []string{compose.ServiceDB})
	}
	return nil
}

// WaitInstalled runs the app-installed stage: polls `wp core is-installed`
// until WordPress reports an installed site.
func (g *Gate) WaitInstalled(ctx context.Context, instanceName string) error {
	g.logger.Info("waiting for installation", "instance", instanceName, "stage", StageInstalled)

	err := Poll(ctx, g.pollConfig(StageInstalled, g.budgets.InstalledInterval, g.budgets.InstalledTimeout),
		func(pollCtx context.Context, attempt int) (bool, error) {
			installed, err := g.prober.IsInstalled(pollCtx, instanceName)
			if err != nil {
				g.logger.Debug("install check failed", "attempt", attempt, "error", err)
				return false, nil
			}
			return installed, nil
		})
	if err != nil {
		return g.stageFailure(ctx, instanceName, StageInstalled, err,
			[]string{compose.ServiceWordPress, compose.ServiceDB})
	}
	return nil
}

// Wait runs the full sequence against a started stack. siteURL feeds the
// final HTTP confidence check, which never fails the gate; an instance whose
// database and installer both answer is ready even if the first page load is
// still warming up.
func (g *Gate) Wait(ctx context.Context, instanceName string, expected []string, siteURL string) error {
	if err := g.WaitContainers(ctx, instanceName, expected); err != nil {
		return err
	}
	if err := g.WaitDatabase(ctx, instanceName); err != nil {
		return err
	}
	if err := g.WaitInstalled(ctx, instanceName); err != nil {
		return err
	}
	if siteURL != "" && !g.ConfirmHTTP(ctx, siteURL) {
		g.logger.Warn("site did not answer over http, continuing anyway", "instance", instanceName, "url", siteURL)
	}
	g.logger.Info("instance ready", "instance", instanceName, "stage", StageReady)
	return nil
}

// =============================================================================
// Helpers
// =============================================================================

func (g *Gate) pollConfig(stage Stage, interval, timeout time.Duration) Config {
	return Config{
		Name:     string(stage),
		Interval: interval,
		Timeout:  timeout,
		Logger:   g.logger,
	}
}

// stageFailure captures diagnostics and wraps the stage error. The dump
// holds the container status table plus the log tail of the services most
// likely to explain the failure.
func (g *Gate) stageFailure(ctx context.Context, instanceName string, stage Stage, err error, logServices []string) *StageError {
	var b strings.Builder
	b.WriteString(g.obs.StatusDump(ctx, instanceName))

	for _, svc := range logServices {
		logs, logErr := g.obs.ServiceLogs(ctx, instanceName, svc, "20")
		if logErr != nil {
			fmt.Fprintf(&b, "\n--- %s logs unavailable: %v\n", svc, logErr)
			continue
		}
		fmt.Fprintf(&b, "\n--- %s logs (last 20 lines) ---\n%s", svc, logs)
	}

	diagnostics := b.String()
	g.logger.Error("readiness stage failed",
		"instance", instanceName,
		"stage", stage,
		"error", err,
	)
	for _, line := range strings.Split(diagnostics, "\n") {
		if line != "" {
			g.logger.Error("diagnostics", "instance", instanceName, "line", line)
		}
	}

	return &StageError{Stage: stage, Diagnostics: diagnostics, Err: err}
}
