package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/pressbox/pressbox/internal/shell/docker"
	"github.com/pressbox/pressbox/internal/shell/provision"
	"github.com/pressbox/pressbox/internal/shell/readiness"
	"github.com/pressbox/pressbox/internal/shell/snapshot"
	"github.com/pressbox/pressbox/internal/shell/workspace"
	"github.com/pressbox/pressbox/internal/shell/wp"
)

// =============================================================================
// Exit Codes
// =============================================================================

const (
	ExitSuccess = 0
	ExitFailure = 1
)

// =============================================================================
// App
// =============================================================================

// App bundles the wired subsystems a command invocation works with.
type App struct {
	config      *Config
	ws          *workspace.Workspace
	docker      *docker.DockerClient
	orch        *docker.Orchestrator
	wp          *wp.Runner
	provisioner *provision.Provisioner
	snapshots   *snapshot.Manager
	logger      *slog.Logger
}

// NewApp wires the application from config.
func NewApp(cfg *Config, logger *slog.Logger) (*App, error) {
	ws := workspace.New(cfg.Workspace.Root, logger)
	if err := ws.EnsureLayout(); err != nil {
		return nil, &CommandError{
			Op:       "NewApp",
			Err:      err,
			ExitCode: ExitFailure,
		}
	}

	// Connect to Docker
	d, err := docker.NewDockerClient(cfg.Docker.Host)
	if err != nil {
		return nil, &CommandError{
			Op:       "NewApp",
			Err:      err,
			ExitCode: ExitFailure,
		}
	}

	// Verify Docker connection
	if err := d.Ping(); err != nil {
		d.Close()
		return nil, &CommandError{
			Op:       "NewApp",
			Err:      err,
			ExitCode: ExitFailure,
		}
	}

	orch := docker.NewOrchestrator(d, logger)
	runner := wp.NewRunner(orch, logger)
	gate := readiness.New(orch, runner, cfg.Readiness.Budgets(), logger)

	prov := provision.New(ws, orch, runner, gate, provision.Options{
		PortRange: cfg.Ports.Range(),
	}, logger)

	catalog, err := snapshot.NewCatalog(ws.CatalogPath())
	if err != nil {
		d.Close()
		return nil, &CommandError{
			Op:       "NewApp",
			Err:      err,
			ExitCode: ExitFailure,
		}
	}
	snaps := snapshot.NewManager(ws, runner, catalog, logger)

	return &App{
		config:      cfg,
		ws:          ws,
		docker:      d,
		orch:        orch,
		wp:          runner,
		provisioner: prov,
		snapshots:   snaps,
		logger:      logger,
	}, nil
}

// Close releases the Docker and catalog connections.
func (a *App) Close() {
	if err := a.snapshots.Close(); err != nil {
		a.logger.Warn("failed to close snapshot catalog", "error", err)
	}
	if err := a.docker.Close(); err != nil {
		a.logger.Warn("failed to close docker client", "error", err)
	}
}

// runWithApp loads config, wires the app, runs fn, and releases resources.
// Command RunE functions go through here so every command sees the same
// config handling and teardown.
func runWithApp(cmd *cobra.Command, fn func(ctx context.Context, app *App) error) error {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return &CommandError{
			Op:       "config",
			Err:      err,
			ExitCode: ExitFailure,
		}
	}
	logger := SetupLogger(cfg)

	app, err := NewApp(cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	return fn(cmd.Context(), app)
}

// =============================================================================
// Command Errors
// =============================================================================

// CommandError represents a fatal error during command execution.
type CommandError struct {
	Op       string
	Err      error
	ExitCode int
}

func (e *CommandError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *CommandError) Unwrap() error {
	return e.Err
}
