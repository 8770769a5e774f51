// Package provision implements the instance workflows: create, import,
// start, stop, remove. It stitches the pure core packages (ports, compose,
// instance, health) to the effectful shell (workspace, docker, wp,
// readiness) and owns the ordering and rollback rules.
package provision

import (
	"context"
	"log/slog"

	"github.com/pressbox/pressbox/internal/core/compose"
	"github.com/pressbox/pressbox/internal/core/health"
	"github.com/pressbox/pressbox/internal/core/instance"
	"github.com/pressbox/pressbox/internal/core/ports"
	"github.com/pressbox/pressbox/internal/shell/docker"
	"github.com/pressbox/pressbox/internal/shell/hostports"
	"github.com/pressbox/pressbox/internal/shell/workspace"
	"github.com/pressbox/pressbox/internal/shell/wp"
)

// =============================================================================
// Dependencies
// =============================================================================

// Stacks drives Docker resources for instance stacks.
type Stacks interface {
	StartStack(ctx context.Context, inst *instance.Instance, stack *compose.ParsedStack) ([]docker.ContainerInfo, error)
	StopStack(ctx context.Context, instanceName string) error
	RemoveStack(ctx context.Context, instanceName string, volumes []string) error
	ReconcileOwnership(ctx context.Context, instanceName, containerPath string) error
	StackStates(ctx context.Context, instanceName string) ([]health.ContainerState, error)
}

// SiteCLI runs the WP-CLI mutations the workflows need.
type SiteCLI interface {
	IsInstalled(ctx context.Context, instanceName string) (bool, error)
	CoreInstall(ctx context.Context, instanceName string, p wp.InstallParams) error
	DBImport(ctx context.Context, instanceName, containerPath string) error
	SearchReplace(ctx context.Context, instanceName, oldURL, newURL string) error
	OptionGet(ctx context.Context, instanceName, key string) (string, error)
	OptionUpdate(ctx context.Context, instanceName, key, value string) error
	RewriteFlush(ctx context.Context, instanceName string) error
}

// Gater walks a started stack through the readiness stages.
type Gater interface {
	WaitContainers(ctx context.Context, instanceName string, expected []string) error
	WaitDatabase(ctx context.Context, instanceName string) error
	WaitInstalled(ctx context.Context, instanceName string) error
	ConfirmHTTP(ctx context.Context, url string) bool
}

// =============================================================================
// Provisioner
// =============================================================================

// Options tunes provisioning behavior.
type Options struct {
	PortRange ports.Range     // zero value means ports.DefaultRange()
	Bound     ports.BoundFunc // nil means probing the host network stack
}

// Provisioner runs the instance workflows.
type Provisioner struct {
	ws     *workspace.Workspace
	stacks Stacks
	site   SiteCLI
	gate   Gater
	rng    ports.Range
	bound  ports.BoundFunc
	logger *slog.Logger
}

// New creates a provisioner.
func New(ws *workspace.Workspace, stacks Stacks, site SiteCLI, gate Gater, opts Options, logger *slog.Logger) *Provisioner {
	if logger == nil {
		logger = slog.Default()
	}
	rng := opts.PortRange
	if rng == (ports.Range{}) {
		rng = ports.DefaultRange()
	}
	bound := opts.Bound
	if bound == nil {
		bound = hostports.Bound
	}
	return &Provisioner{
		ws:     ws,
		stacks: stacks,
		site:   site,
		gate:   gate,
		rng:    rng,
		bound:  bound,
		logger: logger,
	}
}

// stackVolumes are the named volumes every instance stack carries; remove
// and rollback tear them down alongside the containers.
func stackVolumes() []string {
	return []string{compose.VolumeDBData, compose.VolumeCore}
}

// serviceNames returns the service set of a parsed stack, for the gate.
func serviceNames(stack *compose.ParsedStack) []string {
	names := make([]string, 0, len(stack.Services))
	for _, svc := range stack.Services {
		names = append(names, svc.Name)
	}
	return names
}
