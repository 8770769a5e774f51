package provision

import (
	"context"
	"log/slog"

	"github.com/pressbox/pressbox/internal/shell/wp"
)

// rollbackGuard undoes a partially provisioned instance. It is armed the
// moment the instance directory exists and defused by Commit once the
// instance reaches ready. Rollback reconciles content ownership while the
// containers are still up, then tears down in reverse creation order:
// containers and network, then volumes, then the directory. Every step is
// best-effort; a failed teardown must not mask the original failure.
type rollbackGuard struct {
	name      string
	volumes   []string
	ws        interface{ RemoveInstanceDir(name string) error }
	stacks    Stacks
	logger    *slog.Logger
	committed bool
	fired     bool
}

func (p *Provisioner) newGuard(name string) *rollbackGuard {
	return &rollbackGuard{
		name:    name,
		volumes: stackVolumes(),
		ws:      p.ws,
		stacks:  p.stacks,
		logger:  p.logger,
	}
}

// Commit defuses the guard; rollback becomes a no-op.
func (g *rollbackGuard) Commit() {
	g.committed = true
}

// Rollback removes everything the workflow created so far. Fires at most
// once and never after Commit.
func (g *rollbackGuard) Rollback(ctx context.Context) {
	if g.committed || g.fired {
		return
	}
	g.fired = true

	g.logger.Warn("rolling back failed provisioning", "instance", g.name)

	// Content files belong to the container's www-data uid until chowned
	// back; must happen while the containers still exist.
	if err := g.stacks.ReconcileOwnership(ctx, g.name, wp.ContentMount); err != nil {
		g.logger.Warn("rollback: content ownership not reconciled", "instance", g.name, "error", err)
	}
	if err := g.stacks.RemoveStack(ctx, g.name, g.volumes); err != nil {
		g.logger.Warn("rollback: stack teardown incomplete", "instance", g.name, "error", err)
	}
	if err := g.ws.RemoveInstanceDir(g.name); err != nil {
		g.logger.Warn("rollback: directory removal failed", "instance", g.name, "error", err)
	}
}
