package provision

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/pressbox/pressbox/internal/core/health"
	"github.com/pressbox/pressbox/internal/core/instance"
	"github.com/pressbox/pressbox/internal/shell/workspace"
	"github.com/pressbox/pressbox/internal/shell/wp"
)

// removeAllConcurrency bounds parallel teardowns in RemoveAll. Docker
// handles a few concurrent removals fine; dozens just thrash the daemon.
const removeAllConcurrency = 4

// =============================================================================
// Start
// =============================================================================

// Start brings a stopped instance's stack back up and walks the readiness
// gate again. Starting an instance that is already running is a no-op.
func (p *Provisioner) Start(ctx context.Context, name string) (*instance.Instance, error) {
	const op = "start"

	inst, err := p.ws.LoadInstance(name)
	if err != nil {
		return nil, wrapWorkflow(op, name, err)
	}

	states, err := p.stacks.StackStates(ctx, name)
	if err != nil {
		return nil, wrapWorkflow(op, name, err)
	}
	live := health.DeriveStatus(states)

	if inst.Status == instance.StatusReady {
		if live == instance.StatusReady {
			p.logger.Info("instance already running", "instance", name)
			return inst, nil
		}
		// Metadata says ready but the stack is down; reconcile before
		// re-provisioning.
		if err := inst.Transition(instance.StatusStopped); err != nil {
			return nil, wrapWorkflow(op, name, err)
		}
	}

	if err := inst.Transition(instance.StatusProvisioning); err != nil {
		return nil, wrapWorkflow(op, name, err)
	}
	if err := p.ws.SaveInstance(inst); err != nil {
		return nil, wrapWorkflow(op, name, err)
	}

	fail := func(err error) (*instance.Instance, error) {
		// A failed start keeps the instance around for debugging; only
		// create and import roll back.
		if terr := inst.TransitionToFailed(err.Error()); terr == nil {
			_ = p.ws.SaveInstance(inst)
		}
		return nil, wrapWorkflow(op, name, err)
	}

	stack, err := p.ws.ParseStack(name)
	if err != nil {
		return fail(err)
	}
	if _, err := p.stacks.StartStack(ctx, inst, stack); err != nil {
		return fail(err)
	}

	if err := p.gate.WaitContainers(ctx, name, serviceNames(stack)); err != nil {
		return fail(err)
	}
	if err := p.gate.WaitDatabase(ctx, name); err != nil {
		return fail(err)
	}
	if err := p.gate.WaitInstalled(ctx, name); err != nil {
		return fail(err)
	}
	if !p.gate.ConfirmHTTP(ctx, inst.SiteURL()) {
		p.logger.Warn("site ready but not answering over http yet", "instance", name, "url", inst.SiteURL())
	}

	if err := inst.Transition(instance.StatusReady); err != nil {
		return fail(err)
	}
	if err := p.ws.SaveInstance(inst); err != nil {
		return fail(err)
	}

	p.logger.Info("instance started", "instance", name, "url", inst.SiteURL())
	return inst, nil
}

// =============================================================================
// Stop
// =============================================================================

// Stop shuts down an instance's containers. Volumes and files stay; start
// brings the same site back.
func (p *Provisioner) Stop(ctx context.Context, name string) (*instance.Instance, error) {
	const op = "stop"

	inst, err := p.ws.LoadInstance(name)
	if err != nil {
		return nil, wrapWorkflow(op, name, err)
	}

	if err := p.stacks.StopStack(ctx, name); err != nil {
		return nil, wrapWorkflow(op, name, err)
	}

	// A failed instance stays failed; stopping it only downs containers.
	if err := inst.Transition(instance.StatusStopped); err == nil {
		if err := p.ws.SaveInstance(inst); err != nil {
			return nil, wrapWorkflow(op, name, err)
		}
	}

	p.logger.Info("instance stopped", "instance", name)
	return inst, nil
}

// =============================================================================
// Remove
// =============================================================================

// RemoveOptions tunes Remove.
type RemoveOptions struct {
	// KeepFiles leaves the instance directory (wp-content, compose file,
	// metadata) on disk. Containers, network, and volumes go regardless.
	KeepFiles bool
}

// Remove tears an instance down: containers, network, volumes, and the
// directory unless opts keep it. Works on broken instances whose metadata
// is unreadable, as long as the directory exists.
func (p *Provisioner) Remove(ctx context.Context, name string, opts RemoveOptions) error {
	const op = "remove"

	inst, err := p.ws.LoadInstance(name)
	if err != nil {
		if !errors.Is(err, workspace.ErrInstanceNotFound) {
			// Unreadable metadata: still removable while the directory exists
			p.logger.Warn("removing instance with unreadable metadata", "instance", name, "error", err)
		} else if !p.ws.Exists(name) {
			return wrapWorkflow(op, name, workspace.ErrInstanceNotFound)
		}
		inst = nil
	}

	if !opts.KeepFiles {
		// wp-content files belong to the container's www-data uid; chown
		// them back while the containers still exist or the directory
		// removal below can hit EPERM.
		if err := p.stacks.ReconcileOwnership(ctx, name, wp.ContentMount); err != nil {
			p.logger.Warn("content ownership not reconciled", "instance", name, "error", err)
		}
	}

	if err := p.stacks.RemoveStack(ctx, name, stackVolumes()); err != nil {
		return wrapWorkflow(op, name, err)
	}

	if opts.KeepFiles {
		// The directory stays; record that the stack behind it is gone.
		if inst != nil {
			if err := inst.Transition(instance.StatusRemoved); err == nil {
				if err := p.ws.SaveInstance(inst); err != nil {
					return wrapWorkflow(op, name, err)
				}
			}
		}
		p.logger.Info("instance removed, files kept", "instance", name, "dir", p.ws.InstanceDir(name))
		return nil
	}

	if err := p.ws.RemoveInstanceDir(name); err != nil {
		return wrapWorkflow(op, name, err)
	}

	if inst != nil {
		_ = inst.Transition(instance.StatusRemoved)
	}
	p.logger.Info("instance removed", "instance", name)
	return nil
}

// RemoveAll removes every instance in the workspace, a few at a time.
// All removals are attempted; the first error is reported.
func (p *Provisioner) RemoveAll(ctx context.Context) error {
	names, err := p.ws.ListNames()
	if err != nil {
		return wrapWorkflow("remove", "", err)
	}
	if len(names) == 0 {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(removeAllConcurrency)
	for _, name := range names {
		g.Go(func() error {
			return p.Remove(ctx, name, RemoveOptions{})
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("remove all: %w", err)
	}
	return nil
}
