package provision

import (
	"context"

	"github.com/pressbox/pressbox/internal/core/health"
	"github.com/pressbox/pressbox/internal/core/instance"
)

// InstanceStatus pairs persisted metadata with live container facts. The
// live status wins over whatever the metadata last recorded; containers
// killed behind our back show up as stopped, not ready.
type InstanceStatus struct {
	Instance *instance.Instance
	Live     instance.Status
	Services []health.ContainerState
}

// List returns every instance with its live status, ordered by name.
func (p *Provisioner) List(ctx context.Context) ([]InstanceStatus, error) {
	instances, err := p.ws.ListInstances()
	if err != nil {
		return nil, wrapWorkflow("list", "", err)
	}

	statuses := make([]InstanceStatus, 0, len(instances))
	for _, inst := range instances {
		statuses = append(statuses, p.observe(ctx, inst))
	}
	return statuses, nil
}

// Info returns one instance with its live status.
func (p *Provisioner) Info(ctx context.Context, name string) (*InstanceStatus, error) {
	inst, err := p.ws.LoadInstance(name)
	if err != nil {
		return nil, wrapWorkflow("info", name, err)
	}
	st := p.observe(ctx, inst)
	return &st, nil
}

func (p *Provisioner) observe(ctx context.Context, inst *instance.Instance) InstanceStatus {
	// A removed instance kept its files but has no stack to observe.
	if inst.Status == instance.StatusRemoved {
		return InstanceStatus{Instance: inst, Live: instance.StatusRemoved}
	}

	states, err := p.stacks.StackStates(ctx, inst.Name)
	if err != nil {
		// Docker unreachable: fall back to the recorded status
		p.logger.Warn("could not observe containers", "instance", inst.Name, "error", err)
		return InstanceStatus{Instance: inst, Live: inst.Status}
	}
	live := health.DeriveStatus(states)
	// A failed instance stays failed until something re-provisions it,
	// even when its leftover containers happen to still run.
	if inst.Status == instance.StatusFailed && live == instance.StatusReady {
		live = instance.StatusFailed
	}
	return InstanceStatus{Instance: inst, Live: live, Services: states}
}
