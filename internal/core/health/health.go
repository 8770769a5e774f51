// Package health provides pure functions for deriving instance state from
// observed container facts. This package contains NO I/O; the shell layer
// feeds it inspection results.
package health

import "github.com/pressbox/pressbox/internal/core/instance"

// =============================================================================
// Observed Container Facts
// =============================================================================

// ContainerState is one observed container's runtime facts.
type ContainerState struct {
	Service string // compose service name
	Status  string // running, created, exited, paused, restarting
	Health  string // healthy, unhealthy, starting, "" when no healthcheck
}

// =============================================================================
// Gate Predicates (Pure Functions)
// =============================================================================

// AllRunning reports whether every expected service has a running container.
// Used by the first readiness stage: one check after the startup grace sleep.
func AllRunning(expected []string, observed []ContainerState) bool {
	byService := indexByService(observed)
	for _, svc := range expected {
		c, ok := byService[svc]
		if !ok || c.Status != "running" {
			return false
		}
	}
	return true
}

// ServiceRunning reports whether the named service is present and running.
func ServiceRunning(observed []ContainerState, service string) bool {
	c, ok := indexByService(observed)[service]
	return ok && c.Status == "running"
}

// ServiceHealthy reports whether the named service's healthcheck passes.
// A container without a healthcheck never reports healthy; callers pair this
// with ServiceRunning for such services.
func ServiceHealthy(observed []ContainerState, service string) bool {
	c, ok := indexByService(observed)[service]
	return ok && c.Status == "running" && c.Health == "healthy"
}

// AllPresent reports whether every expected service has a container at all,
// in any state. The starting stage uses this to catch services Docker never
// created.
func AllPresent(expected []string, observed []ContainerState) bool {
	byService := indexByService(observed)
	for _, svc := range expected {
		if _, ok := byService[svc]; !ok {
			return false
		}
	}
	return true
}

// AnyExited returns the first container observed in a terminal state. A
// container that died during startup fails the gate fast instead of burning
// the whole stage budget.
func AnyExited(observed []ContainerState) (ContainerState, bool) {
	for _, c := range observed {
		if c.Status == "exited" || c.Status == "dead" {
			return c, true
		}
	}
	return ContainerState{}, false
}

// AllHealthy reports whether every expected service is running and, when it
// carries a healthcheck, reporting healthy. Services without a healthcheck
// count as healthy once running.
func AllHealthy(expected []string, observed []ContainerState) bool {
	byService := indexByService(observed)
	for _, svc := range expected {
		c, ok := byService[svc]
		if !ok || c.Status != "running" {
			return false
		}
		if c.Health != "" && c.Health != "healthy" {
			return false
		}
	}
	return true
}

// =============================================================================
// Status Derivation (Pure Functions)
// =============================================================================

// DeriveStatus maps a stack's observed containers to a display status for
// list and info output.
//
// The mapping is:
//   - no containers at all       → stopped (stack is down)
//   - every container running    → ready
//   - every container stopped    → stopped
//   - anything in between        → failed (partially up stacks need attention)
func DeriveStatus(observed []ContainerState) instance.Status {
	if len(observed) == 0 {
		return instance.StatusStopped
	}

	running := 0
	stopped := 0
	for _, c := range observed {
		switch c.Status {
		case "running":
			running++
		case "exited", "created", "dead":
			stopped++
		}
	}

	switch {
	case running == len(observed):
		return instance.StatusReady
	case stopped == len(observed):
		return instance.StatusStopped
	default:
		return instance.StatusFailed
	}
}

func indexByService(observed []ContainerState) map[string]ContainerState {
	m := make(map[string]ContainerState, len(observed))
	for _, c := range observed {
		m[c.Service] = c
	}
	return m
}
