package ports

import (
	"errors"
	"fmt"
)

// =============================================================================
// Port Allocation
// =============================================================================

var (
	ErrNoPortAvailable = errors.New("no available ports in range")
	ErrPortOutOfRange  = errors.New("port outside unprivileged range 1024-65535")
)

// AdminPortOffset separates an instance's phpMyAdmin port from its primary
// port.
const AdminPortOffset = 100

// Range defines the allocatable port range for instances.
type Range struct {
	Start int // Inclusive, e.g., 8080
	End   int // Inclusive, e.g., 8200
}

// DefaultRange returns the default allocation range.
func DefaultRange() Range {
	return Range{Start: 8080, End: 8200}
}

// Contains reports whether a port falls inside the range.
func (r Range) Contains(port int) bool {
	return port >= r.Start && port <= r.End
}

// BoundFunc reports whether a TCP port is currently bound on the host.
// Probing happens lazily, one candidate at a time, so the scan stops
// touching host state as soon as a free port is found.
type BoundFunc func(port int) bool

// Allocate finds the lowest available port at or above start.
//
// A port is available when no host process has it bound AND no sibling
// instance's compose file declares it as a primary port. The host check runs
// first for each candidate; the sibling-claim lookup only runs when the host
// check passes. Lowest free port wins, which makes allocation deterministic.
//
// A start of 0 means "scan from the range floor". Returns ErrNoPortAvailable
// when the scan reaches the upper bound with no candidate found; the caller
// treats that as terminal, never retried.
func Allocate(start int, rng Range, bound BoundFunc, claimed map[int]string) (int, error) {
	if start < rng.Start {
		start = rng.Start
	}

	for port := start; port <= rng.End; port++ {
		if bound != nil && bound(port) {
			continue
		}
		if _, taken := claimed[port]; taken {
			continue
		}
		return port, nil
	}

	return 0, ErrNoPortAvailable
}

// ValidateExplicit checks a caller-pinned port. An explicit port bypasses
// allocation entirely but must lie in the unprivileged range; this is a
// narrower, independent constraint from the allocation range.
func ValidateExplicit(port int) error {
	if port < 1024 || port > 65535 {
		return fmt.Errorf("%w: %d", ErrPortOutOfRange, port)
	}
	return nil
}

// AdminPort derives the secondary (phpMyAdmin) port from a primary port.
func AdminPort(primary int) int {
	return primary + AdminPortOffset
}
