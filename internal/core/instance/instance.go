package instance

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Instance Errors
// =============================================================================

var (
	ErrInvalidName       = errors.New("instance name is invalid")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// =============================================================================
// Instance Status
// =============================================================================

type Status string

const (
	StatusNotCreated   Status = "not-created"
	StatusProvisioning Status = "provisioning"
	StatusReady        Status = "ready"
	StatusStopped      Status = "stopped"
	StatusFailed       Status = "failed"
	StatusRemoved      Status = "removed"
)

// =============================================================================
// Instance
// =============================================================================

// Instance represents one isolated WordPress development site: its own
// directory, ports, and container stack.
type Instance struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	PrimaryPort  int        `json:"primary_port"`
	AdminPort    int        `json:"admin_port"`
	Dir          string     `json:"dir"`
	Status       Status     `json:"status"`
	ErrorMessage string     `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	ReadyAt      *time.Time `json:"ready_at,omitempty"`
	StoppedAt    *time.Time `json:"stopped_at,omitempty"`
}

// New creates an instance in the not-created state. The name must already be
// sanitized; ports are assigned by the caller (allocator or explicit flag).
func New(name string, primaryPort, adminPort int, dir string) (*Instance, error) {
	if name == "" || name != SanitizeName(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	now := time.Now().UTC()
	return &Instance{
		ID:          uuid.New().String(),
		Name:        name,
		PrimaryPort: primaryPort,
		AdminPort:   adminPort,
		Dir:         dir,
		Status:      StatusNotCreated,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// SiteURL returns the browser-facing URL of the WordPress site.
func (i *Instance) SiteURL() string {
	return fmt.Sprintf("http://localhost:%d", i.PrimaryPort)
}

// AdminURL returns the wp-admin URL of the WordPress site.
func (i *Instance) AdminURL() string {
	return fmt.Sprintf("http://localhost:%d/wp-admin", i.PrimaryPort)
}

// DBAdminURL returns the phpMyAdmin URL on the secondary port.
func (i *Instance) DBAdminURL() string {
	return fmt.Sprintf("http://localhost:%d", i.AdminPort)
}

// Transition attempts to transition the instance to a new status.
func (i *Instance) Transition(to Status) error {
	if err := ValidateTransition(i.Status, to); err != nil {
		return err
	}

	i.Status = to
	i.UpdatedAt = time.Now().UTC()

	// Clear error on a fresh provisioning attempt
	if i.Status == StatusProvisioning {
		i.ErrorMessage = ""
	}

	// Set timestamps
	if to == StatusReady {
		now := time.Now().UTC()
		i.ReadyAt = &now
	}
	if to == StatusStopped {
		now := time.Now().UTC()
		i.StoppedAt = &now
	}

	return nil
}

// TransitionToFailed transitions to failed status with an error message.
func (i *Instance) TransitionToFailed(errorMessage string) error {
	switch i.Status {
	case StatusProvisioning, StatusReady:
		i.Status = StatusFailed
		i.ErrorMessage = errorMessage
		i.UpdatedAt = time.Now().UTC()
		return nil
	default:
		return ErrInvalidTransition
	}
}

// =============================================================================
// State Machine
// =============================================================================

// validTransitions defines the allowed status transitions.
var validTransitions = map[Status][]Status{
	StatusNotCreated:   {StatusProvisioning},
	StatusProvisioning: {StatusReady, StatusFailed},
	StatusReady:        {StatusStopped, StatusFailed, StatusRemoved},
	StatusStopped:      {StatusProvisioning, StatusRemoved},
	StatusFailed:       {StatusProvisioning, StatusRemoved},
	StatusRemoved:      {}, // Terminal state
}

// ValidateTransition checks if a status transition is valid.
func ValidateTransition(from, to Status) error {
	allowed, exists := validTransitions[from]
	if !exists {
		return ErrInvalidTransition
	}

	for _, s := range allowed {
		if s == to {
			return nil
		}
	}

	return ErrInvalidTransition
}
