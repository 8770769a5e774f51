package provision

import (
	"errors"
	"fmt"
)

// ErrDumpNotFound indicates the SQL dump given to import does not exist.
// Raised before any port or directory is allocated.
var ErrDumpNotFound = errors.New("sql dump not found")

// WorkflowError wraps a failure inside a named workflow so the CLI can
// report which operation on which instance broke.
type WorkflowError struct {
	Op       string // create, import, start, stop, remove
	Instance string
	Err      error
}

func (e *WorkflowError) Error() string {
	if e.Instance == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Instance, e.Err)
}

func (e *WorkflowError) Unwrap() error {
	return e.Err
}

func wrapWorkflow(op, instanceName string, err error) error {
	if err == nil {
		return nil
	}
	return &WorkflowError{Op: op, Instance: instanceName, Err: err}
}
