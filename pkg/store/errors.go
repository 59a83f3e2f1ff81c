package store

import "fmt"

// PreconditionError indicates no valid remote session exists. It is
// global and fatal: the run terminates before any listing begins.
type PreconditionError struct {
	// Cause is the underlying session check failure
	Cause error
}

// Error implements the error interface.
func (e *PreconditionError) Error() string {
	return fmt.Sprintf("no valid remote session: %v", e.Cause)
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *PreconditionError) Unwrap() error {
	return e.Cause
}

// RemoteCallError represents a failed management-plane call. It is
// scoped to the single call in which it occurred; the driver advances to
// the next unit of work.
type RemoteCallError struct {
	// Op is the store operation that failed (e.g. "CreatePolicy")
	Op string

	// StatusCode is the HTTP status, when the binding is HTTP (0 otherwise)
	StatusCode int

	// Cause is the underlying transport or remote error
	Cause error
}

// Error implements the error interface.
func (e *RemoteCallError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("remote call %s failed with status %d: %v", e.Op, e.StatusCode, e.Cause)
	}
	return fmt.Sprintf("remote call %s failed: %v", e.Op, e.Cause)
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *RemoteCallError) Unwrap() error {
	return e.Cause
}

// NotFoundError indicates the remote system has no resource with the
// given id.
type NotFoundError struct {
	// Kind is the resource kind ("policy", "node", "target")
	Kind string

	// ID is the missing resource's identifier
	ID string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}
