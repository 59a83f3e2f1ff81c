package content

import "fmt"

// MalformedContentError indicates a policy document could not be read or
// parsed. The affected policy is skipped; the run continues.
type MalformedContentError struct {
	// Path is the path to the document that failed, if known
	Path string

	// Cause is the underlying read or parse error
	Cause error
}

// Error implements the error interface.
func (e *MalformedContentError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("malformed policy content in %q: %v", e.Path, e.Cause)
	}
	return fmt.Sprintf("malformed policy content: %v", e.Cause)
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *MalformedContentError) Unwrap() error {
	return e.Cause
}

// ContentTooLargeError indicates a prepared document exceeds the
// management plane's serialized size budget. The affected policy is
// skipped with no remote calls made.
type ContentTooLargeError struct {
	// Size is the measured byte length of the prepared document
	Size int

	// Limit is the maximum allowed byte length
	Limit int
}

// Error implements the error interface.
func (e *ContentTooLargeError) Error() string {
	return fmt.Sprintf("policy content is %d bytes, exceeds maximum %d bytes", e.Size, e.Limit)
}
