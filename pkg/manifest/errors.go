package manifest

import "fmt"

// LoadError represents an error that occurred while reading the manifest
// file. This includes file system errors like "file not found" as well as
// size and encoding violations.
type LoadError struct {
	// FilePath is the path to the file that failed to load
	FilePath string

	// Message describes the error
	Message string

	// Cause is the underlying error, if any
	Cause error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load manifest %q: %s: %v", e.FilePath, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load manifest %q: %s", e.FilePath, e.Message)
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *LoadError) Unwrap() error {
	return e.Cause
}

// ParseError represents a YAML parsing failure in the manifest.
type ParseError struct {
	// FilePath is the path to the file that failed to parse
	FilePath string

	// Cause is the underlying parser error
	Cause error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error in %q: %v", e.FilePath, e.Cause)
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// ValidationError represents a semantic problem with a loaded manifest,
// such as a duplicate policy name or a spec with no resource file.
type ValidationError struct {
	// PolicyName is the name of the offending spec, if applicable
	PolicyName string

	// Field is the manifest field that failed validation
	Field string

	// Message describes the validation error
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.PolicyName != "" {
		return fmt.Sprintf("invalid manifest: policy %q: %s: %s", e.PolicyName, e.Field, e.Message)
	}
	return fmt.Sprintf("invalid manifest: %s: %s", e.Field, e.Message)
}
