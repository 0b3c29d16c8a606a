package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent federation failures.
// Typed errors below match these sentinels through errors.Is.
var (
	// ErrValidation indicates a malformed query or selector.
	// Raised before any source is contacted.
	ErrValidation = errors.New("validation failed")

	// ErrConfiguration indicates an invalid source set.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrUnsupportedOperation indicates a source cannot serve a lookup
	// without context it was not given (e.g. an owner scope).
	ErrUnsupportedOperation = errors.New("unsupported operation")

	// ErrSourceFetch indicates a source failed to fetch its scoped query.
	ErrSourceFetch = errors.New("source fetch failed")

	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidCursor indicates the resume cursor could not be decoded.
	ErrInvalidCursor = errors.New("invalid resume cursor")
)

// ValidationError describes why a query was rejected.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError creates a ValidationError for field.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// ConfigurationError describes why a source set was rejected.
type ConfigurationError struct {
	SourceKey string
	Reason    string
}

func (e *ConfigurationError) Error() string {
	if e.SourceKey == "" {
		return fmt.Sprintf("invalid configuration: %s", e.Reason)
	}
	return fmt.Sprintf("invalid configuration: source %q: %s", e.SourceKey, e.Reason)
}

// Is reports whether target is ErrConfiguration.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// UnsupportedOperationError is returned by a source that cannot service a
// scoped query. The federation core never synthesises it.
type UnsupportedOperationError struct {
	SourceKey string
	Operation string
	Reason    string
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("source %q cannot %s: %s", e.SourceKey, e.Operation, e.Reason)
}

// Is reports whether target is ErrUnsupportedOperation.
func (e *UnsupportedOperationError) Is(target error) bool {
	return target == ErrUnsupportedOperation
}

// SourceFetchError wraps the error raised by a single source's Fetch.
type SourceFetchError struct {
	SourceKey string
	Err       error
}

func (e *SourceFetchError) Error() string {
	return fmt.Sprintf("source %q: %v", e.SourceKey, e.Err)
}

// Is reports whether target is ErrSourceFetch.
func (e *SourceFetchError) Is(target error) bool {
	return target == ErrSourceFetch
}

// Unwrap returns the source's own error.
func (e *SourceFetchError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsUnsupported reports whether err carries an UnsupportedOperationError.
func IsUnsupported(err error) bool {
	return errors.Is(err, ErrUnsupportedOperation)
}
