package renderer

import (
	"errors"
	"fmt"
)

var (
	// ErrCapabilityUnsupported is returned when a feature the caller requires is missing
	// on the device. It is wrapped with the name of the missing capability.
	ErrCapabilityUnsupported = errors.New("capability unsupported")

	// ErrAccessViolation is returned when a dispatch touches a slot that is unbound or bound
	// at a tier that does not permit the access.
	ErrAccessViolation = errors.New("buffer access violation")

	// ErrOutOfBounds is returned when a kernel or upload addresses past the end of a buffer.
	ErrOutOfBounds = errors.New("buffer access out of bounds")

	// ErrInvalidHandle is returned for zero, unknown or destroyed buffer handles.
	ErrInvalidHandle = errors.New("invalid buffer handle")
)

// ResourceError reports a failed GPU resource creation.
type ResourceError struct {
	// Resource names what was being created (e.g. "buffer light_index").
	Resource string

	// Err is the underlying cause.
	Err error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("failed to create %s: %v", e.Resource, e.Err)
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}

// MissingCapability wraps ErrCapabilityUnsupported with the capability name.
//
// Parameters:
//   - name: the missing capability
//
// Returns:
//   - error: an error matching ErrCapabilityUnsupported via errors.Is
func MissingCapability(name string) error {
	return fmt.Errorf("%w: %s", ErrCapabilityUnsupported, name)
}
