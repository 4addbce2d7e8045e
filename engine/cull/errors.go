package cull

import (
	"errors"
	"fmt"
)

// ErrConfigurationFatal marks a cell grid configuration that can never be honored.
// Callers treat it as fatal rather than retrying or degrading.
var ErrConfigurationFatal = errors.New("fatal cell grid configuration")

// ErrBoundsNotBuilt is returned by Cull when the partitioner has not built cell bounds
// since it was last configured.
var ErrBoundsNotBuilt = errors.New("cell bounds not built")

// ConfigurationError describes why a grid configuration was rejected. It is always
// reported before any buffer is allocated.
type ConfigurationError struct {
	// Field names the offending setting.
	Field string

	// Reason explains the violation.
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid cell grid %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfigurationFatal
}
