package policystore

import (
	"errors"
	"fmt"
)

// ErrInvalidOverrides is returned when an overrides document fails validation.
var ErrInvalidOverrides = errors.New("invalid access overrides")

// ErrIncompatibleHost is returned when the overrides require another host version.
var ErrIncompatibleHost = errors.New("overrides not compatible with host")

// ValidationError indicates which field of an overrides document is invalid.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid access overrides: %s: %s", e.Field, e.Reason)
}

// Is implements error matching for errors.Is() checks.
// This allows: errors.Is(err, policystore.ErrInvalidOverrides)
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidOverrides
}
