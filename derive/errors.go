/*
errors.go - Centralized error types for the derivation engine

PURPOSE:
  All engine error types in one place. Note the narrow surface: the
  engine treats bad numeric input, exceeded ceilings, and zero divisors
  as data (coerce, clamp, unset) - never as errors. Errors exist only
  for programming mistakes: dispatching an unknown mode or a field the
  mode has no rule for.

USAGE:
  if errors.Is(err, derive.ErrUnknownField) { ... }
*/
package derive

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrUnknownMode is returned when a mode name resolves to nothing.
	ErrUnknownMode = errors.New("unknown derivation mode")

	// ErrUnknownField is returned when the mode has no rule for the
	// edited field.
	ErrUnknownField = errors.New("no rule for edited field")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// UnknownFieldError reports which field/mode pair failed dispatch.
type UnknownFieldError struct {
	Mode  string
	Field Field
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("mode %q: no rule for edited field %q", e.Mode, e.Field)
}

func (e *UnknownFieldError) Unwrap() error { return ErrUnknownField }
