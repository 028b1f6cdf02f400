package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the item domain. Use errors.Is() to check these.
var (
	// ErrItemNotFound indicates the requested item does not exist or is
	// soft-deleted and therefore excluded from the default view.
	ErrItemNotFound = errors.New("item not found")

	// ErrValidation is the class sentinel for every ValidationError.
	ErrValidation = errors.New("validation failed")

	// ErrConflict is the class sentinel for optimistic-lock mismatches and
	// duplicate business keys. Callers may retry with a fresh version.
	ErrConflict = errors.New("conflict")

	// ErrVersionConflict indicates the expected version did not match the
	// stored version; no mutation was applied.
	ErrVersionConflict = fmt.Errorf("%w: stale version", ErrConflict)

	// ErrServiceUnavailable is returned when a resilience fallback fires on a
	// mutating operation and no safe default result exists.
	ErrServiceUnavailable = errors.New("service temporarily unavailable")

	// ErrInternal wraps unexpected store failures on the critical write path.
	ErrInternal = errors.New("internal error")
)

// ValidationKind identifies which validation stage rejected the candidate.
type ValidationKind string

const (
	KindRequired    ValidationKind = "required"
	KindLength      ValidationKind = "length"
	KindPattern     ValidationKind = "pattern"
	KindUniqueness  ValidationKind = "uniqueness"
	KindConsistency ValidationKind = "consistency"
	KindSecurity    ValidationKind = "security"
	KindLimit       ValidationKind = "limit"
)

// ValidationError is a typed rejection from the validation pipeline.
// The pipeline is fail-fast: the first stage to reject produces the one
// ValidationError the caller sees.
type ValidationError struct {
	Kind    ValidationKind
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s %s: %s", e.Kind, e.Field, e.Message)
}

// Is makes every ValidationError match ErrValidation, and uniqueness
// violations additionally match ErrConflict so callers treat duplicate
// business keys as retry-with-different-input conflicts, not bad requests.
func (e *ValidationError) Is(target error) bool {
	if target == ErrValidation {
		return true
	}
	return e.Kind == KindUniqueness && target == ErrConflict
}

// NewValidationError builds a ValidationError for the given stage and field.
func NewValidationError(kind ValidationKind, field, format string, args ...any) *ValidationError {
	return &ValidationError{Kind: kind, Field: field, Message: fmt.Sprintf(format, args...)}
}
