package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestValidationError_MatchesClassSentinel(t *testing.T) {
	err := NewValidationError(KindLength, "name", "name must be between %d and %d characters", 2, 100)

	if !errors.Is(err, ErrValidation) {
		t.Fatal("ValidationError must match ErrValidation")
	}
	if errors.Is(err, ErrConflict) {
		t.Fatal("a length error must not match ErrConflict")
	}
	if errors.Is(err, ErrItemNotFound) {
		t.Fatal("a validation error must not match ErrItemNotFound")
	}
}

func TestValidationError_UniquenessIsAlsoConflict(t *testing.T) {
	err := NewValidationError(KindUniqueness, "code", "an item with code %q already exists", "WIDGET_01")

	if !errors.Is(err, ErrValidation) {
		t.Fatal("uniqueness error must match ErrValidation")
	}
	if !errors.Is(err, ErrConflict) {
		t.Fatal("uniqueness error must match ErrConflict")
	}
}

func TestValidationError_WrappedStillMatches(t *testing.T) {
	err := fmt.Errorf("create item: %w", NewValidationError(KindSecurity, "", "content contains SQL keyword"))
	if !errors.Is(err, ErrValidation) {
		t.Fatal("wrapped ValidationError must still match ErrValidation")
	}
}

func TestErrVersionConflict_IsConflict(t *testing.T) {
	if !errors.Is(ErrVersionConflict, ErrConflict) {
		t.Fatal("ErrVersionConflict must match ErrConflict")
	}
	if errors.Is(ErrVersionConflict, ErrValidation) {
		t.Fatal("ErrVersionConflict must not match ErrValidation")
	}
}

func TestValidationError_Message(t *testing.T) {
	err := NewValidationError(KindPattern, "code", "code must contain only uppercase letters")
	want := "pattern code: code must contain only uppercase letters"
	if err.Error() != want {
		t.Fatalf("expected %q, got %q", want, err.Error())
	}

	noField := NewValidationError(KindSecurity, "", "content rejected")
	if noField.Error() != "security: content rejected" {
		t.Fatalf("unexpected message: %q", noField.Error())
	}
}
