package domain

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Stage data length bounds, counted in characters after trimming whitespace.
const (
	StageDataMinLen = 5
	StageDataMaxLen = 500
)

// ValidationKind discriminates stage content validation failures.
type ValidationKind string

// Stage content validation failure kinds.
const (
	ValidationEmptyContent ValidationKind = "empty_content"
	ValidationTooShort     ValidationKind = "too_short"
	ValidationTooLong      ValidationKind = "too_long"
)

// ValidationError reports a stage content constraint violation. It is
// surfaced before any mutation takes place.
type ValidationError struct {
	Kind ValidationKind
}

func (e ValidationError) Error() string {
	switch e.Kind {
	case ValidationEmptyContent:
		return "stage data must not be empty"
	case ValidationTooShort:
		return fmt.Sprintf("stage data must be at least %d characters", StageDataMinLen)
	case ValidationTooLong:
		return fmt.Sprintf("stage data must be at most %d characters", StageDataMaxLen)
	default:
		return "invalid stage data"
	}
}

// ValidateStageData checks stage content constraints. It is a pure function
// with no side effects; callers run it before consulting the identity gate.
func ValidateStageData(data string) error {
	trimmed := strings.TrimSpace(data)
	switch n := utf8.RuneCountInString(trimmed); {
	case n == 0:
		return ValidationError{Kind: ValidationEmptyContent}
	case n < StageDataMinLen:
		return ValidationError{Kind: ValidationTooShort}
	case n > StageDataMaxLen:
		return ValidationError{Kind: ValidationTooLong}
	}
	return nil
}

// ErrUnauthorized is returned when a mutation is attempted without an
// authenticated identity. The store never retries; callers are expected to
// prompt re-authentication.
var ErrUnauthorized = errors.New("unauthorized: caller must be authenticated")

// NotFoundError is returned when a mutation references a missing entity.
// Plain lookups signal absence with a boolean instead.
type NotFoundError struct {
	Entity EntityType
	ID     string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}
