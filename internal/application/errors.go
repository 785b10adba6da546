package application

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/example/conference-central/internal/key"
)

var (
	// ErrUnauthenticated is returned when an operation requires a signed-in principal.
	ErrUnauthenticated = errors.New("application: authorization required")
	// ErrUnauthorized is returned when the acting principal lacks permission for an operation.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrConflict is matched by every ConflictError.
	ErrConflict = errors.New("application: conflict")
	// ErrInvalidKeyKind is matched by every KeyKindError.
	ErrInvalidKeyKind = errors.New("application: invalid key kind")
)

var (
	// ErrAlreadyRegistered is returned when the profile already attends the conference.
	ErrAlreadyRegistered = &ConflictError{Reason: "You have already registered for this conference"}
	// ErrNoSeats is returned when the conference has no seats left.
	ErrNoSeats = &ConflictError{Reason: "There are no seats available."}
	// ErrAlreadyInWishlist is returned when the session is already wishlisted.
	ErrAlreadyInWishlist = &ConflictError{Reason: "This session is already in your wish list"}
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	if len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

func newValidationError(field, message string) *ValidationError {
	v := &ValidationError{}
	v.add(field, message)
	return v
}

// FilterError reports a filter descriptor whose field, operator or value is
// not recognised. It unwraps to a ValidationError on the "filters" field.
type FilterError struct {
	Field    string
	Operator string
	Reason   string
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("invalid filter (%s %s): %s", e.Field, e.Operator, e.Reason)
}

func (e *FilterError) Unwrap() error {
	return newValidationError("filters", "Filter contains invalid field or operator.")
}

// MultipleInequalityError reports non-equality comparisons on more than one
// distinct field. It unwraps to a ValidationError on the "filters" field.
type MultipleInequalityError struct {
	Fields []FilterField
}

func (e *MultipleInequalityError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for _, field := range e.Fields {
		names = append(names, field.String())
	}
	return "inequality filter is allowed on only one field: " + strings.Join(names, ", ")
}

func (e *MultipleInequalityError) Unwrap() error {
	return newValidationError("filters", "Inequality filter is allowed on only one field.")
}

// ConflictError reports a request that is valid but clashes with current state.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string {
	return "application: conflict: " + e.Reason
}

// Is makes every ConflictError match ErrConflict.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// KeyKindError reports a websafe key that decodes to the wrong entity kind.
type KeyKindError struct {
	Field string
	Want  key.Kind
	Got   key.Kind
}

func (e *KeyKindError) Error() string {
	return fmt.Sprintf("%s must reference a %s, got %s", e.Field, e.Want, e.Got)
}

// Is makes every KeyKindError match ErrInvalidKeyKind.
func (e *KeyKindError) Is(target error) bool {
	return target == ErrInvalidKeyKind
}

func (e *KeyKindError) Unwrap() error {
	return newValidationError(e.Field, fmt.Sprintf("%s must reference a %s", e.Field, e.Want))
}
