package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinel errors for the taxonomy the HTTP layer maps to status codes.
var (
	// ErrValidation marks malformed or missing input. FieldErrors wraps it
	// when per-field detail is available.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound covers both absent entities and ownership misses, so a
	// caller can never distinguish another user's row from a missing one.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned on per-user uniqueness violations.
	ErrConflict = errors.New("conflict")

	// ErrUnauthorized is returned when no identity could be resolved.
	ErrUnauthorized = errors.New("unauthorized")
)

// Field-level validation sentinels.
var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDate   = errors.New("invalid date")
	ErrEmptyName     = errors.New("empty name")
	ErrInvalidType   = errors.New("invalid type")
)

// FieldErrors carries machine-readable validation detail, keyed by field name.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	if len(fe) == 0 {
		return ErrValidation.Error()
	}
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, fe[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Unwrap lets errors.Is(err, ErrValidation) match any FieldErrors value.
func (fe FieldErrors) Unwrap() error {
	return ErrValidation
}

// OrNil returns nil when no fields were recorded, so callers can build up
// errors and return the result unconditionally.
func (fe FieldErrors) OrNil() error {
	if len(fe) == 0 {
		return nil
	}
	return fe
}
