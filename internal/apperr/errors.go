// Package apperr defines the error kinds the services return and the
// boundary turns into {"error": "..."} responses.
package apperr

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	// ErrNotFound: a referenced transaction, product, customer, cart or ticket does not exist.
	ErrNotFound = errors.New("not found")
	// ErrValidation: malformed or inconsistent input.
	ErrValidation = errors.New("validation failed")
	// ErrConflict: a unique constraint would be violated (duplicate SKU, username).
	ErrConflict = errors.New("conflict")
	// ErrIntegrity: a multi-step mutation failed partway and was rolled back.
	ErrIntegrity = errors.New("integrity failure")
)

func NotFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func Conflict(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

// Integrity wraps the cause of a rolled-back unit of work. Typed errors pass through unchanged.
func Integrity(op string, err error) error {
	if err == nil || IsTyped(err) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", ErrIntegrity, op, err)
}

// IsTyped reports whether err already carries one of the kinds above.
func IsTyped(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrIntegrity)
}

// FromDB translates gorm errors into kinds. what names the entity, e.g. "product 7".
func FromDB(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return NotFound("%s", what)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return Conflict("%s already exists", what)
	default:
		return err
	}
}
