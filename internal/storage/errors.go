package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned for a missing project, artifact, or version,
	// and for a version that does not belong to the referenced artifact.
	// Tenant-ownership mismatches in the hosted backend surface as
	// ErrNotFound too, so other tenants' data is never confirmed to exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation is returned for malformed enum values or empty required
	// fields.
	ErrValidation = errors.New("validation failed")

	// ErrConflict is returned when a case-insensitive unique name is taken.
	ErrConflict = errors.New("duplicate name")

	// ErrStorage wraps underlying engine failures not otherwise classified.
	ErrStorage = errors.New("storage failure")
)

// Internal classifies an unhandled engine failure as ErrStorage while
// keeping the underlying error inspectable.
func Internal(msg string, err error) error {
	return fmt.Errorf("%s: %w: %w", msg, ErrStorage, err)
}
