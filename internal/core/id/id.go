// Package id provides UUIDv7 generation for ledger entities.
// UUIDv7 is time-ordered, so batches, movements and documents sort by creation time.
package id

import (
	"github.com/google/uuid"
)

// ID is a type alias for UUID, used across all entities.
type ID = uuid.UUID

// New generates a new UUIDv7 (time-ordered UUID).
func New() ID {
	v, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return v
}

// Parse converts string to ID with validation.
func Parse(s string) (ID, error) {
	return uuid.Parse(s)
}

// MustParse converts string to ID, panics on error.
// Use only for constants and tests.
func MustParse(s string) ID {
	return uuid.MustParse(s)
}

// Nil returns zero-value UUID.
func Nil() ID {
	return uuid.Nil
}

// IsNil checks if ID is zero-value.
func IsNil(v ID) bool {
	return v == uuid.Nil
}

// Ptr returns a pointer to v, or nil for the zero ID.
func Ptr(v ID) *ID {
	if IsNil(v) {
		return nil
	}
	return &v
}

var nameSpace = uuid.MustParse("5b0f7c1e-8a4e-4d61-9a53-6f1f2c7d9e10")

// NewFromName returns a deterministic ID for an external string key
// (staff user ids that are not UUIDs).
func NewFromName(name string) ID {
	return uuid.NewSHA1(nameSpace, []byte(name))
}
