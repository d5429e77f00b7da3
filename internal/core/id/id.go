// Package id provides UUIDv7 identifiers for documents, lines and stock records.
// UUIDv7 is time-ordered, so primary key order follows creation order.
package id

import (
	"github.com/google/uuid"
)

// ID is the identifier type used by every entity.
type ID = uuid.UUID

// New generates a new UUIDv7.
func New() ID {
	v, err := uuid.NewV7()
	if err != nil {
		// entropy failure; v4 keeps us running
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

// EqualPtr compares optional ids; two nils are equal.
func EqualPtr(a, b *ID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// String renders an optional id, empty for nil.
func String(v *ID) string {
	if v == nil {
		return ""
	}
	return v.String()
}
