// Package id provides ID generation helpers.
package id

import (
	"fmt"

	"github.com/google/uuid"
)

// Generator produces opaque identifiers.
type Generator interface {
	NewID() (string, error)
}

// UUID creates UUID v7 strings, which sort by creation time.
type UUID struct{}

// New creates a UUID generator.
func New() UUID {
	return UUID{}
}

// NewID returns a UUID7 string.
func (UUID) NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate uuid7: %w", err)
	}
	return id.String(), nil
}

// Valid reports whether s parses as a UUID. Cookie values are checked with it
// before being trusted as registry keys.
func Valid(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
