// Package geo maps node identifiers to ISO country codes.
package geo

import (
	"context"
	"errors"
)

// ErrNotFound is returned when an identifier has no known country.
var ErrNotFound = errors.New("country not found")

// Resolver looks up the country of one identifier.
type Resolver interface {
	Lookup(ctx context.Context, identifier string) (string, error)
}

// UnknownResolver resolves nothing. Every identifier is counted as unknown.
type UnknownResolver struct{}

func (UnknownResolver) Lookup(context.Context, string) (string, error) {
	return "", ErrNotFound
}
