// Package identity resolves caller credentials to stable user identifiers.
//
// The occupancy core never inspects credentials itself: HTTP middleware
// extracts the raw credential into the request context, and a Resolver
// strategy turns it into a profile id or fails. Authentication-method
// variation (bearer JWT, QR code token) lives behind the one Resolver
// interface rather than in per-endpoint copies.
package identity

import (
	"context"
	"errors"
)

// Resolution errors. Both map to an unauthorized outcome at the boundary;
// ErrInvalidToken additionally indicates a credential was presented but
// failed verification.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrInvalidToken    = errors.New("invalid token")
)

// Resolver resolves a credential to a user identifier.
type Resolver interface {
	// Resolve returns the profile id for the credential, or
	// ErrUnauthenticated / ErrInvalidToken.
	Resolve(ctx context.Context, credential string) (int64, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, credential string) (int64, error)

// Resolve calls f.
func (f ResolverFunc) Resolve(ctx context.Context, credential string) (int64, error) {
	return f(ctx, credential)
}
