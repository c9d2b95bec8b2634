package identity

import (
	"context"
	"fmt"

	"github.com/cutrackit/courtflow/pkg/profile"
)

// QRResolver resolves QR code tokens printed on player passes. The token is
// an opaque value stored on the profile at provisioning time.
type QRResolver struct {
	profiles profile.Store
}

// NewQRResolver creates a new QR token resolver.
func NewQRResolver(profiles profile.Store) *QRResolver {
	return &QRResolver{profiles: profiles}
}

// Resolve looks up the profile holding the QR token.
func (r *QRResolver) Resolve(ctx context.Context, credential string) (int64, error) {
	if credential == "" {
		return 0, ErrUnauthenticated
	}

	p, err := r.profiles.ByQRToken(ctx, credential)
	if err == profile.ErrNotFound {
		return 0, ErrInvalidToken
	}
	if err != nil {
		return 0, fmt.Errorf("resolving qr token: %w", err)
	}
	return p.ID, nil
}

// Verify interface compliance.
var _ Resolver = (*QRResolver)(nil)
