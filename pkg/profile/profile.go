// Package profile provides player profile lookup and provisioning. Profiles
// are created by the sync flow after an identity-provider login and are
// read-only from the occupancy core's perspective.
package profile

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no profile matches the lookup.
var ErrNotFound = errors.New("profile not found")

// Profile is a player profile row.
type Profile struct {
	ID        int64  `json:"id"`
	AuthID    string `json:"auth_id"`
	Email     string `json:"email"`
	FirstName string `json:"fname"`
	LastName  string `json:"lname"`
	QRToken   string `json:"qr_code_token"`
}

// SyncInput carries identity-provider fields for profile provisioning.
type SyncInput struct {
	AuthID    string
	Email     string
	FirstName string
	LastName  string
}

// Store defines profile persistence.
type Store interface {
	// ByID retrieves a profile by its primary key.
	ByID(ctx context.Context, id int64) (*Profile, error)

	// ByAuthID retrieves a profile by identity-provider subject id.
	ByAuthID(ctx context.Context, authID string) (*Profile, error)

	// ByQRToken retrieves a profile by QR code token.
	ByQRToken(ctx context.Context, token string) (*Profile, error)

	// Sync creates a profile for the auth subject if none exists, deriving
	// name fields from the email when they are missing. It reports whether
	// a new profile was created.
	Sync(ctx context.Context, in SyncInput) (*Profile, bool, error)
}
