// Package postgres provides PostgreSQL storage for player profiles.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/cutrackit/courtflow/pkg/profile"
)

// Store implements profile.Store using PostgreSQL.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL profile store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const selectProfile = `
	SELECT id, auth_id, email, fname, lname, qr_code_token
	FROM "Profiles"
`

// ByID retrieves a profile by its primary key.
func (s *Store) ByID(ctx context.Context, id int64) (*profile.Profile, error) {
	row := s.db.QueryRowContext(ctx, selectProfile+`WHERE id = $1`, id)
	return scanProfile(row)
}

// ByAuthID retrieves a profile by identity-provider subject id.
func (s *Store) ByAuthID(ctx context.Context, authID string) (*profile.Profile, error) {
	row := s.db.QueryRowContext(ctx, selectProfile+`WHERE auth_id = $1`, authID)
	return scanProfile(row)
}

// ByQRToken retrieves a profile by QR code token.
func (s *Store) ByQRToken(ctx context.Context, token string) (*profile.Profile, error) {
	row := s.db.QueryRowContext(ctx, selectProfile+`WHERE qr_code_token = $1`, token)
	return scanProfile(row)
}

// Sync creates a profile for the auth subject if none exists. The check and
// insert run in one transaction so concurrent syncs for the same subject
// cannot create duplicates past the unique auth_id constraint.
func (s *Store) Sync(ctx context.Context, in profile.SyncInput) (*profile.Profile, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("beginning sync transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	existing, err := scanProfile(tx.QueryRowContext(ctx, selectProfile+`WHERE auth_id = $1`, in.AuthID))
	if err == nil {
		if commitErr := tx.Commit(); commitErr != nil {
			return nil, false, fmt.Errorf("committing sync: %w", commitErr)
		}
		return existing, false, nil
	}
	if err != profile.ErrNotFound {
		return nil, false, err
	}

	fname, lname := deriveNames(in)
	qrToken := uuid.NewString()

	var id int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO "Profiles" (auth_id, email, fname, lname, qr_code_token)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, in.AuthID, in.Email, fname, lname, qrToken).Scan(&id)
	if err != nil {
		return nil, false, fmt.Errorf("inserting profile: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("committing sync: %w", err)
	}

	return &profile.Profile{
		ID:        id,
		AuthID:    in.AuthID,
		Email:     in.Email,
		FirstName: fname,
		LastName:  lname,
		QRToken:   qrToken,
	}, true, nil
}

// deriveNames fills missing name fields from the email local part.
func deriveNames(in profile.SyncInput) (string, string) {
	fname, lname := in.FirstName, in.LastName
	if fname == "" && lname == "" && in.Email != "" {
		parts := strings.SplitN(strings.SplitN(in.Email, "@", 2)[0], ".", 2)
		fname = capitalize(parts[0])
		if len(parts) > 1 {
			lname = capitalize(parts[1])
		}
	}
	if fname == "" {
		fname = "User"
	}
	return fname, lname
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// scanProfile scans a single row into a Profile.
func scanProfile(row *sql.Row) (*profile.Profile, error) {
	var p profile.Profile
	err := row.Scan(&p.ID, &p.AuthID, &p.Email, &p.FirstName, &p.LastName, &p.QRToken)
	if err == sql.ErrNoRows {
		return nil, profile.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning profile: %w", err)
	}
	return &p, nil
}

// Verify interface compliance.
var _ profile.Store = (*Store)(nil)
