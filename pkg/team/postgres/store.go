// Package postgres provides PostgreSQL storage for teams.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cutrackit/courtflow/pkg/team"
)

// Store implements team.Store using PostgreSQL.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL team store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Create inserts a team and enrolls the creator in one transaction.
func (s *Store) Create(ctx context.Context, in team.CreateInput) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning create transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var existing int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM "Teams" WHERE name = $1`, in.Name).Scan(&existing)
	if err == nil {
		return 0, team.ErrNameTaken
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("checking team name: %w", err)
	}

	var teamID int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO "Teams" (name, team_size, description, tags, coach_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, in.Name, in.TeamSize, in.Description, in.Tags, in.CoachID).Scan(&teamID)
	if err != nil {
		return 0, fmt.Errorf("inserting team: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO "Memberships" (team_id, user_id)
		VALUES ($1, $2)
	`, teamID, in.CoachID)
	if err != nil {
		return 0, fmt.Errorf("inserting creator membership: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing team creation: %w", err)
	}
	return teamID, nil
}

// Join enrolls the user in the team.
func (s *Store) Join(ctx context.Context, teamID, userID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning join transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM "Teams" WHERE id = $1`, teamID).Scan(&exists)
	if err == sql.ErrNoRows {
		return team.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("checking team: %w", err)
	}

	err = tx.QueryRowContext(ctx, `
		SELECT 1 FROM "Memberships"
		WHERE team_id = $1 AND user_id = $2
	`, teamID, userID).Scan(&exists)
	if err == nil {
		return team.ErrAlreadyMember
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("checking membership: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO "Memberships" (team_id, user_id)
		VALUES ($1, $2)
	`, teamID, userID)
	if err != nil {
		return fmt.Errorf("inserting membership: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing join: %w", err)
	}
	return nil
}

// Members returns the team roster.
func (s *Store) Members(ctx context.Context, teamID int64) ([]team.Member, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.fname, p.lname
		FROM "Memberships" m
		JOIN "Profiles" p ON m.user_id = p.id
		WHERE m.team_id = $1
		ORDER BY p.id
	`, teamID)
	if err != nil {
		return nil, fmt.Errorf("listing members: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var members []team.Member
	for rows.Next() {
		var m team.Member
		if err := rows.Scan(&m.UserID, &m.FirstName, &m.LastName); err != nil {
			return nil, fmt.Errorf("scanning member row: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating member rows: %w", err)
	}
	return members, nil
}

// Verify interface compliance.
var _ team.Store = (*Store)(nil)
