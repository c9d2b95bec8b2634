// Package team provides team creation and membership. Teams are a social
// layer over profiles and do not participate in occupancy invariants.
package team

import (
	"context"
	"errors"
)

// Conflict errors.
var (
	ErrNameTaken     = errors.New("team name already exists")
	ErrAlreadyMember = errors.New("already a member of this team")
	ErrNotFound      = errors.New("team not found")
)

// Team is a team row.
type Team struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	TeamSize    int    `json:"team_size"`
	Description string `json:"description"`
	Tags        string `json:"tags"`
	CoachID     int64  `json:"coach_id"`
}

// Member is one row of a team roster.
type Member struct {
	UserID    int64  `json:"user_id"`
	FirstName string `json:"fname"`
	LastName  string `json:"lname"`
}

// CreateInput carries fields for team creation.
type CreateInput struct {
	Name        string
	TeamSize    int
	Description string
	Tags        string
	CoachID     int64
}

// Store defines team persistence.
type Store interface {
	// Create inserts a team and enrolls the creator, failing with
	// ErrNameTaken when the name is in use.
	Create(ctx context.Context, in CreateInput) (int64, error)

	// Join enrolls the user, failing with ErrAlreadyMember on a duplicate
	// membership and ErrNotFound for an unknown team.
	Join(ctx context.Context, teamID, userID int64) error

	// Members returns the team roster.
	Members(ctx context.Context, teamID int64) ([]Member, error)
}
