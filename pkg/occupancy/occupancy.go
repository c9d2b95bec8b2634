// Package occupancy tracks live occupancy of gym courts. It defines the
// Manager interface for the check-in/check-out transactional core and the
// domain types shared by its implementations.
//
// A session is active while its check-out time is unset. The core enforces
// three invariants after every committed operation: a user holds at most one
// active session, a court never exceeds its max capacity, and the
// denormalized court status equals Full exactly when the active count has
// reached capacity. Sessions older than the session timeout are closed by an
// expiry sweep that runs at the start of check-in and of status reads, so
// the fourth invariant (no active session older than the timeout) holds
// lazily rather than instantaneously.
package occupancy

import (
	"context"
	"errors"
	"time"
)

// DefaultSessionTimeout is how long a session may stay active before the
// expiry sweep closes it.
const DefaultSessionTimeout = 2 * time.Hour

// Status is the denormalized fullness state stored on a court row.
type Status string

// Court status values.
const (
	StatusOpen Status = "Open"
	StatusFull Status = "Full"
)

// Conflict errors detected inside a transaction. Each causes a clean
// rollback and is distinguishable with errors.Is.
var (
	// ErrAlreadyCheckedIn is returned when a user with an active session
	// attempts a second check-in.
	ErrAlreadyCheckedIn = errors.New("already checked into a court")

	// ErrCourtNotFound is returned when the target court does not exist.
	ErrCourtNotFound = errors.New("court not found")

	// ErrCourtFull is returned when a court is at max capacity.
	ErrCourtFull = errors.New("court is full")

	// ErrNoActiveSession is returned by check-out when the user has no
	// active session. Callers must treat this as a normal outcome, not a
	// system error.
	ErrNoActiveSession = errors.New("no active session")
)

// Player identifies a player currently occupying a court.
type Player struct {
	FirstName string `json:"fname"`
	LastName  string `json:"lname"`
}

// CheckInResult is the payload of a successful check-in.
type CheckInResult struct {
	CurrentPlayers int    `json:"current_players"`
	MaxCapacity    int    `json:"max_capacity"`
	Status         Status `json:"status"`
}

// CourtStatusResult is the payload of a court status read.
type CourtStatusResult struct {
	CourtName      string   `json:"court_name"`
	Status         Status   `json:"status"`
	MaxCapacity    int      `json:"max_capacity"`
	CurrentPlayers int      `json:"current_players"`
	Players        []Player `json:"players"`
}

// CourtSummary is one row of a court listing with its live active count.
type CourtSummary struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	MaxCapacity    int    `json:"max_capacity"`
	Status         Status `json:"status"`
	CurrentPlayers int    `json:"current_players"`
}

// ListFilter narrows a court listing. Zero values match everything.
type ListFilter struct {
	// Status restricts results to courts with this stored status.
	Status Status

	// NameQuery restricts results to courts whose name contains this
	// substring, case-insensitively.
	NameQuery string
}

// Manager is the occupancy check-in/check-out core. Implementations are
// stateless over their store handle and safe for concurrent use; each
// operation runs as a single transaction and rolls back fully on failure.
type Manager interface {
	// CheckIn opens an active session for the user on the court. It fails
	// with ErrAlreadyCheckedIn, ErrCourtNotFound, or ErrCourtFull.
	CheckIn(ctx context.Context, userID, courtID int64) (*CheckInResult, error)

	// CheckOut closes the user's active session. It fails with
	// ErrNoActiveSession when none is active, mutating nothing.
	CheckOut(ctx context.Context, userID int64) error

	// CourtStatus returns court metadata, the live player count, and the
	// player list. It fails with ErrCourtNotFound.
	CourtStatus(ctx context.Context, courtID int64) (*CourtStatusResult, error)

	// ListCourts returns all courts matching the filter with their live
	// active counts.
	ListCourts(ctx context.Context, filter ListFilter) ([]CourtSummary, error)
}

// StatusFor derives the court status from an active count and capacity.
func StatusFor(active, capacity int) Status {
	if active >= capacity {
		return StatusFull
	}
	return StatusOpen
}
