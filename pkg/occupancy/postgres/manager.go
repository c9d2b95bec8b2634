// Package postgres implements the occupancy Manager on PostgreSQL.
//
// Every operation runs as exactly one transaction. Concurrent check-ins on
// the same court are serialized by an exclusive row lock on the court row
// (SELECT ... FOR UPDATE), so the capacity check and the session insert are
// atomic relative to each other. Check-out needs no court lock: it mutates
// the user's uniquely-keyed active session and then recomputes the derived
// status, and a race against a concurrent check-in can only make the stored
// status more conservative until the next read of that court.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/cutrackit/courtflow/pkg/occupancy"
)

// psq is the PostgreSQL statement builder with dollar placeholders.
var psq = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Manager implements occupancy.Manager using PostgreSQL.
type Manager struct {
	db      *sql.DB
	timeout time.Duration
	cancel  context.CancelFunc
	done    chan struct{}
}

// Config configures the PostgreSQL occupancy manager.
type Config struct {
	// SessionTimeout is how long a session may stay active before the
	// expiry sweep closes it. Defaults to occupancy.DefaultSessionTimeout.
	SessionTimeout time.Duration
}

// New creates a new PostgreSQL occupancy manager.
func New(db *sql.DB, cfg Config) *Manager {
	if cfg.SessionTimeout == 0 {
		cfg.SessionTimeout = occupancy.DefaultSessionTimeout
	}
	return &Manager{
		db:      db,
		timeout: cfg.SessionTimeout,
	}
}

const (
	sweepQuery = `
		UPDATE "Sessions"
		SET check_out_at = NOW()
		WHERE check_out_at IS NULL
		AND check_in_at < NOW() - $1::interval
	`

	sweepReturningQuery = `
		UPDATE "Sessions"
		SET check_out_at = NOW()
		WHERE check_out_at IS NULL
		AND check_in_at < NOW() - $1::interval
		RETURNING court_id
	`

	activeSessionExistsQuery = `
		SELECT 1 FROM "Sessions"
		WHERE user_id = $1
		AND check_out_at IS NULL
	`

	lockCourtQuery = `
		SELECT max_capacity
		FROM "Courts"
		WHERE id = $1
		FOR UPDATE
	`

	countActiveQuery = `
		SELECT COUNT(*) FROM "Sessions"
		WHERE court_id = $1
		AND check_out_at IS NULL
	`

	insertSessionQuery = `
		INSERT INTO "Sessions" (user_id, court_id, check_in_at)
		VALUES ($1, $2, NOW())
	`

	updateStatusQuery = `
		UPDATE "Courts"
		SET status = $1
		WHERE id = $2
	`

	closeActiveSessionQuery = `
		UPDATE "Sessions"
		SET check_out_at = NOW()
		WHERE user_id = $1
		AND check_out_at IS NULL
		RETURNING court_id
	`

	courtCapacityQuery = `
		SELECT max_capacity FROM "Courts"
		WHERE id = $1
	`

	courtInfoQuery = `
		SELECT name, max_capacity, status
		FROM "Courts"
		WHERE id = $1
	`

	activePlayersQuery = `
		SELECT p.fname, p.lname
		FROM "Sessions" s
		JOIN "Profiles" p ON s.user_id = p.id
		WHERE s.court_id = $1
		AND s.check_out_at IS NULL
		ORDER BY s.check_in_at
	`
)

// interval formats the session timeout as a Postgres interval literal.
func (m *Manager) interval() string {
	return fmt.Sprintf("%d seconds", int(m.timeout.Seconds()))
}

// sweepExpired closes every session older than the timeout. It is a pure
// bulk update with no read-then-decide gap and matches zero rows when
// re-run, so concurrent sweeps are safe. It does not recompute statuses of
// the courts it touches; that happens lazily on the next read or check-in
// of each court, or in the background sweep routine.
func (m *Manager) sweepExpired(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, sweepQuery, m.interval()); err != nil {
		return fmt.Errorf("sweeping expired sessions: %w", err)
	}
	return nil
}

// CheckIn opens an active session for the user on the court.
//
// The expiry sweep runs first inside the same transaction so stale sessions
// free capacity before the capacity check. The court row lock is taken
// before counting, which total-orders concurrent check-ins on the court.
func (m *Manager) CheckIn(ctx context.Context, userID, courtID int64) (*occupancy.CheckInResult, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning check-in transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := m.sweepExpired(ctx, tx); err != nil {
		return nil, err
	}

	// Prevent double check-in.
	var exists int
	err = tx.QueryRowContext(ctx, activeSessionExistsQuery, userID).Scan(&exists)
	if err == nil {
		return nil, occupancy.ErrAlreadyCheckedIn
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("checking for active session: %w", err)
	}

	// Lock the court row to serialize capacity checks.
	var maxCapacity int
	err = tx.QueryRowContext(ctx, lockCourtQuery, courtID).Scan(&maxCapacity)
	if err == sql.ErrNoRows {
		return nil, occupancy.ErrCourtNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("locking court row: %w", err)
	}

	var currentPlayers int
	if err := tx.QueryRowContext(ctx, countActiveQuery, courtID).Scan(&currentPlayers); err != nil {
		return nil, fmt.Errorf("counting active sessions: %w", err)
	}
	if currentPlayers >= maxCapacity {
		return nil, occupancy.ErrCourtFull
	}

	if _, err := tx.ExecContext(ctx, insertSessionQuery, userID, courtID); err != nil {
		return nil, fmt.Errorf("inserting session: %w", err)
	}

	newCount := currentPlayers + 1
	status := occupancy.StatusFor(newCount, maxCapacity)
	if _, err := tx.ExecContext(ctx, updateStatusQuery, string(status), courtID); err != nil {
		return nil, fmt.Errorf("updating court status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing check-in: %w", err)
	}

	return &occupancy.CheckInResult{
		CurrentPlayers: newCount,
		MaxCapacity:    maxCapacity,
		Status:         status,
	}, nil
}

// CheckOut closes the user's active session and refreshes the court's
// status from the remaining count. A second call with no active session
// deterministically fails with ErrNoActiveSession.
func (m *Manager) CheckOut(ctx context.Context, userID int64) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning check-out transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var courtID int64
	err = tx.QueryRowContext(ctx, closeActiveSessionQuery, userID).Scan(&courtID)
	if err == sql.ErrNoRows {
		return occupancy.ErrNoActiveSession
	}
	if err != nil {
		return fmt.Errorf("closing active session: %w", err)
	}

	var remaining int
	if err := tx.QueryRowContext(ctx, countActiveQuery, courtID).Scan(&remaining); err != nil {
		return fmt.Errorf("counting remaining sessions: %w", err)
	}

	var maxCapacity int
	if err := tx.QueryRowContext(ctx, courtCapacityQuery, courtID).Scan(&maxCapacity); err != nil {
		return fmt.Errorf("reading court capacity: %w", err)
	}

	status := occupancy.StatusFor(remaining, maxCapacity)
	if _, err := tx.ExecContext(ctx, updateStatusQuery, string(status), courtID); err != nil {
		return fmt.Errorf("updating court status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing check-out: %w", err)
	}
	return nil
}

// CourtStatus returns court metadata, the live active count, and the player
// list. The sweep runs first so the count reflects the timeout, and the
// stored status is refreshed when the sweep left it stale.
func (m *Manager) CourtStatus(ctx context.Context, courtID int64) (*occupancy.CourtStatusResult, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning status transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := m.sweepExpired(ctx, tx); err != nil {
		return nil, err
	}

	var name string
	var maxCapacity int
	var stored string
	err = tx.QueryRowContext(ctx, courtInfoQuery, courtID).Scan(&name, &maxCapacity, &stored)
	if err == sql.ErrNoRows {
		return nil, occupancy.ErrCourtNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading court: %w", err)
	}

	rows, err := tx.QueryContext(ctx, activePlayersQuery, courtID)
	if err != nil {
		return nil, fmt.Errorf("listing active players: %w", err)
	}
	defer func() { _ = rows.Close() }()

	players := make([]occupancy.Player, 0, maxCapacity)
	for rows.Next() {
		var p occupancy.Player
		if err := rows.Scan(&p.FirstName, &p.LastName); err != nil {
			return nil, fmt.Errorf("scanning player row: %w", err)
		}
		players = append(players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating player rows: %w", err)
	}

	status := occupancy.StatusFor(len(players), maxCapacity)
	if string(status) != stored {
		if _, err := tx.ExecContext(ctx, updateStatusQuery, string(status), courtID); err != nil {
			return nil, fmt.Errorf("refreshing court status: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing status read: %w", err)
	}

	return &occupancy.CourtStatusResult{
		CourtName:      name,
		Status:         status,
		MaxCapacity:    maxCapacity,
		CurrentPlayers: len(players),
		Players:        players,
	}, nil
}

// ListCourts returns all courts matching the filter with their live active
// counts. Read-only; counts may be slightly stale relative to in-flight
// transactions.
func (m *Manager) ListCourts(ctx context.Context, filter occupancy.ListFilter) ([]occupancy.CourtSummary, error) {
	qb := psq.Select(
		"c.id", "c.name", "c.max_capacity", "c.status",
		`COUNT(s.id) FILTER (WHERE s.check_out_at IS NULL)`,
	).
		From(`"Courts" c`).
		LeftJoin(`"Sessions" s ON s.court_id = c.id`).
		GroupBy("c.id", "c.name", "c.max_capacity", "c.status").
		OrderBy("c.id")

	if filter.Status != "" {
		qb = qb.Where(sq.Eq{"c.status": string(filter.Status)})
	}
	if filter.NameQuery != "" {
		qb = qb.Where(sq.ILike{"c.name": "%" + filter.NameQuery + "%"})
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building court listing query: %w", err)
	}

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing courts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var courts []occupancy.CourtSummary
	for rows.Next() {
		var c occupancy.CourtSummary
		var status string
		if err := rows.Scan(&c.ID, &c.Name, &c.MaxCapacity, &status, &c.CurrentPlayers); err != nil {
			return nil, fmt.Errorf("scanning court row: %w", err)
		}
		c.Status = occupancy.Status(status)
		courts = append(courts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating court rows: %w", err)
	}
	return courts, nil
}

// Sweep closes expired sessions in its own transaction and refreshes the
// stored status of every court it touched, bounding the staleness window
// the lazy in-operation sweep leaves behind.
func (m *Manager) Sweep(ctx context.Context) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning sweep transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, sweepReturningQuery, m.interval())
	if err != nil {
		return fmt.Errorf("sweeping expired sessions: %w", err)
	}

	touched := make(map[int64]struct{})
	for rows.Next() {
		var courtID int64
		if err := rows.Scan(&courtID); err != nil {
			_ = rows.Close()
			return fmt.Errorf("scanning swept session: %w", err)
		}
		touched[courtID] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return fmt.Errorf("iterating swept sessions: %w", err)
	}
	_ = rows.Close()

	for courtID := range touched {
		var maxCapacity int
		if err := tx.QueryRowContext(ctx, courtCapacityQuery, courtID).Scan(&maxCapacity); err != nil {
			return fmt.Errorf("reading court capacity: %w", err)
		}
		var remaining int
		if err := tx.QueryRowContext(ctx, countActiveQuery, courtID).Scan(&remaining); err != nil {
			return fmt.Errorf("counting remaining sessions: %w", err)
		}
		status := occupancy.StatusFor(remaining, maxCapacity)
		if _, err := tx.ExecContext(ctx, updateStatusQuery, string(status), courtID); err != nil {
			return fmt.Errorf("refreshing court status: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing sweep: %w", err)
	}
	return nil
}

// StartSweepRoutine starts a background goroutine that periodically closes
// expired sessions. The goroutine is stopped when Close is called.
func (m *Manager) StartSweepRoutine(interval time.Duration) {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan struct{})

	go func() {
		defer close(m.done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := m.Sweep(ctx); err != nil {
					slog.Warn("expiry sweep failed", "error", err)
				}
			}
		}
	}()
}

// Close stops the sweep goroutine and waits for it to exit.
// It is safe to call Close even if StartSweepRoutine was never called.
func (m *Manager) Close() error {
	if m.cancel != nil {
		m.cancel()
		<-m.done
	}
	return nil
}

// Verify interface compliance.
var _ occupancy.Manager = (*Manager)(nil)
