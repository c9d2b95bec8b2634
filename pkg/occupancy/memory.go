package occupancy

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryCourt seeds a court into a MemoryManager.
type MemoryCourt struct {
	ID          int64
	Name        string
	MaxCapacity int
}

// memorySession is one check-in record held by a MemoryManager.
type memorySession struct {
	userID     int64
	courtID    int64
	checkInAt  time.Time
	checkOutAt *time.Time
}

// memoryCourt is a court row held by a MemoryManager.
type memoryCourt struct {
	name        string
	maxCapacity int
	status      Status
}

// MemoryManager implements Manager with an in-memory map guarded by a
// mutex. It is used in development mode and by tests that exercise the
// occupancy invariants without a database; the mutex plays the role the
// court row lock plays in the PostgreSQL implementation.
type MemoryManager struct {
	mu       sync.Mutex
	courts   map[int64]*memoryCourt
	sessions []*memorySession
	players  map[int64]Player
	timeout  time.Duration
	now      func() time.Time
}

// NewMemoryManager creates an in-memory manager seeded with the given
// courts. A zero timeout defaults to DefaultSessionTimeout.
func NewMemoryManager(timeout time.Duration, courts ...MemoryCourt) *MemoryManager {
	if timeout == 0 {
		timeout = DefaultSessionTimeout
	}
	m := &MemoryManager{
		courts:  make(map[int64]*memoryCourt),
		players: make(map[int64]Player),
		timeout: timeout,
		now:     time.Now,
	}
	for _, c := range courts {
		m.courts[c.ID] = &memoryCourt{
			name:        c.Name,
			maxCapacity: c.MaxCapacity,
			status:      StatusOpen,
		}
	}
	return m
}

// SetClock replaces the manager's clock. Intended for expiry tests.
func (m *MemoryManager) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// RegisterPlayer records name fields for a user so status reads can list
// them; unregistered users appear with empty names.
func (m *MemoryManager) RegisterPlayer(userID int64, p Player) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.players[userID] = p
}

// sweepExpired closes sessions older than the timeout. Caller holds the lock.
func (m *MemoryManager) sweepExpired() {
	now := m.now()
	cutoff := now.Add(-m.timeout)
	for _, s := range m.sessions {
		if s.checkOutAt == nil && s.checkInAt.Before(cutoff) {
			t := now
			s.checkOutAt = &t
		}
	}
}

// activeCount counts active sessions on a court. Caller holds the lock.
func (m *MemoryManager) activeCount(courtID int64) int {
	n := 0
	for _, s := range m.sessions {
		if s.courtID == courtID && s.checkOutAt == nil {
			n++
		}
	}
	return n
}

// CheckIn opens an active session for the user on the court.
func (m *MemoryManager) CheckIn(_ context.Context, userID, courtID int64) (*CheckInResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sweepExpired()

	for _, s := range m.sessions {
		if s.userID == userID && s.checkOutAt == nil {
			return nil, ErrAlreadyCheckedIn
		}
	}

	court, ok := m.courts[courtID]
	if !ok {
		return nil, ErrCourtNotFound
	}

	current := m.activeCount(courtID)
	if current >= court.maxCapacity {
		return nil, ErrCourtFull
	}

	m.sessions = append(m.sessions, &memorySession{
		userID:    userID,
		courtID:   courtID,
		checkInAt: m.now(),
	})

	newCount := current + 1
	court.status = StatusFor(newCount, court.maxCapacity)

	return &CheckInResult{
		CurrentPlayers: newCount,
		MaxCapacity:    court.maxCapacity,
		Status:         court.status,
	}, nil
}

// CheckOut closes the user's active session.
func (m *MemoryManager) CheckOut(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var closed *memorySession
	for _, s := range m.sessions {
		if s.userID == userID && s.checkOutAt == nil {
			t := m.now()
			s.checkOutAt = &t
			closed = s
			break
		}
	}
	if closed == nil {
		return ErrNoActiveSession
	}

	court := m.courts[closed.courtID]
	court.status = StatusFor(m.activeCount(closed.courtID), court.maxCapacity)
	return nil
}

// CourtStatus returns court metadata, the live count, and the player list.
func (m *MemoryManager) CourtStatus(_ context.Context, courtID int64) (*CourtStatusResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sweepExpired()

	court, ok := m.courts[courtID]
	if !ok {
		return nil, ErrCourtNotFound
	}

	var active []*memorySession
	for _, s := range m.sessions {
		if s.courtID == courtID && s.checkOutAt == nil {
			active = append(active, s)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		return active[i].checkInAt.Before(active[j].checkInAt)
	})

	players := make([]Player, 0, len(active))
	for _, s := range active {
		players = append(players, m.players[s.userID])
	}

	court.status = StatusFor(len(players), court.maxCapacity)

	return &CourtStatusResult{
		CourtName:      court.name,
		Status:         court.status,
		MaxCapacity:    court.maxCapacity,
		CurrentPlayers: len(players),
		Players:        players,
	}, nil
}

// ListCourts returns all courts matching the filter with live counts.
func (m *MemoryManager) ListCourts(_ context.Context, filter ListFilter) ([]CourtSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]int64, 0, len(m.courts))
	for id := range m.courts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var courts []CourtSummary
	for _, id := range ids {
		c := m.courts[id]
		if filter.Status != "" && c.status != filter.Status {
			continue
		}
		if filter.NameQuery != "" &&
			!strings.Contains(strings.ToLower(c.name), strings.ToLower(filter.NameQuery)) {
			continue
		}
		courts = append(courts, CourtSummary{
			ID:             id,
			Name:           c.name,
			MaxCapacity:    c.maxCapacity,
			Status:         c.status,
			CurrentPlayers: m.activeCount(id),
		})
	}
	return courts, nil
}

// Verify interface compliance.
var _ Manager = (*MemoryManager)(nil)
