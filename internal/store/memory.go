// internal/store/memory.go
//
// In-memory registry of live game sessions.
//
// Characteristics:
//   - Entries are keyed by session ID.
//   - Each entry has its own mutex; Update runs fn while holding it, so
//     events on one session are serialized while other sessions proceed.
//   - The map itself is guarded by an RWMutex.
//   - Sweep drops entries idle since a cutoff; state is lost on restart.
package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robalobadob/hitblow/internal/game"
)

// ErrNotFound is returned for IDs that are not (or no longer) in the store.
var ErrNotFound = errors.New("store: session not found")

// Entry is a live session plus who is playing it.
type Entry struct {
	Session *game.Session
	Mode    string // "free" | "daily"
	UserID  string
	AnonID  string
	Date    string // daily mode only
	Touched time.Time
}

// Store is the registry interface used by the HTTP layer.
type Store interface {
	// Save adds or replaces an entry.
	Save(ctx context.Context, e *Entry) error

	// Update runs fn with exclusive access to the entry.
	// Returns ErrNotFound for unknown IDs; otherwise fn's error.
	Update(ctx context.Context, id string, fn func(e *Entry) error) error

	// Delete removes an entry; ErrNotFound if it is absent.
	Delete(ctx context.Context, id string) error

	// Sweep removes entries last touched before cutoff and returns how many.
	Sweep(ctx context.Context, cutoff time.Time) int

	// Len reports the number of live entries.
	Len() int
}

type slot struct {
	mu sync.Mutex
	e  *Entry
}

type memory struct {
	mu    sync.RWMutex
	slots map[string]*slot
	now   func() time.Time
}

// NewMemoryStore constructs an empty in-memory Store.
func NewMemoryStore() Store {
	return &memory{slots: make(map[string]*slot), now: time.Now}
}

// Save stamps e as touched and stores it under its session ID, replacing any
// earlier entry with that ID.
func (m *memory) Save(ctx context.Context, e *Entry) error {
	if e == nil || e.Session == nil {
		return errors.New("store: nil session")
	}
	e.Touched = m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots[e.Session.ID()] = &slot{e: e}
	return nil
}

// Update looks up the slot under the map read lock, then runs fn holding only
// the slot's mutex. The entry is marked touched before fn runs.
func (m *memory) Update(ctx context.Context, id string, fn func(e *Entry) error) error {
	m.mu.RLock()
	s, ok := m.slots[id]
	m.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.e.Touched = m.now()
	return fn(s.e)
}

// Delete removes the slot for id.
func (m *memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.slots[id]; !ok {
		return ErrNotFound
	}
	delete(m.slots, id)
	return nil
}

// Sweep walks every slot under the map write lock. A slot busy in Update is
// waited for, so an entry touched during the sweep survives.
func (m *memory) Sweep(ctx context.Context, cutoff time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, s := range m.slots {
		s.mu.Lock()
		stale := s.e.Touched.Before(cutoff)
		s.mu.Unlock()
		if stale {
			delete(m.slots, id)
			n++
		}
	}
	return n
}

// Len returns the number of stored entries.
func (m *memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.slots)
}
