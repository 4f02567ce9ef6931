package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/hitblow/internal/game"
)

func newEntry(t *testing.T) *Entry {
	t.Helper()
	s, err := game.NewGame(game.NewSeededRand([32]byte{1}), game.DefaultRules())
	require.NoError(t, err)
	return &Entry{Session: s, Mode: "free", AnonID: "anon"}
}

func TestSaveUpdateDelete(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	e := newEntry(t)
	require.NoError(t, st.Save(ctx, e))
	assert.Equal(t, 1, st.Len())

	var seen string
	require.NoError(t, st.Update(ctx, e.Session.ID(), func(got *Entry) error {
		seen = got.AnonID
		return nil
	}))
	assert.Equal(t, "anon", seen)

	boom := errors.New("boom")
	assert.ErrorIs(t, st.Update(ctx, e.Session.ID(), func(*Entry) error { return boom }), boom)

	assert.ErrorIs(t, st.Update(ctx, "missing", func(*Entry) error { return nil }), ErrNotFound)
	require.NoError(t, st.Delete(ctx, e.Session.ID()))
	assert.ErrorIs(t, st.Delete(ctx, e.Session.ID()), ErrNotFound)
	assert.Error(t, st.Save(ctx, nil))
}

func TestUpdate_SerializesEvents(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	e := newEntry(t)
	require.NoError(t, st.Save(ctx, e))
	id := e.Session.ID()

	// Concurrent selections on one session must never interleave inside the builder.
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = st.Update(ctx, id, func(e *Entry) error {
				if _, err := e.Session.SelectPosition(i % 4); err != nil {
					return err
				}
				_, err := e.Session.SelectSymbol(game.DefaultPalette()[i%6])
				return err
			})
		}(i)
	}
	wg.Wait()

	require.NoError(t, st.Update(ctx, id, func(e *Entry) error {
		seen := map[game.Symbol]bool{}
		for _, s := range e.Session.Snapshot() {
			if s == game.Empty {
				continue
			}
			assert.False(t, seen[s], "duplicate %s", s)
			seen[s] = true
		}
		return nil
	}))
}

func TestUpdate_CanceledContext(t *testing.T) {
	st := NewMemoryStore()
	e := newEntry(t)
	require.NoError(t, st.Save(context.Background(), e))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, st.Update(ctx, e.Session.ID(), func(*Entry) error { return nil }), context.Canceled)
}

func TestSweep(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore().(*memory)
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	m.now = func() time.Time { return base }
	old := newEntry(t)
	require.NoError(t, m.Save(ctx, old))

	m.now = func() time.Time { return base.Add(time.Hour) }
	fresh := newEntry(t)
	require.NoError(t, m.Save(ctx, fresh))

	assert.Equal(t, 1, m.Sweep(ctx, base.Add(30*time.Minute)))
	assert.Equal(t, 1, m.Len())
	assert.NoError(t, m.Update(ctx, fresh.Session.ID(), func(*Entry) error { return nil }))
}
