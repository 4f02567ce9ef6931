// internal/game/builder.go
//
// Guess builder for one turn.
// Responsibilities:
//   - Accept position and symbol selections in either order.
//   - Commit a pair into the placement, evicting the symbol's earlier slot.
//   - Report completeness and hand out copies of the placement.

package game

import (
	"fmt"
	"slices"
)

// Pending is the half-made selection of a builder: a position, a symbol, or neither.
// Both are never set at once; the second half commits immediately.
type Pending struct {
	Position    int    `json:"position"`
	HasPosition bool   `json:"hasPosition"`
	Symbol      Symbol `json:"symbol,omitempty"`
}

// Builder assembles one turn's guess from two independent selection streams:
// "this position" and "this symbol", in either order. When both halves are pending
// the symbol is placed at the position and removed from wherever it sat before, so
// a symbol never occupies two slots.
//
// Selecting the value that is already pending again is a no-op; it neither commits
// nor clears anything.
//
// A Builder is not safe for concurrent use.
type Builder struct {
	palette Palette
	slots   []Symbol
	pending Pending
}

// NewBuilder returns an empty builder for guesses of the given length.
func NewBuilder(palette Palette, length int) *Builder {
	return &Builder{palette: palette, slots: make([]Symbol, length)}
}

// SelectPosition marks index as the pending position, or commits it together with
// an already pending symbol. It reports whether a placement was committed.
func (b *Builder) SelectPosition(index int) (bool, error) {
	if index < 0 || index >= len(b.slots) {
		return false, fmt.Errorf("%w: %d (length %d)", ErrInvalidPosition, index, len(b.slots))
	}
	if b.pending.Symbol != Empty {
		b.commit(index, b.pending.Symbol)
		return true, nil
	}
	b.pending.Position, b.pending.HasPosition = index, true
	return false, nil
}

// SelectSymbol is the mirror image of SelectPosition.
func (b *Builder) SelectSymbol(s Symbol) (bool, error) {
	if !b.palette.Contains(s) {
		return false, fmt.Errorf("%w: %q", ErrUnknownSymbol, s)
	}
	if b.pending.HasPosition {
		b.commit(b.pending.Position, s)
		return true, nil
	}
	b.pending.Symbol = s
	return false, nil
}

// commit places s at index, clearing s from any other slot, and drops the pending halves.
func (b *Builder) commit(index int, s Symbol) {
	for i, cur := range b.slots {
		if cur == s && i != index {
			b.slots[i] = Empty
		}
	}
	b.slots[index] = s
	b.ClearPending()
}

// ClearPending drops both pending halves without placing anything.
func (b *Builder) ClearPending() { b.pending = Pending{} }

// Pending returns the current half-made selection.
func (b *Builder) Pending() Pending { return b.pending }

// IsComplete reports whether every slot holds a symbol.
func (b *Builder) IsComplete() bool {
	return !slices.Contains(b.slots, Empty)
}

// Snapshot copies the placement, Empty marking unfilled slots.
func (b *Builder) Snapshot() []Symbol { return slices.Clone(b.slots) }

// Guess returns the placement when it is complete.
func (b *Builder) Guess() ([]Symbol, bool) {
	if !b.IsComplete() {
		return nil, false
	}
	return b.Snapshot(), true
}

// Reset empties every slot and the pending selection.
func (b *Builder) Reset() {
	clear(b.slots)
	b.ClearPending()
}
