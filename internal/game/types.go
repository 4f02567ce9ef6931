// internal/game/types.go
//
// Core type definitions for the Hit & Blow engine.
// Defines:
//   - Symbol / Palette: the pins a secret and a guess are made of.
//   - Hint / HintRow: per-pin outcome of judging a guess, always sorted.
//   - HistoryEntry: one confirmed turn.
//   - Rules: palette, secret length and number of turns for a session.

package game

import (
	"fmt"
	"slices"
)

// Symbol is one pin. Only equality matters; the zero value marks an empty slot.
type Symbol string

// Empty is the placeholder for an unfilled slot in a guess under construction.
const Empty Symbol = ""

// Palette is the ordered set of symbols available to a session.
// Members are unique and never Empty; build one with NewPalette.
type Palette []Symbol

// NewPalette validates and returns a palette.
// Empty or repeated symbols are rejected with ErrInvalidPalette.
func NewPalette(symbols ...Symbol) (Palette, error) {
	seen := make(map[Symbol]struct{}, len(symbols))
	out := make(Palette, 0, len(symbols))
	for _, s := range symbols {
		if s == Empty {
			return nil, fmt.Errorf("%w: empty symbol", ErrInvalidPalette)
		}
		if _, dup := seen[s]; dup {
			return nil, fmt.Errorf("%w: duplicate symbol %q", ErrInvalidPalette, s)
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out, nil
}

// DefaultPalette returns the six classic pins.
func DefaultPalette() Palette {
	return Palette{"blue", "green", "orange", "pink", "red", "yellow"}
}

// Contains reports whether s is a member of the palette.
func (p Palette) Contains(s Symbol) bool {
	return s != Empty && slices.Contains(p, s)
}

// Secret is the hidden answer: distinct symbols in a fixed order.
type Secret []Symbol

// Hint classifies one guessed pin. The declaration order (Blow < Hit < None)
// is the canonical output order of a HintRow and carries no gameplay meaning.
type Hint int

const (
	Blow Hint = iota // present in the secret, different position
	Hit              // same symbol, same position
	None             // absent from the secret
)

var hintNames = [...]string{Blow: "blow", Hit: "hit", None: "none"}

func (h Hint) String() string {
	if h < Blow || h > None {
		return fmt.Sprintf("Hint(%d)", int(h))
	}
	return hintNames[h]
}

// MarshalText encodes a hint as its lowercase name.
func (h Hint) MarshalText() ([]byte, error) {
	if h < Blow || h > None {
		return nil, fmt.Errorf("game: invalid hint %d", int(h))
	}
	return []byte(hintNames[h]), nil
}

// UnmarshalText decodes "blow", "hit" or "none".
func (h *Hint) UnmarshalText(b []byte) error {
	for i, name := range hintNames {
		if name == string(b) {
			*h = Hint(i)
			return nil
		}
	}
	return fmt.Errorf("game: unknown hint %q", b)
}

// HintRow is the sorted result of judging one guess.
// It tells how many pins hit or blew, never which ones.
type HintRow []Hint

// Won reports whether every hint is a Hit.
func (r HintRow) Won() bool {
	if len(r) == 0 {
		return false
	}
	for _, h := range r {
		if h != Hit {
			return false
		}
	}
	return true
}

// Counts tallies hits and blows.
func (r HintRow) Counts() (hits, blows int) {
	for _, h := range r {
		switch h {
		case Hit:
			hits++
		case Blow:
			blows++
		}
	}
	return hits, blows
}

// HistoryEntry records one confirmed turn. Entries are never modified once appended.
type HistoryEntry struct {
	Turn  int      `json:"turn"`
	Guess []Symbol `json:"guess"`
	Hints HintRow  `json:"hints"`
}

func (e HistoryEntry) clone() HistoryEntry {
	e.Guess = slices.Clone(e.Guess)
	e.Hints = slices.Clone(e.Hints)
	return e
}

// Rules fixes the shape of a session.
type Rules struct {
	Palette  Palette `json:"palette" yaml:"palette"`
	Length   int     `json:"length" yaml:"length"`
	MaxTurns int     `json:"maxTurns" yaml:"maxTurns"`
}

const (
	defaultLength   = 4
	defaultMaxTurns = 10
)

// DefaultRules returns six pins, a secret of four and ten tries.
func DefaultRules() Rules {
	return Rules{Palette: DefaultPalette(), Length: defaultLength, MaxTurns: defaultMaxTurns}
}

// Validate checks the turn budget and the palette. Length against palette size is
// left to Generate, which reports it as a GenerationError.
func (r Rules) Validate() error {
	if r.MaxTurns < 1 {
		return fmt.Errorf("%w: maxTurns must be at least 1, got %d", ErrInvalidRules, r.MaxTurns)
	}
	if r.Length < 1 {
		return fmt.Errorf("%w: length must be at least 1, got %d", ErrInvalidRules, r.Length)
	}
	if _, err := NewPalette(r.Palette...); err != nil {
		return err
	}
	return nil
}
