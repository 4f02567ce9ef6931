// internal/game/engine.go
//
// Secret generation and guess judging.
// Responsibilities:
//   - Draw a duplicate-free secret uniformly from all ordered arrangements.
//   - Validate a guess (length first, then duplicates).
//   - Score a guess with the two-pass hit/blow algorithm and sort the hints.
//
// Randomness comes from math/rand/v2 generators passed in by the caller, so the
// daily challenge can replay a seeded draw while free play uses crypto seeding.
package game

import (
	"crypto/rand"
	mrand "math/rand/v2"
	"slices"
)

// NewRand returns a ChaCha8 generator seeded from crypto/rand. If the system
// source fails it falls back to a PCG seeded from the runtime's global generator.
func NewRand() *mrand.Rand {
	var seed [32]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return mrand.New(mrand.NewPCG(mrand.Uint64(), mrand.Uint64()))
	}
	return NewSeededRand(seed)
}

// NewSeededRand returns a deterministic ChaCha8 generator.
func NewSeededRand(seed [32]byte) *mrand.Rand {
	return mrand.New(mrand.NewChaCha8(seed))
}

// Generate picks one of the n!/(n-length)! ordered arrangements of length distinct
// symbols from palette, each with equal probability.
func Generate(rng *mrand.Rand, palette Palette, length int) (Secret, error) {
	n := len(palette)
	if length < 0 || length > n || (n == 0 && length > 0) {
		return nil, &GenerationError{Length: length, PaletteSize: n}
	}
	if rng == nil {
		rng = NewRand()
	}

	// Partial Fisher–Yates: the first length slots of a shuffled copy.
	pool := slices.Clone(palette)
	for i := 0; i < length; i++ {
		j := i + rng.IntN(n-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return Secret(pool[:length:length]), nil
}

// Judge scores guess against secret.
//
// Validation, first failure wins:
//   - len(guess) must equal len(secret)  → WrongLength
//   - guess symbols must be distinct      → DuplicateSymbol
//
// Scoring:
//
//	Pass 1: exact matches are Hit and consume their secret slot.
//	Pass 2: every other guess symbol takes the first unconsumed secret slot holding
//	        the same symbol (scanning left to right) and becomes Blow; otherwise None.
//
// No secret slot is ever counted for two guess positions. The returned row is sorted
// Blow, Hit, None so positions are not revealed.
func Judge(secret Secret, guess []Symbol) (HintRow, error) {
	if len(guess) != len(secret) {
		return nil, &InvalidGuessError{Fault: WrongLength, Want: len(secret), Got: len(guess)}
	}
	seen := make(map[Symbol]struct{}, len(guess))
	for _, s := range guess {
		if _, dup := seen[s]; dup {
			return nil, &InvalidGuessError{Fault: DuplicateSymbol, Symbol: s}
		}
		seen[s] = struct{}{}
	}

	n := len(guess)
	row := make(HintRow, n)
	used := make([]bool, n)
	resolved := make([]bool, n)

	for i := 0; i < n; i++ {
		if guess[i] == secret[i] {
			row[i] = Hit
			used[i] = true
			resolved[i] = true
		}
	}

	for i := 0; i < n; i++ {
		if resolved[i] {
			continue
		}
		row[i] = None
		for j := 0; j < n; j++ {
			if !used[j] && secret[j] == guess[i] {
				row[i] = Blow
				used[j] = true
				break
			}
		}
	}

	slices.Sort(row)
	return row, nil
}
