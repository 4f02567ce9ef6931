// internal/game/errors.go
//
// Errors returned by the game package. Callers match with errors.Is / errors.As.

package game

import (
	"errors"
	"fmt"
)

// Sentinel errors. Typed errors below unwrap to ErrGeneration / ErrInvalidGuess.
var (
	ErrGeneration              = errors.New("game: cannot generate secret")
	ErrInvalidGuess            = errors.New("game: invalid guess")
	ErrInvalidPalette          = errors.New("game: invalid palette")
	ErrInvalidRules            = errors.New("game: invalid rules")
	ErrInvalidPosition         = errors.New("game: position out of range")
	ErrUnknownSymbol           = errors.New("game: symbol not in palette")
	ErrNotAwaitingConfirmation = errors.New("game: no complete guess awaiting confirmation")
	ErrGameOver                = errors.New("game: session finished")
	ErrUnknownEvent            = errors.New("game: unknown event")
)

// GenerationError reports a secret length the palette cannot satisfy.
type GenerationError struct {
	Length      int
	PaletteSize int
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("game: cannot generate secret of length %d from %d symbols", e.Length, e.PaletteSize)
}

func (e *GenerationError) Unwrap() error { return ErrGeneration }

// GuessFault says why a guess was rejected.
type GuessFault int

const (
	WrongLength GuessFault = iota + 1
	DuplicateSymbol
)

func (f GuessFault) String() string {
	switch f {
	case WrongLength:
		return "wrong_length"
	case DuplicateSymbol:
		return "duplicate_symbol"
	default:
		return "unknown"
	}
}

// InvalidGuessError is returned by Judge for malformed guesses.
type InvalidGuessError struct {
	Fault GuessFault
	// Want/Got are set for WrongLength; Symbol for DuplicateSymbol.
	Want, Got int
	Symbol    Symbol
}

func (e *InvalidGuessError) Error() string {
	switch e.Fault {
	case WrongLength:
		return fmt.Sprintf("game: invalid guess: want %d symbols, got %d", e.Want, e.Got)
	case DuplicateSymbol:
		return fmt.Sprintf("game: invalid guess: symbol %q repeated", e.Symbol)
	default:
		return "game: invalid guess"
	}
}

func (e *InvalidGuessError) Unwrap() error { return ErrInvalidGuess }
