// Package keymap translates raw key presses into game events.
//
// The layout follows the classic console board: the number row picks a board
// position, the top letter row picks a pin, Enter confirms, Backspace drops a
// half-made selection and Esc quits. While a complete guess waits for
// confirmation, y and n answer the prompt before anything else is considered.
//
// The game package never sees keys; this table is the only place they exist.
package keymap

import (
	"errors"
	"fmt"

	"github.com/robalobadob/hitblow/internal/game"
)

const (
	KeyEnter     = '\r'
	KeyEscape    = 0x1b
	KeyBackspace = 0x7f
)

var (
	positionKeys = []rune{'1', '2', '3', '4', '5', '6', '7', '8', '9', '0'}
	symbolKeys   = []rune{'q', 'w', 'e', 'r', 't', 'y', 'u', 'i', 'o', 'p'}
)

// ErrLayoutTooSmall is returned when the board or palette has more entries than keys.
var ErrLayoutTooSmall = errors.New("keymap: not enough keys")

// Binding is one row of the table, for help screens.
type Binding struct {
	Key      string         `json:"key"`
	Kind     game.EventKind `json:"kind"`
	Position int            `json:"position,omitempty"`
	Symbol   game.Symbol    `json:"symbol,omitempty"`
}

// Keymap maps keys to events for one board shape.
type Keymap struct {
	positions map[rune]int
	symbols   map[rune]game.Symbol
	bindings  []Binding
}

// New builds the table for a palette and secret length.
func New(palette game.Palette, length int) (*Keymap, error) {
	if length > len(positionKeys) {
		return nil, fmt.Errorf("%w: %d positions, %d keys", ErrLayoutTooSmall, length, len(positionKeys))
	}
	if len(palette) > len(symbolKeys) {
		return nil, fmt.Errorf("%w: %d symbols, %d keys", ErrLayoutTooSmall, len(palette), len(symbolKeys))
	}

	k := &Keymap{
		positions: make(map[rune]int, length),
		symbols:   make(map[rune]game.Symbol, len(palette)),
	}
	for i := 0; i < length; i++ {
		k.positions[positionKeys[i]] = i
		k.bindings = append(k.bindings, Binding{Key: string(positionKeys[i]), Kind: game.EventSelectPosition, Position: i})
	}
	for i, s := range palette {
		k.symbols[symbolKeys[i]] = s
		k.bindings = append(k.bindings, Binding{Key: string(symbolKeys[i]), Kind: game.EventSelectSymbol, Symbol: s})
	}
	k.bindings = append(k.bindings,
		Binding{Key: "enter", Kind: game.EventConfirm},
		Binding{Key: "backspace", Kind: game.EventClearPending},
		Binding{Key: "esc", Kind: game.EventAbort},
	)
	return k, nil
}

// Translate returns the event for key, or false for an unbound key.
func (k *Keymap) Translate(key rune, awaitingConfirmation bool) (game.Event, bool) {
	if awaitingConfirmation {
		switch key {
		case 'y', 'Y':
			return game.Event{Kind: game.EventConfirm}, true
		case 'n', 'N':
			return game.Event{Kind: game.EventDecline}, true
		}
	}
	switch key {
	case KeyEnter, '\n':
		return game.Event{Kind: game.EventConfirm}, true
	case KeyEscape:
		return game.Event{Kind: game.EventAbort}, true
	case KeyBackspace, '\b':
		return game.Event{Kind: game.EventClearPending}, true
	}
	if i, ok := k.positions[key]; ok {
		return game.Event{Kind: game.EventSelectPosition, Position: i}, true
	}
	if s, ok := k.symbols[key]; ok {
		return game.Event{Kind: game.EventSelectSymbol, Symbol: s}, true
	}
	return game.Event{}, false
}

// ParseKey turns a key name from a client ("q", "enter", "esc", "backspace") into a rune.
func ParseKey(name string) (rune, bool) {
	switch name {
	case "enter", "return":
		return KeyEnter, true
	case "esc", "escape":
		return KeyEscape, true
	case "backspace", "delete":
		return KeyBackspace, true
	}
	r := []rune(name)
	if len(r) != 1 {
		return 0, false
	}
	return r[0], true
}

// Bindings lists the table in display order.
func (k *Keymap) Bindings() []Binding {
	return append([]Binding(nil), k.bindings...)
}
