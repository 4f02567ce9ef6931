// internal/game/session.go
//
// Turn manager for a single Hit & Blow session.
// Responsibilities:
//   - Hold the secret drawn once at start, the active Builder and the history.
//   - Route selection events into the builder and track completeness.
//   - Judge a confirmed guess, record it and decide won / lost / next turn.
//   - Accept an abort from any live state.
//
// State machine:
//
//	AwaitingGuess(t) --guess complete--> AwaitingConfirmation
//	AwaitingConfirmation --edit leaves a hole--> AwaitingGuess(t)
//	AwaitingConfirmation --decline--> AwaitingGuess(t)  (placement kept)
//	AwaitingConfirmation --confirm--> Won | Lost | AwaitingGuess(t+1)
//	any live state --abort--> Aborted
//
// Won, Lost and Aborted are terminal; every event after that fails with ErrGameOver.
package game

import (
	"fmt"
	mrand "math/rand/v2"
	"slices"
	"time"

	"github.com/google/uuid"
)

// State is the turn manager's position in the game.
type State int

const (
	StateAwaitingGuess State = iota
	StateAwaitingConfirmation
	StateWon
	StateLost
	StateAborted
)

var stateNames = [...]string{
	StateAwaitingGuess:        "awaiting_guess",
	StateAwaitingConfirmation: "awaiting_confirmation",
	StateWon:                  "won",
	StateLost:                 "lost",
	StateAborted:              "aborted",
}

func (s State) String() string {
	if s < StateAwaitingGuess || s > StateAborted {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// MarshalText encodes a state as its snake_case name.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *State) UnmarshalText(b []byte) error {
	for st, name := range stateNames {
		if name == string(b) {
			*s = State(st)
			return nil
		}
	}
	return fmt.Errorf("game: unknown state %q", b)
}

// Terminal reports whether no further events are accepted.
func (s State) Terminal() bool {
	return s == StateWon || s == StateLost || s == StateAborted
}

// EventKind names the inputs a session understands.
type EventKind int

const (
	EventSelectPosition EventKind = iota + 1
	EventSelectSymbol
	EventClearPending
	EventConfirm
	EventDecline
	EventAbort
)

// Event is one abstract player input. Position is used by EventSelectPosition and
// Symbol by EventSelectSymbol.
type Event struct {
	Kind     EventKind
	Position int
	Symbol   Symbol
}

// Outcome describes the result of one event.
type Outcome struct {
	State     State         `json:"state"`
	Turn      int           `json:"turn"`
	Committed bool          `json:"committed"`
	Hints     HintRow       `json:"hints,omitempty"`
	Entry     *HistoryEntry `json:"entry,omitempty"`
}

// Session is one game from secret generation to a terminal state.
// It is not safe for concurrent use; callers serialise events.
type Session struct {
	id        string
	startedAt time.Time
	rules     Rules
	secret    Secret
	builder   *Builder
	state     State
	turn      int
	history   []HistoryEntry
}

// NewGame validates rules, draws a secret with rng and starts a session.
// A length the palette cannot satisfy fails with *GenerationError.
func NewGame(rng *mrand.Rand, rules Rules) (*Session, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	secret, err := Generate(rng, rules.Palette, rules.Length)
	if err != nil {
		return nil, err
	}
	return NewSession(rules, secret)
}

// NewSession starts a session around a known secret, e.g. a daily puzzle or a test.
func NewSession(rules Rules, secret Secret) (*Session, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	if len(secret) != rules.Length {
		return nil, &GenerationError{Length: rules.Length, PaletteSize: len(rules.Palette)}
	}
	seen := make(map[Symbol]struct{}, len(secret))
	for _, s := range secret {
		if _, dup := seen[s]; dup || !rules.Palette.Contains(s) {
			return nil, fmt.Errorf("%w: secret symbol %q", ErrInvalidRules, s)
		}
		seen[s] = struct{}{}
	}
	return &Session{
		id:        uuid.NewString(),
		startedAt: time.Now().UTC(),
		rules:     rules,
		secret:    slices.Clone(secret),
		builder:   NewBuilder(rules.Palette, rules.Length),
		state:     StateAwaitingGuess,
		turn:      1,
	}, nil
}

// SelectPosition routes a position selection into the builder.
func (s *Session) SelectPosition(index int) (Outcome, error) {
	if err := s.live(); err != nil {
		return s.outcome(), err
	}
	committed, err := s.builder.SelectPosition(index)
	if err != nil {
		return s.outcome(), err
	}
	return s.afterSelection(committed), nil
}

// SelectSymbol routes a symbol selection into the builder.
func (s *Session) SelectSymbol(sym Symbol) (Outcome, error) {
	if err := s.live(); err != nil {
		return s.outcome(), err
	}
	committed, err := s.builder.SelectSymbol(sym)
	if err != nil {
		return s.outcome(), err
	}
	return s.afterSelection(committed), nil
}

// ClearPending cancels a half-made selection.
func (s *Session) ClearPending() (Outcome, error) {
	if err := s.live(); err != nil {
		return s.outcome(), err
	}
	s.builder.ClearPending()
	return s.outcome(), nil
}

func (s *Session) afterSelection(committed bool) Outcome {
	if s.builder.IsComplete() {
		s.state = StateAwaitingConfirmation
	} else {
		s.state = StateAwaitingGuess
	}
	o := s.outcome()
	o.Committed = committed
	return o
}

// Confirm judges the complete guess and records the turn.
func (s *Session) Confirm() (Outcome, error) {
	if err := s.live(); err != nil {
		return s.outcome(), err
	}
	if s.state != StateAwaitingConfirmation {
		return s.outcome(), ErrNotAwaitingConfirmation
	}
	guess, ok := s.builder.Guess()
	if !ok {
		s.state = StateAwaitingGuess
		return s.outcome(), ErrNotAwaitingConfirmation
	}
	hints, err := Judge(s.secret, guess)
	if err != nil {
		return s.outcome(), err
	}

	entry := HistoryEntry{Turn: s.turn, Guess: guess, Hints: hints}
	s.history = append(s.history, entry.clone())

	switch {
	case hints.Won():
		s.state = StateWon
	case s.turn >= s.rules.MaxTurns:
		s.state = StateLost
	default:
		s.turn++
		s.builder.Reset()
		s.state = StateAwaitingGuess
	}

	o := s.outcome()
	o.Hints = slices.Clone(hints)
	o.Entry = &entry
	return o, nil
}

// Decline returns to editing with the placement intact.
func (s *Session) Decline() (Outcome, error) {
	if err := s.live(); err != nil {
		return s.outcome(), err
	}
	if s.state != StateAwaitingConfirmation {
		return s.outcome(), ErrNotAwaitingConfirmation
	}
	s.state = StateAwaitingGuess
	return s.outcome(), nil
}

// Abort ends the session. Recorded history survives; the turn in progress does not.
func (s *Session) Abort() (Outcome, error) {
	if err := s.live(); err != nil {
		return s.outcome(), err
	}
	s.builder.Reset()
	s.state = StateAborted
	return s.outcome(), nil
}

// Apply dispatches an Event to the matching method.
func (s *Session) Apply(ev Event) (Outcome, error) {
	switch ev.Kind {
	case EventSelectPosition:
		return s.SelectPosition(ev.Position)
	case EventSelectSymbol:
		return s.SelectSymbol(ev.Symbol)
	case EventClearPending:
		return s.ClearPending()
	case EventConfirm:
		return s.Confirm()
	case EventDecline:
		return s.Decline()
	case EventAbort:
		return s.Abort()
	default:
		return s.outcome(), fmt.Errorf("%w: %d", ErrUnknownEvent, ev.Kind)
	}
}

func (s *Session) live() error {
	if s.state.Terminal() {
		return fmt.Errorf("%w: %s", ErrGameOver, s.state)
	}
	return nil
}

func (s *Session) outcome() Outcome {
	return Outcome{State: s.state, Turn: s.turn}
}

func (s *Session) ID() string              { return s.id }
func (s *Session) StartedAt() time.Time    { return s.startedAt }
func (s *Session) Rules() Rules            { return s.rules }
func (s *Session) State() State            { return s.state }
func (s *Session) Turn() int               { return s.turn }
func (s *Session) Snapshot() []Symbol      { return s.builder.Snapshot() }
func (s *Session) Pending() Pending        { return s.builder.Pending() }

// History returns a deep copy of the recorded turns, oldest first.
func (s *Session) History() []HistoryEntry {
	if s.history == nil {
		return nil
	}
	out := make([]HistoryEntry, len(s.history))
	for i, e := range s.history {
		out[i] = e.clone()
	}
	return out
}

// Secret reveals the answer once the session is over.
func (s *Session) Secret() (Secret, bool) {
	if !s.state.Terminal() {
		return nil, false
	}
	return slices.Clone(s.secret), true
}

// View is a plain-data picture of a session for display layers.
type View struct {
	ID        string         `json:"id"`
	State     State          `json:"state"`
	Turn      int            `json:"turn"`
	MaxTurns  int            `json:"maxTurns"`
	Length    int            `json:"length"`
	Palette   Palette        `json:"palette"`
	Placement []Symbol       `json:"placement"`
	Pending   Pending        `json:"pending"`
	History   []HistoryEntry `json:"history"`
	Secret    Secret         `json:"secret,omitempty"`
}

// View copies everything a renderer may show. The secret is included only after
// the game has ended.
func (s *Session) View() View {
	v := View{
		ID:        s.id,
		State:     s.state,
		Turn:      s.turn,
		MaxTurns:  s.rules.MaxTurns,
		Length:    s.rules.Length,
		Palette:   slices.Clone(s.rules.Palette),
		Placement: s.builder.Snapshot(),
		Pending:   s.builder.Pending(),
		History:   s.History(),
	}
	if v.History == nil {
		v.History = []HistoryEntry{}
	}
	if secret, ok := s.Secret(); ok {
		v.Secret = secret
	}
	return v
}
