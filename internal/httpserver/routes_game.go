// internal/httpserver/routes_game.go
//
// Session routes shared by free play (/game) and the Daily Challenge (/daily):
//   - GET  /{id}            → current view
//   - POST /{id}/position   → {index}
//   - POST /{id}/symbol     → {symbol}
//   - POST /{id}/clear      → drop the half-made selection
//   - POST /{id}/confirm, /decline, /abort
//   - POST /{id}/key        → {key}, translated through the keymap
//
// Plus POST /game/new and the stateless POST /judge.

package httpserver

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/robalobadob/hitblow/internal/auth"
	"github.com/robalobadob/hitblow/internal/game"
	"github.com/robalobadob/hitblow/internal/keymap"
	"github.com/robalobadob/hitblow/internal/storage"
	"github.com/robalobadob/hitblow/internal/store"
)

const (
	modeFree  = "free"
	modeDaily = "daily"
)

var errUnboundKey = errors.New("httpserver: key is not bound")

// gameRes is returned when a session is created or viewed.
type gameRes struct {
	GameID string    `json:"gameId"`
	View   game.View `json:"view"`
}

// eventRes is returned by every event route.
type eventRes struct {
	Outcome game.Outcome `json:"outcome"`
	View    game.View    `json:"view"`
}

type newGameReq struct {
	Length   int `json:"length" validate:"omitempty,min=1,max=10"`
	MaxTurns int `json:"maxTurns" validate:"omitempty,min=1,max=50"`
}

type positionReq struct {
	Index *int `json:"index" validate:"required,min=0"`
}

type symbolReq struct {
	Symbol string `json:"symbol" validate:"required"`
}

type keyReq struct {
	Key string `json:"key" validate:"required"`
}

type judgeReq struct {
	Secret []game.Symbol `json:"secret" validate:"required,min=1,unique,dive,required"`
	Guess  []game.Symbol `json:"guess" validate:"required"`
}

type judgeRes struct {
	Hints game.HintRow `json:"hints"`
	Hits  int          `json:"hits"`
	Blows int          `json:"blows"`
	Won   bool         `json:"won"`
}

// eventSource produces the event to apply once the session lock is held.
type eventSource func(sess *game.Session) (game.Event, error)

func fixed(ev game.Event) func(*http.Request) (eventSource, error) {
	return func(*http.Request) (eventSource, error) {
		return func(*game.Session) (game.Event, error) { return ev, nil }, nil
	}
}

func parsePosition(r *http.Request) (eventSource, error) {
	var req positionReq
	if err := decode(r, &req); err != nil {
		return nil, err
	}
	ev := game.Event{Kind: game.EventSelectPosition, Position: *req.Index}
	return func(*game.Session) (game.Event, error) { return ev, nil }, nil
}

func parseSymbol(r *http.Request) (eventSource, error) {
	var req symbolReq
	if err := decode(r, &req); err != nil {
		return nil, err
	}
	ev := game.Event{Kind: game.EventSelectSymbol, Symbol: game.Symbol(req.Symbol)}
	return func(*game.Session) (game.Event, error) { return ev, nil }, nil
}

func parseKey(r *http.Request) (eventSource, error) {
	var req keyReq
	if err := decode(r, &req); err != nil {
		return nil, err
	}
	key, ok := keymap.ParseKey(req.Key)
	if !ok {
		return nil, errUnboundKey
	}
	return func(sess *game.Session) (game.Event, error) {
		rules := sess.Rules()
		km, err := keymap.New(rules.Palette, rules.Length)
		if err != nil {
			return game.Event{}, err
		}
		ev, ok := km.Translate(key, sess.State() == game.StateAwaitingConfirmation)
		if !ok {
			return game.Event{}, errUnboundKey
		}
		return ev, nil
	}, nil
}

// mountSession registers the per-session routes for one mode.
func (s *Server) mountSession(r chi.Router, mode string) {
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", s.handleView(mode))
		r.Post("/position", s.handleEvent(mode, parsePosition))
		r.Post("/symbol", s.handleEvent(mode, parseSymbol))
		r.Post("/clear", s.handleEvent(mode, fixed(game.Event{Kind: game.EventClearPending})))
		r.Post("/confirm", s.handleEvent(mode, fixed(game.Event{Kind: game.EventConfirm})))
		r.Post("/decline", s.handleEvent(mode, fixed(game.Event{Kind: game.EventDecline})))
		r.Post("/abort", s.handleEvent(mode, fixed(game.Event{Kind: game.EventAbort})))
		r.Post("/key", s.handleEvent(mode, parseKey))
	})
}

// handleNewGame starts a free game with the configured palette, optionally
// overriding secret length and turn limit.
func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var req newGameReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "bad_request")
		return
	}
	rules := s.cfg.Rules
	if req.Length != 0 {
		rules.Length = req.Length
	}
	if req.MaxTurns != 0 {
		rules.MaxTurns = req.MaxTurns
	}

	sess, err := game.NewGame(s.newRand(), rules)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	e := s.newEntry(w, r, sess, modeFree)
	if err := s.store.Save(r.Context(), e); err != nil {
		s.fail(w, r, err)
		return
	}
	s.persistStart(r.Context(), e)
	writeJSON(w, http.StatusOK, gameRes{GameID: sess.ID(), View: sess.View()})
}

// newEntry ties a session to the signed-in user or the guest cookie.
func (s *Server) newEntry(w http.ResponseWriter, r *http.Request, sess *game.Session, mode string) *store.Entry {
	e := &store.Entry{Session: sess, Mode: mode}
	if me := auth.FromContext(r.Context()); me != nil {
		e.UserID = me.ID
	} else {
		e.AnonID = s.auth.AnonID(w, r)
	}
	return e
}

// owns reports whether the request may drive e. A guest who signs up mid-game
// keeps access through the anon cookie and the game moves to the account.
func owns(r *http.Request, e *store.Entry) bool {
	me := auth.FromContext(r.Context())
	if me != nil && e.UserID == me.ID {
		return true
	}
	if e.AnonID == "" {
		return false
	}
	c, err := r.Cookie(auth.AnonCookieName)
	if err != nil || c.Value != e.AnonID {
		return false
	}
	if me != nil && e.UserID == "" && e.Mode == modeFree {
		e.UserID = me.ID
	}
	return true
}

func (s *Server) handleView(mode string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var res gameRes
		err := s.store.Update(r.Context(), chi.URLParam(r, "id"), func(e *store.Entry) error {
			if e.Mode != mode || !owns(r, e) {
				return store.ErrNotFound
			}
			res = gameRes{GameID: e.Session.ID(), View: s.view(e)}
			return nil
		})
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// handleEvent applies one event under the session lock and persists progress.
func (s *Server) handleEvent(mode string, parse func(*http.Request) (eventSource, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		src, err := parse(r)
		switch {
		case errors.Is(err, errUnboundKey):
			s.metrics.EventRejected("unbound_key")
			writeError(w, r, http.StatusBadRequest, "unbound_key")
			return
		case err != nil:
			writeError(w, r, http.StatusBadRequest, "bad_request")
			return
		}

		var res eventRes
		err = s.store.Update(r.Context(), chi.URLParam(r, "id"), func(e *store.Entry) error {
			if e.Mode != mode || !owns(r, e) {
				return store.ErrNotFound
			}
			ev, err := src(e.Session)
			if err != nil {
				return err
			}
			wasLive := !e.Session.State().Terminal()
			out, err := e.Session.Apply(ev)
			if err != nil {
				return err
			}
			if out.Entry != nil {
				s.metrics.GuessJudged()
			}
			if wasLive && out.State.Terminal() {
				s.finish(r.Context(), e, out)
			} else if out.Entry != nil {
				s.persistTurn(r.Context(), e)
			}
			res = eventRes{Outcome: out, View: s.view(e)}
			return nil
		})
		switch {
		case errors.Is(err, errUnboundKey):
			s.metrics.EventRejected("unbound_key")
			writeError(w, r, http.StatusBadRequest, "unbound_key")
		case errors.Is(err, keymap.ErrLayoutTooSmall):
			writeError(w, r, http.StatusBadRequest, "keymap_unavailable")
		case err != nil:
			s.fail(w, r, err)
		default:
			writeJSON(w, http.StatusOK, res)
		}
	}
}

// handleJudge scores a guess against a caller-supplied secret.
func (s *Server) handleJudge(w http.ResponseWriter, r *http.Request) {
	var req judgeReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "bad_request")
		return
	}
	hints, err := game.Judge(req.Secret, req.Guess)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.metrics.GuessJudged()
	hits, blows := hints.Counts()
	writeJSON(w, http.StatusOK, judgeRes{Hints: hints, Hits: hits, Blows: blows, Won: hints.Won()})
}

// ------------------------------ persistence --------------------------------

func owner(e *store.Entry) storage.Owner {
	return storage.Owner{UserID: e.UserID, AnonID: e.AnonID}
}

func (s *Server) persistStart(ctx context.Context, e *store.Entry) {
	s.metrics.GameStarted(e.Mode)
	rules := e.Session.Rules()
	err := s.db.StartGame(ctx, owner(e), storage.GameRow{
		ID:        e.Session.ID(),
		Mode:      e.Mode,
		SecretLen: rules.Length,
		MaxTurns:  rules.MaxTurns,
		Status:    "playing",
		StartedAt: e.Session.StartedAt(),
	})
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("gameId", e.Session.ID()).Msg("insert game row")
		return
	}
	zerolog.Ctx(ctx).Info().Str("gameId", e.Session.ID()).Str("mode", e.Mode).Msg("game started")
}

func (s *Server) persistTurn(ctx context.Context, e *store.Entry) {
	if err := s.db.RecordTurn(ctx, e.Session.ID(), len(e.Session.History())); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("gameId", e.Session.ID()).Msg("record turn")
	}
}

// finish closes the game row, bumps stats and, in daily mode, records the result.
func (s *Server) finish(ctx context.Context, e *store.Entry, out game.Outcome) {
	id := e.Session.ID()
	state := out.State.String()
	turns := len(e.Session.History())
	secret, _ := e.Session.Secret()
	symbols := make([]string, len(secret))
	for i, sym := range secret {
		symbols[i] = string(sym)
	}

	s.metrics.GameFinished(e.Mode, state, turns)
	logger := zerolog.Ctx(ctx)
	logger.Info().Str("gameId", id).Str("mode", e.Mode).Str("state", state).Int("turns", turns).Msg("game finished")

	if err := s.db.FinishGame(ctx, owner(e), id, state, turns, symbols); err != nil {
		logger.Warn().Err(err).Str("gameId", id).Msg("finish game")
	}
	if e.Mode == modeDaily {
		err := s.daily.InsertResult(ctx, dailyResult(e, out, turns, s.now()))
		if err != nil {
			logger.Warn().Err(err).Str("gameId", id).Msg("insert daily result")
		}
	}
}
