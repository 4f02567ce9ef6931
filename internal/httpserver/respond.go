// internal/httpserver/respond.go
//
// Response helpers.
// Responsibilities:
//   - Encode JSON bodies and {"error": code} failures.
//   - Decode and validate request bodies.
//   - Map domain errors to HTTP status and error code.

package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/hlog"

	"github.com/robalobadob/hitblow/internal/game"
	"github.com/robalobadob/hitblow/internal/storage"
	"github.com/robalobadob/hitblow/internal/store"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError sends {"error": code}.
func writeError(w http.ResponseWriter, r *http.Request, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

// decodeJSON reads a JSON body into v. An empty body leaves v zero.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// decode is decodeJSON followed by struct tag validation.
func decode(r *http.Request, v any) error {
	if err := decodeJSON(r, v); err != nil {
		return err
	}
	return validate.Struct(v)
}

// errorStatus maps domain errors to an HTTP status and a stable error code.
func errorStatus(err error) (int, string) {
	var ige *game.InvalidGuessError
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.As(err, &ige):
		return http.StatusBadRequest, ige.Fault.String()
	case errors.Is(err, game.ErrInvalidPosition):
		return http.StatusBadRequest, "invalid_position"
	case errors.Is(err, game.ErrUnknownSymbol):
		return http.StatusBadRequest, "unknown_symbol"
	case errors.Is(err, game.ErrUnknownEvent):
		return http.StatusBadRequest, "unknown_event"
	case errors.Is(err, game.ErrGeneration):
		return http.StatusBadRequest, "generation_failed"
	case errors.Is(err, game.ErrInvalidRules), errors.Is(err, game.ErrInvalidPalette):
		return http.StatusBadRequest, "invalid_rules"
	case errors.Is(err, game.ErrNotAwaitingConfirmation):
		return http.StatusConflict, "not_awaiting_confirmation"
	case errors.Is(err, game.ErrGameOver):
		return http.StatusConflict, "game_over"
	default:
		return http.StatusInternalServerError, "server_error"
	}
}

// fail answers with errorStatus(err). Client errors are counted as rejected
// events; server errors are logged.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := errorStatus(err)
	if status < http.StatusInternalServerError {
		s.metrics.EventRejected(code)
	} else {
		hlog.FromRequest(r).Error().Err(err).Msg("handler error")
	}
	writeError(w, r, status, code)
}
