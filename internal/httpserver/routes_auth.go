// internal/httpserver/routes_auth.go
//
// Authentication + gated profile routes:
//   - POST /auth/signup, /auth/login, /auth/logout
//   - GET  /auth/me, /stats/me, /games/mine (require auth)
//
// Signup and login move any guest games on the anon cookie to the account.

package httpserver

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"github.com/robalobadob/hitblow/internal/auth"
	"github.com/robalobadob/hitblow/internal/daily"
	"github.com/robalobadob/hitblow/internal/storage"
)

type statsRes struct {
	ID          string `json:"id"`
	GamesPlayed int    `json:"gamesPlayed"`
	Wins        int    `json:"wins"`
	Streak      int    `json:"streak"`
}

func (s *Server) mountAuthRoutes() {
	s.r.Post("/auth/signup", s.handleSignup)
	s.r.Post("/auth/login", s.handleLogin)
	s.r.Post("/auth/logout", s.handleLogout)

	gated := s.r.With(s.auth.Require(s.userExists))
	gated.Get("/auth/me", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, auth.FromContext(r.Context()))
	})
	gated.Get("/stats/me", s.handleStats)
	gated.Get("/games/mine", s.handleMyGames)
}

// handleSignup creates a user, signs a JWT, sets the auth cookie and claims guest history.
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var body auth.Credentials
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_json")
		return
	}
	body.Normalize()
	if err := body.ValidateSignup(); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	hash, err := auth.HashPassword(body.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	u, err := s.db.CreateUser(r.Context(), body.Username, hash)
	if errors.Is(err, storage.ErrUsernameTaken) {
		writeError(w, r, http.StatusConflict, "username_taken")
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !s.startSession(w, r, u) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": u.ID, "username": u.Username, "createdAt": u.CreatedAt})
}

// handleLogin authenticates a user, sets the cookie and claims guest history.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body auth.Credentials
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_json")
		return
	}
	body.Normalize()
	u, err := s.db.UserByUsername(r.Context(), body.Username)
	if err != nil || !auth.CheckPassword(u.PasswordHash, body.Password) {
		writeError(w, r, http.StatusUnauthorized, "invalid_credentials")
		return
	}
	if !s.startSession(w, r, u) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": u.ID, "username": u.Username})
}

func (s *Server) startSession(w http.ResponseWriter, r *http.Request, u *storage.User) bool {
	tok, exp, err := s.auth.Sign(u.ID, u.Username)
	if err != nil {
		s.fail(w, r, err)
		return false
	}
	s.auth.SetCookie(w, tok, exp)
	if c, err := r.Cookie(auth.AnonCookieName); err == nil && c.Value != "" {
		if err := s.db.ClaimAnonGames(r.Context(), c.Value, u.ID); err != nil {
			hlog.FromRequest(r).Warn().Err(err).Msg("claim anon games")
		}
	}
	return true
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.ClearCookie(w)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	me := auth.FromContext(r.Context())
	u, err := s.db.UserByID(r.Context(), me.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statsRes{ID: u.ID, GamesPlayed: u.GamesPlayed, Wins: u.Wins, Streak: u.Streak})
}

func (s *Server) handleMyGames(w http.ResponseWriter, r *http.Request) {
	games, err := s.db.RecentGames(r.Context(), auth.FromContext(r.Context()).ID, 50)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	for i, g := range games {
		if g.Mode == modeDaily && s.dailyOpen(daily.DateKey(g.StartedAt)) {
			games[i].Secret = nil
		}
	}
	writeJSON(w, http.StatusOK, games)
}
