// internal/httpserver/routes_daily.go
//
// HTTP routes for the "Daily Challenge" mode, mounted under /daily:
//   - POST /daily/new         → start today's puzzle (or resume the live one)
//   - GET  /daily/leaderboard → top 20 winners for today (or ?date=YYYY-MM-DD)
//   - /daily/{id}/...         → the shared session routes (see routes_game.go)
//
// Every player gets the same secret for a date. A player (account or guest
// cookie) has one attempt per day: a finished session writes daily_results
// and a second /daily/new for that date reports played=true.

package httpserver

import (
	"errors"
	"net/http"
	"time"

	"github.com/robalobadob/hitblow/internal/auth"
	"github.com/robalobadob/hitblow/internal/daily"
	"github.com/robalobadob/hitblow/internal/game"
	"github.com/robalobadob/hitblow/internal/store"
)

type dailyKey struct{ player, date string }

// dailyNewRes is returned by /daily/new.
type dailyNewRes struct {
	GameID string     `json:"gameId,omitempty"`
	Date   string     `json:"date"`
	Played bool       `json:"played"`
	View   *game.View `json:"view,omitempty"`
}

// playerID is the account ID when signed in, else the guest cookie.
func (s *Server) playerID(w http.ResponseWriter, r *http.Request) string {
	if me := auth.FromContext(r.Context()); me != nil {
		return me.ID
	}
	return s.auth.AnonID(w, r)
}

// entryPlayer mirrors playerID for a stored entry.
func entryPlayer(e *store.Entry) string {
	if e.UserID != "" {
		return e.UserID
	}
	return e.AnonID
}

func dailyResult(e *store.Entry, out game.Outcome, turns int, now time.Time) daily.Result {
	return daily.Result{
		UserID:    entryPlayer(e),
		Date:      e.Date,
		Turns:     turns,
		Won:       out.State == game.StateWon,
		ElapsedMs: max(0, int(now.Sub(e.Session.StartedAt()).Milliseconds())),
	}
}

// handleDailyNew creates or resumes today's session for the caller.
func (s *Server) handleDailyNew(w http.ResponseWriter, r *http.Request) {
	pid := s.playerID(w, r)
	now := s.now()
	date := daily.DateKey(now)

	played, err := s.daily.AlreadyPlayed(r.Context(), pid, date)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if played {
		writeJSON(w, http.StatusOK, dailyNewRes{Date: date, Played: true})
		return
	}

	// dailyMu is held from lookup to index so one player never gets two live sessions.
	s.dailyMu.Lock()
	res, e, err := s.resumeOrStartDaily(w, r, pid, date, now)
	s.dailyMu.Unlock()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if e != nil {
		s.persistStart(r.Context(), e)
	}
	writeJSON(w, http.StatusOK, res)
}

// resumeOrStartDaily returns the caller's live session for date, or creates and
// indexes a new one. The returned entry is non-nil only when a session was created.
// Callers hold dailyMu.
func (s *Server) resumeOrStartDaily(w http.ResponseWriter, r *http.Request, pid, date string, now time.Time) (dailyNewRes, *store.Entry, error) {
	if id, ok := s.dailyIndex[dailyKey{pid, date}]; ok {
		var res dailyNewRes
		err := s.store.Update(r.Context(), id, func(e *store.Entry) error {
			v := s.view(e)
			res = dailyNewRes{GameID: id, Date: date, View: &v}
			return nil
		})
		if err == nil {
			return res, nil, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return dailyNewRes{}, nil, err
		}
		// swept while idle: start over below
	}

	sess, err := daily.NewSession(now, s.cfg.DailySalt, s.cfg.Rules)
	if err != nil {
		return dailyNewRes{}, nil, err
	}
	e := s.newEntry(w, r, sess, modeDaily)
	e.Date = date
	if err := s.store.Save(r.Context(), e); err != nil {
		return dailyNewRes{}, nil, err
	}
	for k := range s.dailyIndex {
		if k.date != date {
			delete(s.dailyIndex, k)
		}
	}
	s.dailyIndex[dailyKey{pid, date}] = sess.ID()

	v := s.view(e)
	return dailyNewRes{GameID: sess.ID(), Date: date, View: &v}, e, nil
}

// view renders a stored session for its owner. A daily secret is the same for
// every player, so it stays hidden until its date is over, even after the
// caller's own game has ended.
func (s *Server) view(e *store.Entry) game.View {
	v := e.Session.View()
	if e.Mode == modeDaily && s.dailyOpen(e.Date) {
		v.Secret = nil
	}
	return v
}

// dailyOpen reports whether date is today or later.
func (s *Server) dailyOpen(date string) bool {
	return date >= daily.DateKey(s.now())
}

// lbRes is returned by /daily/leaderboard.
type lbRes struct {
	Date string        `json:"date"`
	Top  []daily.LBRow `json:"top"`
}

// handleLeaderboard returns the leaderboard for the given date (default today).
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = daily.DateKey(s.now())
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		writeError(w, r, http.StatusBadRequest, "bad_date")
		return
	}
	rows, err := s.daily.Leaderboard(r.Context(), date, 20)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lbRes{Date: date, Top: rows})
}
