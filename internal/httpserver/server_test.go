package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	mrand "math/rand/v2"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/robalobadob/hitblow/internal/auth"
	"github.com/robalobadob/hitblow/internal/config"
	"github.com/robalobadob/hitblow/internal/daily"
	"github.com/robalobadob/hitblow/internal/game"
	"github.com/robalobadob/hitblow/internal/storage"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var (
	testSeed = [32]byte{7}
	testDay  = time.Date(2026, 4, 12, 9, 30, 0, 0, time.UTC)
)

type viewJSON struct {
	ID        string   `json:"id"`
	State     string   `json:"state"`
	Turn      int      `json:"turn"`
	MaxTurns  int      `json:"maxTurns"`
	Placement []string `json:"placement"`
	Secret    []string `json:"secret"`
	History   []struct {
		Turn  int      `json:"turn"`
		Guess []string `json:"guess"`
		Hints []string `json:"hints"`
	} `json:"history"`
}

type eventJSON struct {
	Outcome struct {
		State     string   `json:"state"`
		Turn      int      `json:"turn"`
		Committed bool     `json:"committed"`
		Hints     []string `json:"hints"`
	} `json:"outcome"`
	View viewJSON `json:"view"`
}

type gameJSON struct {
	GameID string   `json:"gameId"`
	View   viewJSON `json:"view"`
}

// harness drives one Server; each client keeps its own cookies.
type harness struct {
	t   *testing.T
	srv *Server
	db  *storage.DB
	cfg config.Config
}

type client struct {
	h       *harness
	cookies map[string]*http.Cookie
}

func newHarness(t *testing.T, mutate ...func(*config.Config)) *harness {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(context.Background()))

	cfg := config.Config{
		JWTSecret:    "test_secret",
		JWTTTL:       time.Hour,
		CookieName:   "tok",
		ClientOrigin: "http://localhost:5173",
		DailySalt:    "salt",
		Rules:        game.DefaultRules(),
	}
	for _, m := range mutate {
		m(&cfg)
	}
	nop := zerolog.Nop()
	srv := New(Deps{
		Config:  cfg,
		DB:      db,
		Logger:  &nop,
		NewRand: func() *mrand.Rand { return game.NewSeededRand(testSeed) },
		Now:     func() time.Time { return testDay },
	})
	return &harness{t: t, srv: srv, db: db, cfg: cfg}
}

func (h *harness) client() *client {
	return &client{h: h, cookies: map[string]*http.Cookie{}}
}

// freeSecret is the secret every free game in the harness gets.
func (h *harness) freeSecret(length int) game.Secret {
	s, err := game.Generate(game.NewSeededRand(testSeed), h.cfg.Rules.Palette, length)
	require.NoError(h.t, err)
	return s
}

func (c *client) do(method, path string, body any) *httptest.ResponseRecorder {
	c.h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.h.t, json.NewEncoder(&buf).Encode(body))
	}
	r := httptest.NewRequest(method, path, &buf)
	r.RemoteAddr = "192.0.2.1:1234"
	for _, ck := range c.cookies {
		r.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	c.h.srv.Handler().ServeHTTP(w, r)
	for _, ck := range w.Result().Cookies() {
		if ck.MaxAge < 0 {
			delete(c.cookies, ck.Name)
			continue
		}
		c.cookies[ck.Name] = ck
	}
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func errCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	return decodeBody[map[string]string](t, w)["error"]
}

// place puts guess on the board through the position and symbol routes.
func (c *client) place(base, id string, guess []game.Symbol) eventJSON {
	c.h.t.Helper()
	var last eventJSON
	for i, sym := range guess {
		w := c.do(http.MethodPost, base+id+"/position", map[string]int{"index": i})
		require.Equal(c.h.t, http.StatusOK, w.Code, w.Body.String())
		w = c.do(http.MethodPost, base+id+"/symbol", map[string]string{"symbol": string(sym)})
		require.Equal(c.h.t, http.StatusOK, w.Code, w.Body.String())
		last = decodeBody[eventJSON](c.h.t, w)
	}
	return last
}

func (c *client) newGame(body any) gameJSON {
	c.h.t.Helper()
	w := c.do(http.MethodPost, "/game/new", body)
	require.Equal(c.h.t, http.StatusOK, w.Code, w.Body.String())
	return decodeBody[gameJSON](c.h.t, w)
}

func rotate(s game.Secret) []game.Symbol {
	out := slices.Clone(s)
	return append(out[1:], out[0])
}

func symbolsToStrings(s []game.Symbol) []string {
	out := make([]string, len(s))
	for i, v := range s {
		out[i] = string(v)
	}
	return out
}

// ---------------------------------------------------------------------------

func TestHealthAndMetrics(t *testing.T) {
	c := newHarness(t).client()
	w := c.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())

	c.newGame(nil)
	w = c.do(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `hitblow_games_started_total{mode="free"} 1`)

	w = c.do(http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFreeGame_Win(t *testing.T) {
	h := newHarness(t)
	c := h.client()
	g := c.newGame(nil)
	assert.Equal(t, "awaiting_guess", g.View.State)
	assert.Equal(t, 1, g.View.Turn)
	assert.Empty(t, g.View.Secret)
	assert.Contains(t, c.cookies, "hitblow_anon")

	secret := h.freeSecret(4)

	// a wrong first guess costs a turn
	last := c.place("/game/", g.GameID, rotate(secret))
	assert.Equal(t, "awaiting_confirmation", last.Outcome.State)
	w := c.do(http.MethodPost, "/game/"+g.GameID+"/confirm", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	ev := decodeBody[eventJSON](t, w)
	assert.Equal(t, "awaiting_guess", ev.Outcome.State)
	assert.Equal(t, 2, ev.Outcome.Turn)
	assert.Equal(t, []string{"blow", "blow", "blow", "blow"}, ev.Outcome.Hints)
	assert.Equal(t, []string{"", "", "", ""}, ev.View.Placement)

	c.place("/game/", g.GameID, secret)
	w = c.do(http.MethodPost, "/game/"+g.GameID+"/confirm", nil)
	require.Equal(t, http.StatusOK, w.Code)
	ev = decodeBody[eventJSON](t, w)
	assert.Equal(t, "won", ev.Outcome.State)
	assert.Equal(t, symbolsToStrings(secret), ev.View.Secret)
	require.Len(t, ev.View.History, 2)

	w = c.do(http.MethodPost, "/game/"+g.GameID+"/abort", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "game_over", errCode(t, w))

	w = c.do(http.MethodGet, "/game/"+g.GameID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "won", decodeBody[gameJSON](t, w).View.State)
}

func TestFreeGame_LostAndRules(t *testing.T) {
	h := newHarness(t)
	c := h.client()
	g := c.newGame(map[string]int{"length": 3, "maxTurns": 1})
	assert.Equal(t, 1, g.View.MaxTurns)
	assert.Len(t, g.View.Placement, 3)

	c.place("/game/", g.GameID, rotate(h.freeSecret(3)))
	w := c.do(http.MethodPost, "/game/"+g.GameID+"/confirm", nil)
	require.Equal(t, http.StatusOK, w.Code)
	ev := decodeBody[eventJSON](t, w)
	assert.Equal(t, "lost", ev.Outcome.State)
	assert.Len(t, ev.View.Secret, 3)

	w = c.do(http.MethodPost, "/game/new", map[string]int{"length": 7})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "generation_failed", errCode(t, w))

	w = c.do(http.MethodPost, "/game/new", map[string]int{"maxTurns": -1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFreeGame_EventErrors(t *testing.T) {
	h := newHarness(t)
	c := h.client()
	g := c.newGame(nil)
	base := "/game/" + g.GameID

	cases := []struct {
		name   string
		path   string
		body   any
		status int
		code   string
	}{
		{"position out of range", "/position", map[string]int{"index": 9}, http.StatusBadRequest, "invalid_position"},
		{"missing index", "/position", map[string]string{}, http.StatusBadRequest, "bad_request"},
		{"unknown symbol", "/symbol", map[string]string{"symbol": "purple"}, http.StatusBadRequest, "unknown_symbol"},
		{"confirm too early", "/confirm", nil, http.StatusConflict, "not_awaiting_confirmation"},
		{"decline too early", "/decline", nil, http.StatusConflict, "not_awaiting_confirmation"},
		{"unbound key", "/key", map[string]string{"key": "z"}, http.StatusBadRequest, "unbound_key"},
		{"unnamed key", "/key", map[string]string{"key": "shift"}, http.StatusBadRequest, "unbound_key"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := c.do(http.MethodPost, base+tc.path, tc.body)
			assert.Equal(t, tc.status, w.Code, w.Body.String())
			assert.Equal(t, tc.code, errCode(t, w))
		})
	}

	w := c.do(http.MethodPost, "/game/does-not-exist/confirm", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	stranger := h.client()
	w = stranger.do(http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "sessions are private to their player")

	w = c.do(http.MethodGet, "/daily/"+g.GameID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "a free game is not reachable under /daily")
}

func TestFreeGame_DeclineAndClear(t *testing.T) {
	h := newHarness(t)
	c := h.client()
	g := c.newGame(nil)
	base := "/game/" + g.GameID

	guess := rotate(h.freeSecret(4))
	c.place("/game/", g.GameID, guess)
	w := c.do(http.MethodPost, base+"/decline", nil)
	require.Equal(t, http.StatusOK, w.Code)
	ev := decodeBody[eventJSON](t, w)
	assert.Equal(t, "awaiting_guess", ev.Outcome.State)
	assert.Equal(t, symbolsToStrings(guess), ev.View.Placement, "decline keeps the placement")

	w = c.do(http.MethodPost, base+"/position", map[string]int{"index": 0})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "awaiting_confirmation", decodeBody[eventJSON](t, w).Outcome.State)

	w = c.do(http.MethodPost, base+"/clear", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = c.do(http.MethodPost, base+"/confirm", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, decodeBody[eventJSON](t, w).Outcome.Turn)
}

func TestFreeGame_Keys(t *testing.T) {
	h := newHarness(t)
	c := h.client()
	g := c.newGame(nil)
	base := "/game/" + g.GameID
	symbolKeys := "qwertyuiop"

	for i, sym := range h.freeSecret(4) {
		idx := slices.Index(h.cfg.Rules.Palette, sym)
		for _, k := range []string{string(rune('1' + i)), string(symbolKeys[idx])} {
			w := c.do(http.MethodPost, base+"/key", map[string]string{"key": k})
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		}
	}
	w := c.do(http.MethodPost, base+"/key", map[string]string{"key": "y"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "won", decodeBody[eventJSON](t, w).Outcome.State)
}

func TestFreeGame_EscAborts(t *testing.T) {
	h := newHarness(t)
	c := h.client()
	g := c.newGame(nil)
	w := c.do(http.MethodPost, "/game/"+g.GameID+"/key", map[string]string{"key": "esc"})
	require.Equal(t, http.StatusOK, w.Code)
	ev := decodeBody[eventJSON](t, w)
	assert.Equal(t, "aborted", ev.Outcome.State)
	assert.NotEmpty(t, ev.View.Secret)
}

func TestJudge(t *testing.T) {
	c := newHarness(t).client()
	w := c.do(http.MethodPost, "/judge", map[string]any{
		"secret": []string{"red", "blue", "green", "yellow"},
		"guess":  []string{"red", "green", "pink", "orange"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decodeBody[struct {
		Hints []string `json:"hints"`
		Hits  int      `json:"hits"`
		Blows int      `json:"blows"`
		Won   bool     `json:"won"`
	}](t, w)
	assert.Equal(t, []string{"blow", "hit", "none", "none"}, res.Hints)
	assert.Equal(t, 1, res.Hits)
	assert.Equal(t, 1, res.Blows)
	assert.False(t, res.Won)

	w = c.do(http.MethodPost, "/judge", map[string]any{
		"secret": []string{"red", "blue"},
		"guess":  []string{"red"},
	})
	assert.Equal(t, "wrong_length", errCode(t, w))

	w = c.do(http.MethodPost, "/judge", map[string]any{
		"secret": []string{"red", "blue"},
		"guess":  []string{"red", "red"},
	})
	assert.Equal(t, "duplicate_symbol", errCode(t, w))

	w = c.do(http.MethodPost, "/judge", map[string]any{"guess": []string{"red"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "bad_request", errCode(t, w))
}

func TestAuth_GuestGameMovesToAccount(t *testing.T) {
	h := newHarness(t)
	c := h.client()
	g := c.newGame(nil)

	w := c.do(http.MethodPost, "/auth/signup", map[string]string{"username": "alice", "password": "password1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, c.cookies, "tok")

	c.place("/game/", g.GameID, h.freeSecret(4))
	w = c.do(http.MethodPost, "/game/"+g.GameID+"/confirm", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = c.do(http.MethodGet, "/stats/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decodeBody[statsRes](t, w)
	assert.Equal(t, 1, stats.GamesPlayed)
	assert.Equal(t, 1, stats.Wins)
	assert.Equal(t, 1, stats.Streak)

	w = c.do(http.MethodGet, "/games/mine", nil)
	require.Equal(t, http.StatusOK, w.Code)
	games := decodeBody[[]storage.GameRow](t, w)
	require.Len(t, games, 1)
	assert.Equal(t, g.GameID, games[0].ID)
	assert.Equal(t, "won", games[0].Status)
	assert.Equal(t, 1, games[0].Turns)
}

func TestAuth_Flow(t *testing.T) {
	h := newHarness(t)
	c := h.client()

	w := c.do(http.MethodGet, "/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = c.do(http.MethodPost, "/auth/signup", map[string]string{"username": "a", "password": "password1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = c.do(http.MethodPost, "/auth/signup", map[string]string{"username": "bob", "password": "password1"})
	require.Equal(t, http.StatusOK, w.Code)

	w = c.do(http.MethodGet, "/auth/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "bob", decodeBody[map[string]string](t, w)["username"])

	w = h.client().do(http.MethodPost, "/auth/signup", map[string]string{"username": "BOB", "password": "password1"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "username_taken", errCode(t, w))

	w = c.do(http.MethodPost, "/auth/logout", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, c.cookies, "tok")
	assert.Equal(t, http.StatusUnauthorized, c.do(http.MethodGet, "/auth/me", nil).Code)

	other := h.client()
	w = other.do(http.MethodPost, "/auth/login", map[string]string{"username": "bob", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = other.do(http.MethodPost, "/auth/login", map[string]string{"username": " bob ", "password": "password1"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusOK, other.do(http.MethodGet, "/stats/me", nil).Code)
}

func TestDaily(t *testing.T) {
	h := newHarness(t)
	secret, err := daily.Secret(testDay, "salt", h.cfg.Rules)
	require.NoError(t, err)

	winner := h.client()
	w := winner.do(http.MethodPost, "/daily/new", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	first := decodeBody[dailyNewRes](t, w)
	assert.Equal(t, "2026-04-12", first.Date)
	require.NotEmpty(t, first.GameID)

	w = winner.do(http.MethodPost, "/daily/new", nil)
	assert.Equal(t, first.GameID, decodeBody[dailyNewRes](t, w).GameID, "resumes the live session")

	winner.place("/daily/", first.GameID, secret)
	w = winner.do(http.MethodPost, "/daily/"+first.GameID+"/confirm", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "won", decodeBody[eventJSON](t, w).Outcome.State)

	w = winner.do(http.MethodPost, "/daily/new", nil)
	again := decodeBody[dailyNewRes](t, w)
	assert.True(t, again.Played)
	assert.Empty(t, again.GameID)

	quitter := h.client()
	w = quitter.do(http.MethodPost, "/daily/new", nil)
	qid := decodeBody[dailyNewRes](t, w).GameID
	require.Equal(t, http.StatusOK, quitter.do(http.MethodPost, "/daily/"+qid+"/abort", nil).Code)
	assert.True(t, decodeBody[dailyNewRes](t, quitter.do(http.MethodPost, "/daily/new", nil)).Played)

	w = winner.do(http.MethodGet, "/daily/leaderboard", nil)
	require.Equal(t, http.StatusOK, w.Code)
	lb := decodeBody[lbRes](t, w)
	require.Len(t, lb.Top, 1, "aborted attempts are not ranked")
	assert.Equal(t, 1, lb.Top[0].Turns)

	w = winner.do(http.MethodGet, "/daily/leaderboard?date=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDaily_SecretHiddenWhileDateOpen(t *testing.T) {
	h := newHarness(t)
	secret, err := daily.Secret(testDay, "salt", h.cfg.Rules)
	require.NoError(t, err)

	scout := h.client()
	id := decodeBody[dailyNewRes](t, scout.do(http.MethodPost, "/daily/new", nil)).GameID
	w := scout.do(http.MethodPost, "/daily/"+id+"/abort", nil)
	require.Equal(t, http.StatusOK, w.Code)
	ev := decodeBody[eventJSON](t, w)
	assert.Equal(t, "aborted", ev.Outcome.State)
	assert.Empty(t, ev.View.Secret)
	assert.Empty(t, decodeBody[gameJSON](t, scout.do(http.MethodGet, "/daily/"+id, nil)).View.Secret)

	solver := h.client()
	sid := decodeBody[dailyNewRes](t, solver.do(http.MethodPost, "/daily/new", nil)).GameID
	solver.place("/daily/", sid, secret)
	ev = decodeBody[eventJSON](t, solver.do(http.MethodPost, "/daily/"+sid+"/confirm", nil))
	assert.Equal(t, "won", ev.Outcome.State)
	assert.Empty(t, ev.View.Secret)

	h.srv.now = func() time.Time { return testDay.Add(24 * time.Hour) }
	v := decodeBody[gameJSON](t, scout.do(http.MethodGet, "/daily/"+id, nil)).View
	assert.Equal(t, symbolsToStrings(secret), v.Secret, "revealed once the day is over")
}

func TestDaily_ConcurrentNewSharesSession(t *testing.T) {
	h := newHarness(t)
	const n = 8
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := httptest.NewRequest(http.MethodPost, "/daily/new", nil)
			r.RemoteAddr = "192.0.2.1:1234"
			r.AddCookie(&http.Cookie{Name: auth.AnonCookieName, Value: "guest-1"})
			w := httptest.NewRecorder()
			h.srv.Handler().ServeHTTP(w, r)
			var res dailyNewRes
			if json.NewDecoder(w.Body).Decode(&res) == nil {
				ids[i] = res.GameID
			}
		}()
	}
	wg.Wait()

	require.NotEmpty(t, ids[0])
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	assert.Equal(t, 1, h.srv.store.Len())
}

func TestRateLimit(t *testing.T) {
	h := newHarness(t, func(c *config.Config) {
		c.RateLimitRPS = 0.001
		c.RateLimitBurst = 2
	})
	c := h.client()
	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/health", nil).Code)
	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/health", nil).Code)
	w := c.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "rate_limited", errCode(t, w))
}

func TestRateLimit_SweepsIdleClients(t *testing.T) {
	h := newHarness(t, func(c *config.Config) {
		c.RateLimitRPS = 0.001
		c.RateLimitBurst = 1
	})
	c := h.client()
	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/health", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, c.do(http.MethodGet, "/health", nil).Code)
	require.Equal(t, 1, h.srv.limiter.len())

	h.srv.now = func() time.Time { return testDay.Add(48 * time.Hour) }
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.srv.RunSweeper(ctx, 5*time.Millisecond, time.Hour) }()
	assert.Eventually(t, func() bool { return h.srv.limiter.len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/health", nil).Code, "a forgotten client starts with a full bucket")
}

func TestCORSPreflight(t *testing.T) {
	c := newHarness(t).client()
	w := c.do(http.MethodOptions, "/game/new", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRunSweeper(t *testing.T) {
	h := newHarness(t)
	c := h.client()
	c.newGame(nil)
	require.Equal(t, 1, h.srv.store.Len())

	// every session looks idle to a clock two days ahead
	h.srv.now = func() time.Time { return time.Now().Add(48 * time.Hour) }
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.srv.RunSweeper(ctx, 5*time.Millisecond, time.Hour) }()

	assert.Eventually(t, func() bool { return h.srv.store.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
}
