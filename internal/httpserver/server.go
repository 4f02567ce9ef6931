// internal/httpserver/server.go
//
// HTTP server wiring for the Hit & Blow backend.
// Responsibilities:
//   - Router + middleware (request logging, request IDs, CORS, timeouts,
//     panic recovery, per-client rate limiting).
//   - Public endpoints: "/", "/health", "/metrics", "POST /judge".
//   - Game endpoints (optional auth): /game/new and the per-session event routes.
//   - Daily Challenge endpoints (optional auth): mounted under /daily.
//   - Auth + profile/stat endpoints: /auth/*, /stats/me, /games/mine.
//   - Background sweep of idle sessions.
//
// Notes:
//   - Each event runs inside store.Update, so a session sees one event at a time.
//   - Persistence is best effort: a failed write is logged, never shown to the player.

package httpserver

import (
	"context"
	mrand "math/rand/v2"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/hitblow/internal/auth"
	"github.com/robalobadob/hitblow/internal/config"
	"github.com/robalobadob/hitblow/internal/daily"
	"github.com/robalobadob/hitblow/internal/game"
	"github.com/robalobadob/hitblow/internal/metrics"
	"github.com/robalobadob/hitblow/internal/storage"
	"github.com/robalobadob/hitblow/internal/store"
)

// Deps are the collaborators a Server needs. Zero-valued optional fields get defaults.
type Deps struct {
	Config  config.Config
	Store   store.Store
	DB      *storage.DB
	Auth    *auth.Issuer
	Metrics *metrics.Metrics
	Logger  *zerolog.Logger

	// NewRand supplies the generator for each free game (default game.NewRand).
	NewRand func() *mrand.Rand
	Now     func() time.Time
}

// Server bundles the router and its dependencies.
type Server struct {
	r       *chi.Mux
	cfg     config.Config
	store   store.Store
	db      *storage.DB
	daily   *daily.Store
	auth    *auth.Issuer
	metrics *metrics.Metrics
	log     zerolog.Logger
	newRand func() *mrand.Rand
	now     func() time.Time
	limiter *rateLimiter // nil when rate limiting is off

	dailyMu    sync.Mutex
	dailyIndex map[dailyKey]string // live daily session per player and date
}

// New constructs a Server, installs middleware, and registers routes.
func New(d Deps) *Server {
	s := &Server{
		r:       chi.NewRouter(),
		cfg:     d.Config,
		store:   d.Store,
		db:      d.DB,
		daily:   daily.NewStore(d.DB.SQL),
		auth:    d.Auth,
		metrics: d.Metrics,
		log:     log.Logger,
		newRand: d.NewRand,
		now:     d.Now,

		dailyIndex: make(map[dailyKey]string),
	}
	if d.Logger != nil {
		s.log = *d.Logger
	}
	if s.store == nil {
		s.store = store.NewMemoryStore()
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}
	if s.auth == nil {
		s.auth = auth.NewIssuer(auth.Options{
			Secret:     d.Config.JWTSecret,
			TTL:        d.Config.JWTTTL,
			CookieName: d.Config.CookieName,
			Secure:     d.Config.Production,
		})
	}
	if s.newRand == nil {
		s.newRand = game.NewRand
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.cfg.Rules.Palette == nil {
		s.cfg.Rules = game.DefaultRules()
	}

	// --- middleware ---
	s.r.Use(chimw.RealIP)
	s.r.Use(requestLogger(s.log)...)
	s.r.Use(chimw.Recoverer)
	s.r.Use(chimw.Timeout(10 * time.Second))
	s.r.Use(jsonContentType)
	s.r.Use(cors(s.cfg.ClientOrigin))
	if s.cfg.RateLimitRPS > 0 {
		s.limiter = newRateLimiter(s.cfg.RateLimitRPS, s.cfg.RateLimitBurst, func() time.Time { return s.now() })
		s.r.Use(s.limiter.middleware)
	}

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"service":"hitblow","endpoints":["/health","/metrics","POST /game/new","POST /judge","/daily/*","/auth/*"]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	s.r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	s.r.Post("/judge", s.handleJudge)

	optional := s.auth.Optional(s.userExists)
	s.r.With(optional).Route("/game", func(r chi.Router) {
		r.Post("/new", s.handleNewGame)
		s.mountSession(r, modeFree)
	})
	s.r.With(optional).Route("/daily", func(r chi.Router) {
		r.Post("/new", s.handleDailyNew)
		r.Get("/leaderboard", s.handleLeaderboard)
		s.mountSession(r, modeDaily)
	})

	s.mountAuthRoutes()

	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "path": r.URL.Path})
	})
	return s
}

// Handler exposes the router (server and tests).
func (s *Server) Handler() http.Handler { return s.r }

// userExists backs the auth middleware: a token for a deleted user is rejected.
func (s *Server) userExists(ctx context.Context, id string) error {
	_, err := s.db.UserByID(ctx, id)
	return err
}

// RunSweeper drops sessions and rate limit buckets idle for longer than idle,
// checking every interval, until ctx is done.
func (s *Server) RunSweeper(ctx context.Context, interval, idle time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			cutoff := s.now().Add(-idle)
			if n := s.store.Sweep(ctx, cutoff); n > 0 {
				s.log.Info().Int("dropped", n).Int("live", s.store.Len()).Msg("swept idle sessions")
			}
			if s.limiter != nil {
				if n := s.limiter.sweep(cutoff); n > 0 {
					s.log.Debug().Int("dropped", n).Msg("swept idle rate limiters")
				}
			}
		}
	}
}
