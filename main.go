// main.go
//
// Entry point for the Hit & Blow server.
// Commands:
//   - serve   (default) open the database, migrate, and serve HTTP until SIGINT/SIGTERM.
//   - migrate apply pending database migrations and exit.
//   - judge   score a guess against a secret from the command line.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/robalobadob/hitblow/internal/config"
	"github.com/robalobadob/hitblow/internal/game"
	"github.com/robalobadob/hitblow/internal/httpserver"
	"github.com/robalobadob/hitblow/internal/metrics"
	"github.com/robalobadob/hitblow/internal/storage"
	"github.com/robalobadob/hitblow/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "hitblow:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "hitblow",
		Short:         "Hit & Blow code-breaking game server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}
	root.AddCommand(
		&cobra.Command{Use: "serve", Short: "Serve the HTTP API", RunE: runServe},
		&cobra.Command{Use: "migrate", Short: "Apply database migrations", RunE: runMigrate},
		&cobra.Command{
			Use:   "judge SECRET GUESS",
			Short: "Score a comma separated guess against a comma separated secret",
			Args:  cobra.ExactArgs(2),
			RunE:  runJudge,
		},
	)
	return root
}

// setup loads configuration and configures the global logger.
func setup() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		return cfg, err
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	return cfg, nil
}

func openDB(ctx context.Context, cfg config.Config) (*storage.DB, error) {
	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	db, err := openDB(cmd.Context(), cfg)
	if err != nil {
		log.Error().Err(err).Str("db", cfg.DBPath).Msg("migrate failed")
		return err
	}
	log.Info().Str("db", cfg.DBPath).Msg("migrations applied")
	return db.Close()
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDB(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Str("db", cfg.DBPath).Msg("failed to open database")
		return err
	}
	defer db.Close()

	srv := httpserver.New(httpserver.Deps{
		Config:  cfg,
		Store:   store.NewMemoryStore(),
		DB:      db,
		Metrics: metrics.New(),
	})
	hs := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("port", cfg.Port).
			Int("length", cfg.Rules.Length).
			Int("maxTurns", cfg.Rules.MaxTurns).
			Int("palette", len(cfg.Rules.Palette)).
			Msg("starting hitblow server")
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return srv.RunSweeper(gctx, time.Minute, 2*time.Hour)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info().Msg("shutting down")
		return hs.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server exited")
		return err
	}
	return nil
}

func runJudge(cmd *cobra.Command, args []string) error {
	split := func(s string) []game.Symbol {
		var out []game.Symbol
		for _, p := range strings.Split(s, ",") {
			out = append(out, game.Symbol(strings.TrimSpace(p)))
		}
		return out
	}
	hints, err := game.Judge(split(args[0]), split(args[1]))
	if err != nil {
		return err
	}
	hits, blows := hints.Counts()
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%v hits=%d blows=%d won=%t\n", hints, hits, blows, hints.Won())
	return err
}
