// internal/config/config.go
//
// Runtime configuration for the server.
//
// Sources, later ones winning:
//  1. built-in defaults (six pins, secret of four, ten turns, port 5175)
//  2. an optional YAML rules file named by RULES_FILE
//  3. environment variables, with a .env file loaded first in development
//
// Environment variables:
//
//	PORT, LOG_LEVEL, LOG_FORMAT (json|console), DB_PATH,
//	JWT_SECRET, JWT_EXPIRES_DAYS, COOKIE_NAME, CLIENT_ORIGIN, NODE_ENV,
//	DAILY_SALT, RATE_LIMIT_RPS, RATE_LIMIT_BURST,
//	RULES_FILE, PALETTE (comma separated), SECRET_LENGTH, MAX_TURNS
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/robalobadob/hitblow/internal/game"
)

const devSecret = "dev_secret_change_me"

// Config is the resolved server configuration.
type Config struct {
	Port           string
	LogLevel       string
	LogFormat      string
	DBPath         string
	JWTSecret      string
	JWTTTL         time.Duration
	CookieName     string
	ClientOrigin   string
	Production     bool
	DailySalt      string
	RateLimitRPS   float64
	RateLimitBurst int
	Rules          game.Rules
}

// Load reads .env (if present) and the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv resolves configuration through getenv.
func FromEnv(getenv func(string) string) (Config, error) {
	env := func(k, def string) string {
		if v := getenv(k); v != "" {
			return v
		}
		return def
	}

	c := Config{
		Port:         env("PORT", "5175"),
		LogLevel:     env("LOG_LEVEL", "info"),
		LogFormat:    env("LOG_FORMAT", "json"),
		DBPath:       env("DB_PATH", "./data/hitblow.db"),
		JWTSecret:    env("JWT_SECRET", devSecret),
		CookieName:   env("COOKIE_NAME", "hitblow_token"),
		ClientOrigin: env("CLIENT_ORIGIN", "http://localhost:5173"),
		Production:   getenv("NODE_ENV") == "production",
		DailySalt:    env("DAILY_SALT", "local_dev_salt"),
		Rules:        game.DefaultRules(),
	}

	days, err := strconv.Atoi(env("JWT_EXPIRES_DAYS", "14"))
	if err != nil {
		return Config{}, fmt.Errorf("config: JWT_EXPIRES_DAYS: %w", err)
	}
	c.JWTTTL = time.Duration(days) * 24 * time.Hour

	if c.RateLimitRPS, err = strconv.ParseFloat(env("RATE_LIMIT_RPS", "20"), 64); err != nil {
		return Config{}, fmt.Errorf("config: RATE_LIMIT_RPS: %w", err)
	}
	if c.RateLimitBurst, err = strconv.Atoi(env("RATE_LIMIT_BURST", "40")); err != nil {
		return Config{}, fmt.Errorf("config: RATE_LIMIT_BURST: %w", err)
	}

	if path := getenv("RULES_FILE"); path != "" {
		if c.Rules, err = LoadRulesFile(path, c.Rules); err != nil {
			return Config{}, err
		}
	}
	if err := c.applyRulesEnv(getenv); err != nil {
		return Config{}, err
	}
	if err := c.Rules.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if c.Production && c.JWTSecret == devSecret {
		return Config{}, fmt.Errorf("config: JWT_SECRET must be set in production")
	}
	return c, nil
}

func (c *Config) applyRulesEnv(getenv func(string) string) error {
	if v := getenv("PALETTE"); v != "" {
		var syms []game.Symbol
		for _, s := range strings.Split(v, ",") {
			syms = append(syms, game.Symbol(strings.ToLower(strings.TrimSpace(s))))
		}
		p, err := game.NewPalette(syms...)
		if err != nil {
			return fmt.Errorf("config: PALETTE: %w", err)
		}
		c.Rules.Palette = p
	}
	if v := getenv("SECRET_LENGTH"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: SECRET_LENGTH: %w", err)
		}
		c.Rules.Length = n
	}
	if v := getenv("MAX_TURNS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: MAX_TURNS: %w", err)
		}
		c.Rules.MaxTurns = n
	}
	return nil
}

// rulesFile is the YAML shape of RULES_FILE. Omitted fields keep their defaults.
type rulesFile struct {
	Palette  []string `yaml:"palette"`
	Length   int      `yaml:"length"`
	MaxTurns int      `yaml:"maxTurns"`
}

// LoadRulesFile overlays the YAML file at path onto base.
func LoadRulesFile(path string, base game.Rules) (game.Rules, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("config: read rules file: %w", err)
	}
	var f rulesFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return base, fmt.Errorf("config: parse rules file %s: %w", path, err)
	}
	out := base
	if len(f.Palette) > 0 {
		syms := make([]game.Symbol, len(f.Palette))
		for i, s := range f.Palette {
			syms[i] = game.Symbol(s)
		}
		if out.Palette, err = game.NewPalette(syms...); err != nil {
			return base, fmt.Errorf("config: rules file %s: %w", path, err)
		}
	}
	if f.Length != 0 {
		out.Length = f.Length
	}
	if f.MaxTurns != 0 {
		out.MaxTurns = f.MaxTurns
	}
	return out, nil
}
