// internal/storage/games.go
//
// Game rows.
// Responsibilities:
//   - Insert a row when a session starts and update turns as they are confirmed.
//   - Close the row with status and secret, bumping account stats for won/lost.
//   - Move guest games to an account and list a user's recent games.

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Owner identifies who played a game: a registered user or an anonymous cookie.
type Owner struct {
	UserID string
	AnonID string
}

func (o Owner) nullable() (sql.NullString, sql.NullString) {
	return sql.NullString{String: o.UserID, Valid: o.UserID != ""},
		sql.NullString{String: o.AnonID, Valid: o.AnonID != ""}
}

// GameRow is the persisted summary of a session.
type GameRow struct {
	ID         string    `json:"id"`
	Mode       string    `json:"mode"`
	SecretLen  int       `json:"length"`
	MaxTurns   int       `json:"maxTurns"`
	Turns      int       `json:"turns"`
	Status     string    `json:"status"`
	Secret     []string  `json:"secret,omitempty"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt,omitempty"`
}

// StartGame inserts the row for a new session.
func (d *DB) StartGame(ctx context.Context, owner Owner, g GameRow) error {
	uid, anon := owner.nullable()
	_, err := d.SQL.ExecContext(ctx, `
		INSERT INTO games (id, user_id, anonymous_id, mode, secret_len, max_turns, turns, status, started_at)
		VALUES (?,?,?,?,?,?,0,?,?)`,
		g.ID, uid, anon, g.Mode, g.SecretLen, g.MaxTurns, g.Status, g.StartedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("storage: start game %s: %w", g.ID, err)
	}
	return nil
}

// RecordTurn stores the number of confirmed turns so far.
func (d *DB) RecordTurn(ctx context.Context, gameID string, turns int) error {
	if _, err := d.SQL.ExecContext(ctx, `UPDATE games SET turns=? WHERE id=?`, turns, gameID); err != nil {
		return fmt.Errorf("storage: record turn %s: %w", gameID, err)
	}
	return nil
}

// FinishGame closes a game row and, for registered users, updates their stats in
// the same transaction. Aborted games are closed without touching stats.
func (d *DB) FinishGame(ctx context.Context, owner Owner, gameID, status string, turns int, secret []string) error {
	tx, err := d.SQL.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`UPDATE games SET status=?, turns=?, secret=?, finished_at=? WHERE id=?`,
		status, turns, strings.Join(secret, ","), time.Now().UTC().Format(time.RFC3339), gameID)
	if err != nil {
		return fmt.Errorf("storage: finish game %s: %w", gameID, err)
	}
	if owner.UserID != "" && (status == "won" || status == "lost") {
		if err := bumpStats(ctx, tx, owner.UserID, status == "won"); err != nil {
			return fmt.Errorf("storage: bump stats %s: %w", owner.UserID, err)
		}
	}
	return tx.Commit()
}

// RecentGames lists a user's latest games, newest first.
func (d *DB) RecentGames(ctx context.Context, userID string, limit int) ([]GameRow, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.SQL.QueryContext(ctx, `
		SELECT id, mode, secret_len, max_turns, turns, status, COALESCE(secret,''), started_at, COALESCE(finished_at,'')
		FROM games WHERE user_id=? ORDER BY started_at DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("storage: recent games: %w", err)
	}
	defer rows.Close()

	out := []GameRow{}
	for rows.Next() {
		var g GameRow
		var secret, started, finished string
		if err := rows.Scan(&g.ID, &g.Mode, &g.SecretLen, &g.MaxTurns, &g.Turns, &g.Status, &secret, &started, &finished); err != nil {
			return nil, err
		}
		if secret != "" {
			g.Secret = strings.Split(secret, ",")
		}
		g.StartedAt, _ = time.Parse(time.RFC3339, started)
		if finished != "" {
			g.FinishedAt, _ = time.Parse(time.RFC3339, finished)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// ClaimAnonGames moves anonymous games to a user after signup or login.
func (d *DB) ClaimAnonGames(ctx context.Context, anonID, userID string) error {
	if anonID == "" || userID == "" {
		return nil
	}
	_, err := d.SQL.ExecContext(ctx, `UPDATE games SET user_id=?, anonymous_id=NULL WHERE anonymous_id=?`, userID, anonID)
	if err != nil {
		return fmt.Errorf("storage: claim anon games: %w", err)
	}
	return nil
}
