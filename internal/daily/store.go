// internal/daily/store.go
//
// Persistence for daily results and the per-date leaderboard.

package daily

import (
	"context"
	"database/sql"
	"fmt"
)

// Result is one player's finished daily puzzle.
type Result struct {
	UserID    string `json:"userId"`
	Date      string `json:"date"`
	Turns     int    `json:"turns"`
	Won       bool   `json:"won"`
	ElapsedMs int    `json:"elapsedMs"`
}

// Store reads and writes daily_results.
type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// AlreadyPlayed reports whether userID has a recorded result for date.
func (s *Store) AlreadyPlayed(ctx context.Context, userID, date string) (bool, error) {
	var cnt int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM daily_results WHERE user_id=? AND date=?`,
		userID, date,
	).Scan(&cnt)
	if err != nil {
		return false, fmt.Errorf("daily: already played: %w", err)
	}
	return cnt > 0, nil
}

// InsertResult records a finished puzzle. A second result for the same user and
// date is ignored.
func (s *Store) InsertResult(ctx context.Context, r Result) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO daily_results(user_id, date, turns, won, elapsed_ms)
		 VALUES(?,?,?,?,?)`, r.UserID, r.Date, r.Turns, r.Won, r.ElapsedMs,
	)
	if err != nil {
		return fmt.Errorf("daily: insert result: %w", err)
	}
	return nil
}

// LBRow is one leaderboard line.
type LBRow struct {
	UserID    string `json:"userId"`
	Turns     int    `json:"turns"`
	ElapsedMs int    `json:"elapsedMs"`
}

// Leaderboard returns the winners for date, fewest turns first, then fastest.
func (s *Store) Leaderboard(ctx context.Context, date string, limit int) ([]LBRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, turns, elapsed_ms
		 FROM daily_results
		 WHERE date=? AND won=1
		 ORDER BY turns ASC, elapsed_ms ASC, created_at ASC
		 LIMIT ?`, date, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("daily: leaderboard: %w", err)
	}
	defer rows.Close()

	out := make([]LBRow, 0, limit)
	for rows.Next() {
		var r LBRow
		if err := rows.Scan(&r.UserID, &r.Turns, &r.ElapsedMs); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
