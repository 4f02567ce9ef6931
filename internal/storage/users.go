// internal/storage/users.go
//
// Account rows: create, look up by ID or username.

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrUsernameTaken is returned by CreateUser for a case-insensitive clash.
var ErrUsernameTaken = errors.New("storage: username taken")

// User matches the users table.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	GamesPlayed  int       `json:"gamesPlayed"`
	Wins         int       `json:"wins"`
	Streak       int       `json:"streak"`
}

// CreateUser inserts a user with an already hashed password.
func (d *DB) CreateUser(ctx context.Context, username, passwordHash string) (*User, error) {
	var exists int
	err := d.SQL.QueryRowContext(ctx, `SELECT 1 FROM users WHERE lower(username)=lower(?)`, username).Scan(&exists)
	if err == nil {
		return nil, ErrUsernameTaken
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("storage: check username: %w", err)
	}

	u := &User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}
	_, err = d.SQL.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, created_at) VALUES (?,?,?,?)`,
		u.ID, u.Username, u.PasswordHash, u.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("storage: insert user: %w", err)
	}
	return u, nil
}

// UserByUsername loads a user, matching the name case-insensitively.
func (d *DB) UserByUsername(ctx context.Context, username string) (*User, error) {
	row := d.SQL.QueryRowContext(ctx, `SELECT id, username, password_hash, created_at, games_played, wins, streak
	                                   FROM users WHERE lower(username)=lower(?)`, username)
	return scanUser(row)
}

// UserByID loads a user by primary key.
func (d *DB) UserByID(ctx context.Context, id string) (*User, error) {
	row := d.SQL.QueryRowContext(ctx, `SELECT id, username, password_hash, created_at, games_played, wins, streak
	                                   FROM users WHERE id=?`, id)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*User, error) {
	var u User
	var created string
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &created, &u.GamesPlayed, &u.Wins, &u.Streak); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	u.CreatedAt, _ = time.Parse(time.RFC3339, created)
	return &u, nil
}

// bumpStats increments games played and updates wins and streak (within tx).
func bumpStats(ctx context.Context, tx *sql.Tx, userID string, won bool) error {
	var gp, wins, streak int
	row := tx.QueryRowContext(ctx, `SELECT games_played, wins, streak FROM users WHERE id=?`, userID)
	if err := row.Scan(&gp, &wins, &streak); err != nil {
		return err
	}
	gp++
	if won {
		wins++
		streak++
	} else {
		streak = 0
	}
	_, err := tx.ExecContext(ctx, `UPDATE users SET games_played=?, wins=?, streak=? WHERE id=?`, gp, wins, streak, userID)
	return err
}
