// Package daily derives one shared puzzle per calendar day.
//
// Every player gets the same secret for a date: the generator is seeded with
// HMAC-SHA256(salt, "YYYY-MM-DD"), so the answer cannot be guessed from the date
// alone but is stable across restarts.
package daily

import (
	"crypto/hmac"
	"crypto/sha256"
	"time"

	"github.com/robalobadob/hitblow/internal/game"
)

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Seed returns the 32-byte generator seed for a date.
func Seed(date time.Time, salt string) [32]byte {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(DateKey(date)))
	var seed [32]byte
	copy(seed[:], h.Sum(nil))
	return seed
}

// Secret returns the puzzle for date under rules.
func Secret(date time.Time, salt string, rules game.Rules) (game.Secret, error) {
	return game.Generate(game.NewSeededRand(Seed(date, salt)), rules.Palette, rules.Length)
}

// NewSession starts a session on the day's puzzle.
func NewSession(date time.Time, salt string, rules game.Rules) (*game.Session, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	secret, err := Secret(date, salt, rules)
	if err != nil {
		return nil, err
	}
	return game.NewSession(rules, secret)
}
