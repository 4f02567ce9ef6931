// internal/auth/middleware.go
//
// Request authentication middleware.
// Responsibilities:
//   - Optional: attach the caller to the context when a valid token is present.
//   - Require: reject requests without a valid token for a live user (401).

package auth

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/hlog"
)

// User is placed into the request context by the middleware.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Lookup confirms a token's user still exists.
type Lookup func(ctx context.Context, id string) error

type ctxUserKey struct{}

// FromContext returns the authenticated user, or nil for guests.
func FromContext(ctx context.Context) *User {
	u, _ := ctx.Value(ctxUserKey{}).(*User)
	return u
}

// WithUser returns ctx carrying u.
func WithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, ctxUserKey{}, u)
}

func (is *Issuer) resolve(r *http.Request, lookup Lookup) (*User, bool) {
	tok := is.Token(r)
	if tok == "" {
		return nil, false
	}
	claims, err := is.Parse(tok)
	if err != nil {
		return nil, false
	}
	if lookup != nil {
		if err := lookup(r.Context(), claims.ID); err != nil {
			hlog.FromRequest(r).Debug().Err(err).Str("user", claims.ID).Msg("token user lookup failed")
			return nil, false
		}
	}
	return &User{ID: claims.ID, Username: claims.Username}, true
}

// Optional decorates requests with the user when a valid token is present.
// It never rejects; guests pass through.
func (is *Issuer) Optional(lookup Lookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if u, ok := is.resolve(r, lookup); ok {
				r = r.WithContext(WithUser(r.Context(), u))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Require rejects requests without a valid token.
func (is *Issuer) Require(lookup Lookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if is.Token(r) == "" {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}
			u, ok := is.resolve(r, lookup)
			if !ok {
				http.Error(w, `{"error":"invalid_token"}`, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
		})
	}
}
