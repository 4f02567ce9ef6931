// internal/auth/auth.go
//
// Account authentication for players.
// Responsibilities:
//   - bcrypt password hashing and verification.
//   - HS256 JWT signing/parsing (id + username claims).
//   - Auth cookie and anonymous-player cookie handling.
//   - Signup credential validation.
//
// Notes:
//   - Tokens are accepted from "Authorization: Bearer" first, then the cookie.
//   - Secure cookies switch SameSite to None so a cross-origin client can send them.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// AnonCookieName holds the stable identifier of a guest player.
const AnonCookieName = "hitblow_anon"

var ErrInvalidToken = errors.New("auth: invalid token")

// Claims carried by a session token.
type Claims struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Options configure an Issuer.
type Options struct {
	Secret     string
	TTL        time.Duration
	CookieName string
	Secure     bool
}

// Issuer signs and verifies tokens and owns the cookie attributes.
type Issuer struct {
	secret     []byte
	ttl        time.Duration
	cookieName string
	secure     bool
	now        func() time.Time
}

func NewIssuer(o Options) *Issuer {
	if o.TTL <= 0 {
		o.TTL = 14 * 24 * time.Hour
	}
	if o.CookieName == "" {
		o.CookieName = "hitblow_token"
	}
	return &Issuer{secret: []byte(o.Secret), ttl: o.TTL, cookieName: o.CookieName, secure: o.Secure, now: time.Now}
}

// Sign returns a token for the user and its expiry.
func (is *Issuer) Sign(id, username string) (string, time.Time, error) {
	now := is.now()
	exp := now.Add(is.ttl)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		ID:       id,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	})
	ss, err := t.SignedString(is.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: sign: %w", err)
	}
	return ss, exp, nil
}

// Parse verifies a token and returns its claims.
func (is *Issuer) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	t, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return is.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(is.now))
	if err != nil || !t.Valid {
		return nil, ErrInvalidToken
	}
	if claims.ID == "" || claims.Username == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Token extracts a bearer token from the Authorization header or auth cookie.
func (is *Issuer) Token(r *http.Request) string {
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	if c, err := r.Cookie(is.cookieName); err == nil {
		return c.Value
	}
	return ""
}

func (is *Issuer) sameSite() http.SameSite {
	if is.secure {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}

// SetCookie writes the auth cookie.
func (is *Issuer) SetCookie(w http.ResponseWriter, token string, exp time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     is.cookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   is.secure,
		SameSite: is.sameSite(),
		Expires:  exp,
	})
}

// ClearCookie deletes the auth cookie.
func (is *Issuer) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     is.cookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   is.secure,
		SameSite: is.sameSite(),
		MaxAge:   -1,
	})
}

// AnonID returns the guest identifier cookie, setting a new one if absent.
func (is *Issuer) AnonID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(AnonCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     AnonCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   is.secure,
		SameSite: is.sameSite(),
		Expires:  is.now().Add(180 * 24 * time.Hour),
	})
	// later calls while serving r see the same ID
	r.AddCookie(&http.Cookie{Name: AnonCookieName, Value: id})
	return id
}

// HashPassword hashes pw with bcrypt's default cost.
func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}

func CheckPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// Credentials is the body of signup and login requests.
type Credentials struct {
	Username string `json:"username" validate:"required,min=3,max=24,username"`
	Password string `json:"password" validate:"required,min=8,max=100"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		for _, r := range fl.Field().String() {
			if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
				return false
			}
		}
		return true
	})
	return v
}

// Normalize trims the username.
func (c *Credentials) Normalize() { c.Username = strings.TrimSpace(c.Username) }

// ValidateSignup enforces the username and password rules and returns a
// message fit for the client.
func (c Credentials) ValidateSignup() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	switch fe := verrs[0]; {
	case fe.Field() == "Username" && fe.Tag() == "username":
		return errors.New("username: letters, numbers, underscore only")
	case fe.Field() == "Username":
		return errors.New("username must be 3-24 chars")
	default:
		return errors.New("password must be 8-100 chars")
	}
}
