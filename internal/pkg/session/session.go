// Package session keeps small per-browser state in a signed cookie.
//
// The cookie holds an HS256 token, so the client can read but not forge it.
// Anything that fails to verify (tampered, expired, signed with an old key)
// is treated as an empty session rather than an error.
package session

import (
	"errors"
	"net/http"
	"time"

	libJWT "github.com/golang-jwt/jwt/v5"
	"github.com/shandysiswandi/mailbite/internal/pkg/clock"
)

const maxCookieBytes = 4000

var (
	// ErrSecretTooShort is returned for secrets under 32 bytes.
	ErrSecretTooShort = errors.New("session: secret must be at least 32 bytes")
	// ErrTooLarge is returned by Issue when the encoded cookie would not fit in a browser.
	ErrTooLarge = errors.New("session: data too large for cookie")
)

// Data is what a session remembers between requests.
type Data struct {
	Subject         string `json:"subj,omitempty"`
	Body            string `json:"body,omitempty"`
	RecipientsToken string `json:"rtok,omitempty"`
	UserID          string `json:"uid,omitempty"`
}

// IsZero reports whether d holds nothing.
func (d Data) IsZero() bool {
	return d == Data{}
}

type claims struct {
	libJWT.RegisteredClaims
	Data
}

// Config configures a Cookie.
type Config struct {
	Name   string
	Secret []byte
	// TTL is both the cookie Max-Age and the token expiry.
	TTL    time.Duration
	Secure bool
	Path   string
	Clock  clock.Clocker
}

// Cookie loads and stores Data in an http cookie.
type Cookie struct {
	cfg Config
}

// New validates cfg and fills defaults.
func New(cfg Config) (*Cookie, error) {
	if len(cfg.Secret) < 32 {
		return nil, ErrSecretTooShort
	}
	if cfg.Name == "" {
		cfg.Name = "mailbite_session"
	}
	if cfg.Path == "" {
		cfg.Path = "/"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}

	return &Cookie{cfg: cfg}, nil
}

// Load returns the session carried by r, or zero Data.
func (c *Cookie) Load(r *http.Request) Data {
	ck, err := r.Cookie(c.cfg.Name)
	if err != nil || ck.Value == "" {
		return Data{}
	}

	var cl claims
	_, err = libJWT.ParseWithClaims(ck.Value, &cl,
		func(*libJWT.Token) (any, error) { return c.cfg.Secret, nil },
		libJWT.WithValidMethods([]string{libJWT.SigningMethodHS256.Alg()}),
		libJWT.WithExpirationRequired(),
		libJWT.WithTimeFunc(c.cfg.Clock.Now),
	)
	if err != nil {
		return Data{}
	}

	return cl.Data
}

// Issue returns the cookie carrying d, or an expired one for zero Data.
func (c *Cookie) Issue(d Data) (*http.Cookie, error) {
	if d.IsZero() {
		return c.cookie("", -1), nil
	}

	now := c.cfg.Clock.Now()
	token, err := libJWT.NewWithClaims(libJWT.SigningMethodHS256, claims{
		RegisteredClaims: libJWT.RegisteredClaims{
			IssuedAt:  libJWT.NewNumericDate(now),
			ExpiresAt: libJWT.NewNumericDate(now.Add(c.cfg.TTL)),
		},
		Data: d,
	}).SignedString(c.cfg.Secret)
	if err != nil {
		return nil, err
	}
	if len(token)+len(c.cfg.Name) > maxCookieBytes {
		return nil, ErrTooLarge
	}

	return c.cookie(token, int(c.cfg.TTL/time.Second)), nil
}

func (c *Cookie) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     c.cfg.Name,
		Value:    value,
		Path:     c.cfg.Path,
		MaxAge:   maxAge,
		Secure:   c.cfg.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}
