package jwt

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidSigningMethod is returned when the JWT signing method is not supported.
	ErrInvalidSigningMethod = errors.New("invalid JWT signing method")

	// ErrSigningKeyTooShort is returned when the HS512 signing key is less than 64 bytes.
	ErrSigningKeyTooShort = errors.New("HS512 signing key must be at least 64 bytes (512 bits)")

	// ErrTokenExpired is returned when the JWT token has expired.
	ErrTokenExpired = errors.New("JWT token has expired")

	// ErrInvalidToken is returned when the token is malformed or fails validation.
	ErrInvalidToken = errors.New("invalid token")

	// ErrSubjectRequired is returned when a token has no subject claim.
	ErrSubjectRequired = errors.New("JWT subject is required")
)

// Verifier validates identity tokens.
type Verifier interface {
	// Verify parses and validates the token and returns claims.
	Verify(tokenStr string) (Claims, error)
}

type clocker interface {
	Now() time.Time
}

type generator interface {
	Generate() string
}

type jwtContextKey struct{}

// Config defines the inputs for building a JWT implementation.
type Config struct {
	// Secret is the HMAC signing key shared with the identity provider.
	Secret []byte
	// Issuer is the expected token issuer.
	Issuer string
	// Audiences are the accepted token audiences.
	Audiences []string
	// TTL is the lifetime of tokens produced by Generate.
	TTL time.Duration
	// Clock provides the current time source.
	Clock clocker
	// UUID generates token IDs.
	UUID generator
}

// Claims are the registered claims plus the optional email of the caller.
type Claims struct {
	jwt.RegisteredClaims
	// Email is informational and never used for authorization.
	Email string `json:"email,omitempty"`
}

// UserID returns the opaque user identifier (the subject claim).
func (c Claims) UserID() string {
	return c.Subject
}

// GetAuth returns the JWT claims stored in the context, if any.
func GetAuth(ctx context.Context) *Claims {
	clm, ok := ctx.Value(jwtContextKey{}).(Claims)
	if !ok {
		return nil
	}

	return &clm
}

// UserID returns the authenticated user id stored in ctx, or "" for an
// anonymous caller.
func UserID(ctx context.Context) string {
	if clm := GetAuth(ctx); clm != nil {
		return clm.UserID()
	}
	return ""
}

// SetAuth stores JWT claims in the context.
func SetAuth(ctx context.Context, clm Claims) context.Context {
	return context.WithValue(ctx, jwtContextKey{}, clm)
}
