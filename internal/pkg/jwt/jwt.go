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

	// ErrSigningKeyTooShort is returned when the HMAC key is shorter than the hash output.
	ErrSigningKeyTooShort = errors.New("HMAC signing key is shorter than the hash size")

	// ErrTokenExpired is returned when the JWT token has expired.
	ErrTokenExpired = errors.New("JWT token has expired")

	// ErrInvalidToken is returned when the token is malformed or fails validation.
	ErrInvalidToken = errors.New("invalid token")

	// ErrMissingSubject is returned when a valid token carries no subject.
	ErrMissingSubject = errors.New("token has no subject")
)

// JWT issues and verifies the bearer credentials of the identity provider.
type JWT interface {
	// Generate signs a token for identity. Used by tests.
	Generate(identity, email string) (string, error)
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
	// Algorithm is HS256 (default) or HS512.
	Algorithm string
	// Issuer is the expected token issuer. Empty disables the check.
	Issuer string
	// Audiences are the accepted token audiences. Empty disables the check.
	Audiences []string
	// TTL is the lifetime of generated tokens.
	TTL time.Duration
	// Leeway tolerates clock drift on exp/nbf/iat.
	Leeway time.Duration
	// Clock provides the current time source.
	Clock clocker
	// UUID generates token IDs.
	UUID generator
}

// Claims are the identity provider's token claims.
type Claims struct {
	jwt.RegisteredClaims
	// Email is the account email, used as the authenticator label.
	Email string `json:"email,omitempty"`
	// Role is the provider role (for example "authenticated").
	Role string `json:"role,omitempty"`
}

// Identity returns the opaque subject identifier.
func (c Claims) Identity() string {
	return c.Subject
}

// AccountLabel returns the label shown in authenticator apps.
func (c Claims) AccountLabel() string {
	if c.Email != "" {
		return c.Email
	}
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

// SetAuth stores JWT claims in the context.
func SetAuth(ctx context.Context, clm Claims) context.Context {
	return context.WithValue(ctx, jwtContextKey{}, clm)
}
