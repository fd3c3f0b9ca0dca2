package jwt

import (
	"errors"
	"strings"
	"time"

	libJWT "github.com/golang-jwt/jwt/v5"
)

// Symmetric implements JWT signing and verification using an HMAC secret.
type Symmetric struct {
	method    *libJWT.SigningMethodHMAC
	secret    []byte
	issuer    string
	audiences []string
	ttl       time.Duration
	leeway    time.Duration
	clock     clocker
	uuid      generator
}

// NewSymmetric builds an HMAC implementation for cfg.Algorithm.
func NewSymmetric(cfg Config) (*Symmetric, error) {
	var method *libJWT.SigningMethodHMAC
	switch strings.ToUpper(strings.TrimSpace(cfg.Algorithm)) {
	case "", "HS256":
		method = libJWT.SigningMethodHS256
	case "HS512":
		method = libJWT.SigningMethodHS512
	default:
		return nil, ErrInvalidSigningMethod
	}

	if len(cfg.Secret) < method.Hash.Size() {
		return nil, ErrSigningKeyTooShort
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}

	return &Symmetric{
		method:    method,
		secret:    cfg.Secret,
		issuer:    cfg.Issuer,
		audiences: cfg.Audiences,
		ttl:       ttl,
		leeway:    cfg.Leeway,
		clock:     cfg.Clock,
		uuid:      cfg.UUID,
	}, nil
}

// Generate creates a signed token whose subject is identity.
func (s *Symmetric) Generate(identity, email string) (string, error) {
	now := s.now()

	claims := Claims{
		RegisteredClaims: libJWT.RegisteredClaims{
			Subject:   identity,
			Issuer:    s.issuer,
			Audience:  s.audiences,
			IssuedAt:  libJWT.NewNumericDate(now),
			NotBefore: libJWT.NewNumericDate(now),
			ExpiresAt: libJWT.NewNumericDate(now.Add(s.ttl)),
		},
		Email: email,
		Role:  "authenticated",
	}
	if s.uuid != nil {
		claims.ID = s.uuid.Generate()
	}

	return libJWT.NewWithClaims(s.method, claims).SignedString(s.secret)
}

// Verify parses and validates a JWT string.
func (s *Symmetric) Verify(tokenStr string) (Claims, error) {
	var claims Claims

	opts := []libJWT.ParserOption{
		libJWT.WithValidMethods([]string{s.method.Alg()}),
		libJWT.WithExpirationRequired(),
		libJWT.WithIssuedAt(),
		libJWT.WithLeeway(s.leeway),
		libJWT.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, libJWT.WithIssuer(s.issuer))
	}
	if len(s.audiences) > 0 {
		opts = append(opts, libJWT.WithAudience(s.audiences...))
	}

	token, err := libJWT.ParseWithClaims(tokenStr, &claims, func(t *libJWT.Token) (any, error) {
		if t.Method != s.method {
			return nil, ErrInvalidSigningMethod
		}
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, libJWT.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, err
	}

	if !token.Valid {
		return Claims{}, ErrInvalidToken
	}

	if strings.TrimSpace(claims.Subject) == "" {
		return Claims{}, ErrMissingSubject
	}

	return claims, nil
}

func (s *Symmetric) now() time.Time {
	if s.clock == nil {
		return time.Now()
	}
	return s.clock.Now()
}
