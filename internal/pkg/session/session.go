// Package session holds the signed-in operator's credential for the length
// of a sign-in. It replaces any process-wide auth state: callers construct a
// Session on sign-in, pass it to whatever needs a token and close it on
// sign-out.
package session

import (
	"errors"
	"strings"

	"go.uber.org/atomic"
	"golang.org/x/oauth2"
)

// ErrSessionClosed is returned by Token after Close.
var ErrSessionClosed = errors.New("session: closed")

// ErrMissingToken is returned by FromAccessToken for a blank token.
var ErrMissingToken = errors.New("session: access token is required")

// Session is an oauth2.TokenSource bound to one sign-in.
type Session struct {
	src    oauth2.TokenSource
	closed atomic.Bool
}

// New wraps src so tokens are reused until they expire.
func New(src oauth2.TokenSource) *Session {
	return &Session{src: oauth2.ReuseTokenSource(nil, src)}
}

// FromAccessToken builds a session around a bearer token issued elsewhere.
func FromAccessToken(accessToken string) (*Session, error) {
	accessToken = strings.TrimSpace(accessToken)
	accessToken = strings.TrimPrefix(accessToken, "Bearer ")
	if accessToken == "" {
		return nil, ErrMissingToken
	}

	return New(oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	})), nil
}

// Token returns the current token, or ErrSessionClosed after sign-out.
func (s *Session) Token() (*oauth2.Token, error) {
	if s.closed.Load() {
		return nil, ErrSessionClosed
	}
	return s.src.Token()
}

// Closed reports whether the operator has signed out.
func (s *Session) Closed() bool {
	return s.closed.Load()
}

// Close ends the session. It is safe to call more than once.
func (s *Session) Close() error {
	s.closed.Store(true)
	return nil
}
