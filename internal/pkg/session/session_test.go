package session

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type countingSource struct {
	calls int
	token *oauth2.Token
	err   error
}

func (c *countingSource) Token() (*oauth2.Token, error) {
	c.calls++
	return c.token, c.err
}

func TestFromAccessToken(t *testing.T) {
	s, err := FromAccessToken("  Bearer abc.def.ghi ")
	require.NoError(t, err)

	tok, err := s.Token()
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", tok.AccessToken)
	assert.Equal(t, "Bearer", tok.Type())

	_, err = FromAccessToken("   ")
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestSession_ReusesValidToken(t *testing.T) {
	src := &countingSource{token: &oauth2.Token{AccessToken: "t1"}}
	s := New(src)

	for range 3 {
		tok, err := s.Token()
		require.NoError(t, err)
		assert.Equal(t, "t1", tok.AccessToken)
	}
	assert.Equal(t, 1, src.calls)
}

func TestSession_PropagatesSourceError(t *testing.T) {
	boom := errors.New("refresh failed")
	s := New(&countingSource{err: boom})

	_, err := s.Token()
	assert.ErrorIs(t, err, boom)
}

func TestSession_Close(t *testing.T) {
	src := &countingSource{token: &oauth2.Token{AccessToken: "t1"}}
	s := New(src)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.True(t, s.Closed())

	_, err := s.Token()
	assert.ErrorIs(t, err, ErrSessionClosed)
	assert.Zero(t, src.calls)
}
