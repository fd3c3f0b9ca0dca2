package cache

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/posture/internal/pkg/goerror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	if testing.Short() {
		t.Skip("redis container test skipped in -short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	ctr, err := tcredis.Run(ctx, "redis:7-alpine")
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	uri, err := ctr.ConnectionString(ctx)
	require.NoError(t, err)

	opts, err := redis.ParseURL(uri)
	require.NoError(t, err)

	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })

	return NewCache(client, nil)
}

func TestCache_CredentialLifecycle(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	identity := "c4ca4238-a0b9-4382-8dcc-509a6f75849b"

	_, err := c.GetCredential(ctx, identity)
	assert.ErrorIs(t, err, goerror.ErrNotFound)

	require.NoError(t, c.ClearCredential(ctx, identity))
	_, err = c.GetCredential(ctx, identity)
	assert.ErrorIs(t, err, goerror.ErrNotFound, "clearing does not create a record")

	sealed := []byte{0x00, 0x01, 0xff, 'x'}
	require.NoError(t, c.SaveCredential(ctx, identity, sealed))

	cred, err := c.GetCredential(ctx, identity)
	require.NoError(t, err)
	assert.True(t, cred.Active())
	assert.Equal(t, sealed, cred.Secret)
	assert.False(t, cred.UpdatedAt.IsZero())

	require.NoError(t, c.ClearCredential(ctx, identity))
	cred, err = c.GetCredential(ctx, identity)
	require.NoError(t, err)
	assert.False(t, cred.Enabled)
	assert.Empty(t, cred.Secret)
}
