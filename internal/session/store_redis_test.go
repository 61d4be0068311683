package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/temirrrr/job-tracker/internal/logging"
)

func setupRedisStore(t *testing.T, key string) *RedisStore {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	url, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	client, err := NewRedisClient(url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisStore(client, key)
}

func TestRedisStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	st := setupRedisStore(t, "")
	s := New(st, logging.Discard())

	assert.False(t, s.Authenticated(ctx))

	require.NoError(t, s.SetCredential(ctx, "abc"))
	token, ok := s.Credential(ctx)
	require.True(t, ok)
	assert.Equal(t, "abc", token)

	require.NoError(t, s.ClearCredential(ctx))
	assert.False(t, s.Authenticated(ctx))
}

func TestNewRedisClient_BadURL(t *testing.T) {
	_, err := NewRedisClient("not a url")
	assert.Error(t, err)
}
