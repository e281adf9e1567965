package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"election-service/internal/client"
)

func newTestClient(t *testing.T) (*client.RedisClient, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	conn := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = conn.Close() })
	return client.NewRedisClientFromConn(conn), mr
}

func TestRevokedTokenExpires(t *testing.T) {
	rc, mr := newTestClient(t)
	cache := NewSessionCache(rc)
	ctx := context.Background()

	require.NoError(t, cache.RevokeToken(ctx, "jti-1", time.Minute))

	revoked, err := cache.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = cache.IsRevoked(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)

	mr.FastForward(2 * time.Minute)
	revoked, err = cache.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRevokeWithExpiredTTLIsNoop(t *testing.T) {
	rc, mr := newTestClient(t)
	cache := NewSessionCache(rc)

	require.NoError(t, cache.RevokeToken(context.Background(), "jti", 0))
	assert.Empty(t, mr.Keys())
}

func TestLoginLockAfterMaxFailures(t *testing.T) {
	rc, mr := newTestClient(t)
	limiter := NewRateLimitCache(rc, 3, 15*time.Minute, 15*time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		locked, err := limiter.RecordFailure(ctx, "ada")
		require.NoError(t, err)
		assert.False(t, locked)
	}

	locked, err := limiter.RecordFailure(ctx, "ada")
	require.NoError(t, err)
	assert.True(t, locked)

	isLocked, err := limiter.IsLocked(ctx, "ada")
	require.NoError(t, err)
	assert.True(t, isLocked)

	other, err := limiter.IsLocked(ctx, "grace")
	require.NoError(t, err)
	assert.False(t, other)

	mr.FastForward(16 * time.Minute)
	isLocked, err = limiter.IsLocked(ctx, "ada")
	require.NoError(t, err)
	assert.False(t, isLocked)
}

func TestResetClearsAttempts(t *testing.T) {
	rc, mr := newTestClient(t)
	limiter := NewRateLimitCache(rc, 3, time.Minute, time.Minute)
	ctx := context.Background()

	_, err := limiter.RecordFailure(ctx, "ada")
	require.NoError(t, err)
	require.NoError(t, limiter.Reset(ctx, "ada"))
	assert.False(t, mr.Exists(loginAttemptPrefix+"ada"))
}
