package client

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClickHouseURL(t *testing.T) {
	tests := []struct {
		raw  string
		want chTarget
	}{
		{"http://ch.local", chTarget{addr: "ch.local:9000", host: "ch.local"}},
		{"https://ch.local/", chTarget{addr: "ch.local:9440", host: "ch.local", secure: true}},
		{"ch.local:19000", chTarget{addr: "ch.local:19000", host: "ch.local"}},
		{"clickhouse://ch.local/elections?secure=true", chTarget{addr: "ch.local:9440", host: "ch.local", database: "elections", secure: true}},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := parseClickHouseURL(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := parseClickHouseURL("clickhouse:///db")
	assert.Error(t, err)
}

func TestLoadCertPoolRejectsEmptyBundle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ca.pem")
	require.NoError(t, os.WriteFile(path, []byte("not a certificate"), 0600))

	_, err := loadCertPool(path)
	assert.Error(t, err)
}

func TestRedisIncrWithExpireKeepsFixedWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := NewRedisClientFromConn(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	ctx := context.Background()

	n, err := rc.IncrWithExpire(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	mr.FastForward(40 * time.Second)
	n, err = rc.IncrWithExpire(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, 20*time.Second, mr.TTL("k"))

	require.NoError(t, rc.HealthCheck(ctx))
}
