//go:build integration

package auth_test

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"tunishield/internal/auth"
	redisx "tunishield/internal/redis"
)

func newRedis(t *testing.T) *goredis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	endpoint, err := container.Endpoint(ctx, "redis")
	require.NoError(t, err)

	client, err := redisx.New(ctx, endpoint)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisIntegration(t *testing.T) {
	ctx := context.Background()
	client := newRedis(t)

	t.Run("oauth state is single use", func(t *testing.T) {
		store := &auth.RedisStateStore{Redis: client, TTL: time.Minute}
		require.NoError(t, store.Save(ctx, "abc", auth.OAuthState{ReturnTo: "/quiz"}))

		ttl, err := client.TTL(ctx, "oauth_state:abc").Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, time.Duration(0))

		st, err := store.Consume(ctx, "abc")
		require.NoError(t, err)
		require.NotNil(t, st)
		assert.Equal(t, "/quiz", st.ReturnTo)

		st, err = store.Consume(ctx, "abc")
		require.NoError(t, err)
		assert.Nil(t, st)
	})

	t.Run("audit list is capped", func(t *testing.T) {
		audit := &auth.AuditLogger{Redis: client, MaxLen: 3}
		for i := 0; i < 5; i++ {
			require.NoError(t, audit.Log(ctx, auth.AuditEvent{
				EventType: auth.EventLogin,
				UserID:    "u-1",
				Meta:      map[string]any{"n": i},
			}))
		}

		n, err := client.LLen(ctx, "audit:u-1").Result()
		require.NoError(t, err)
		assert.EqualValues(t, 3, n)

		events, err := audit.Recent(ctx, "u-1", 10)
		require.NoError(t, err)
		require.Len(t, events, 3)
		assert.EqualValues(t, 4, events[2].Meta["n"])
		assert.False(t, events[0].Timestamp.IsZero())
	})
}
