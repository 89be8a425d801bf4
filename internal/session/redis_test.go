package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/dukerupert/leadportal/internal/model"
)

func TestRedisStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping redis integration test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("redis container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client, err := Connect(ctx, endpoint, "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	store := NewRedisStore(client)

	sess := &model.Session{
		ID:        "redis-session",
		Data:      model.SessionData{PartnerID: 3, PartnerEmail: "p@example.com"},
		ExpiresAt: time.Now().Add(time.Hour).UTC(),
	}
	require.NoError(t, store.Save(ctx, sess))

	got, err := store.Get(ctx, "redis-session")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, sess.Data, got.Data)

	ttl, err := client.TTL(ctx, redisKeyPrefix+"redis-session").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 50*time.Minute)

	require.NoError(t, store.Delete(ctx, "redis-session"))
	got, err = store.Get(ctx, "redis-session")
	require.NoError(t, err)
	assert.Nil(t, got)

	missing, err := store.Get(ctx, "never-saved")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
