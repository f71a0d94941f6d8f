package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"ms-reconciliation/internal/auth"
)

func TestTokenCacheIsValid(t *testing.T) {
	var nilCache *auth.TokenCache
	assert.False(t, nilCache.IsValid())

	assert.False(t, (&auth.TokenCache{}).IsValid())

	expired := &auth.TokenCache{Token: "t", ExpiresAt: time.Now().Add(-time.Minute)}
	assert.False(t, expired.IsValid())

	// Within the refresh buffer counts as expired.
	almostExpired := &auth.TokenCache{Token: "t", ExpiresAt: time.Now().Add(30 * time.Second)}
	assert.False(t, almostExpired.IsValid())

	valid := &auth.TokenCache{Token: "t", ExpiresAt: time.Now().Add(10 * time.Minute)}
	assert.True(t, valid.IsValid())
}

// TestTokenCacheIntegration exercises the cache against a real Redis container
func TestTokenCacheIntegration(t *testing.T) {
	// Skip if short test mode
	if testing.Short() {
		t.Skip("Skipping Redis integration test in short mode")
	}

	ctx := context.Background()
	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:latest",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}
	defer redisContainer.Terminate(ctx)

	host, err := redisContainer.Host(ctx)
	require.NoError(t, err)

	port, err := redisContainer.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr:     host + ":" + port.Port(),
		Password: "",
		DB:       0,
	})
	cache := auth.NewRedisTokenCache(client)

	// Empty cache: no token, no error.
	cached, err := cache.GetToken(ctx)
	require.NoError(t, err)
	assert.Nil(t, cached)

	// Round trip.
	require.NoError(t, cache.SetToken(ctx, "platform-token", 300))
	cached, err = cache.GetToken(ctx)
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, "platform-token", cached.Token)

	// A token inside the expiry buffer is treated as missing.
	require.NoError(t, cache.SetToken(ctx, "short-lived", 10))
	cached, err = cache.GetToken(ctx)
	require.NoError(t, err)
	assert.Nil(t, cached, "tokens about to expire should not be handed out")
}
