package kv

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	testRedis "github.com/testcontainers/testcontainers-go/modules/redis"

	inErrors "github.com/Alturino/storefront/internal/errors"
)

func setupRedis(t *testing.T, c context.Context) *redis.Client {
	t.Helper()

	redisContainer, err := testRedis.Run(c, "redis:7.4.2-alpine3.21")
	if err != nil {
		t.Fatalf("failed running redis container with error: %s", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(redisContainer); err != nil {
			t.Fatalf("failed to terminate container: %s", err)
		}
	})

	connStr, err := redisContainer.ConnectionString(c)
	if err != nil {
		t.Fatalf("failed getting redis connection string with error: %s", err)
	}
	opt, err := redis.ParseURL(connStr)
	if err != nil {
		t.Fatalf("failed parsing redis connection string with error: %s", err)
	}

	client := redis.NewClient(opt)
	t.Cleanup(func() { client.Close() })
	if err := client.Ping(c).Err(); err != nil {
		t.Fatalf("failed ping redis client with error: %s", err)
	}
	return client
}

func TestRedis(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}

	c := context.Background()
	store := NewPrefixed(NewRedis(setupRedis(t, c)), "storefront:")

	_, err := store.Get(c, "cart")
	assert.ErrorIs(t, err, inErrors.ErrNotFound)

	require.NoError(t, store.Set(c, "cart", `[{"id":1,"quantity":2}]`))
	value, err := store.Get(c, "cart")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":1,"quantity":2}]`, value)

	require.NoError(t, store.Delete(c, "cart"))
	_, err = store.Get(c, "cart")
	assert.ErrorIs(t, err, inErrors.ErrNotFound)
}
