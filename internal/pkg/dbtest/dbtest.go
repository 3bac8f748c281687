// Package dbtest starts throwaway Postgres and Redis containers for
// integration tests. Every helper skips the test under -short or when no
// container provider is reachable.
package dbtest

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/taskdeck/internal/pkg/migration"
	"github.com/shandysiswandi/taskdeck/migrations"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

const (
	postgresImage = "postgres:17-alpine"
	redisImage    = "redis:7-alpine"
)

func skip(t *testing.T) {
	t.Helper()

	if testing.Short() {
		t.Skip("integration test")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
}

// PostgresDSN starts an empty Postgres and returns its connection string.
func PostgresDSN(t *testing.T) string {
	t.Helper()
	skip(t)

	ctx := context.Background()
	ctr, err := postgres.Run(ctx, postgresImage,
		postgres.WithDatabase("taskdeck"),
		postgres.WithUsername("taskdeck"),
		postgres.WithPassword("taskdeck"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	return dsn
}

// Postgres starts Postgres, applies every migration and returns a pool.
func Postgres(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := PostgresDSN(t)
	_, err := migration.Run(dsn, migrations.FS, migration.Up)
	require.NoError(t, err)

	pool, err := pgxpool.New(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return pool
}

// RedisURL starts Redis and returns its redis:// URL.
func RedisURL(t *testing.T) string {
	t.Helper()
	skip(t)

	ctx := context.Background()
	ctr, err := tcredis.Run(ctx, redisImage)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	uri, err := ctr.ConnectionString(ctx)
	require.NoError(t, err)

	return uri
}

// Redis starts Redis and returns a connected client.
func Redis(t *testing.T) *redis.Client {
	t.Helper()

	opt, err := redis.ParseURL(RedisURL(t))
	require.NoError(t, err)

	client := redis.NewClient(opt)
	t.Cleanup(func() { _ = client.Close() })

	return client
}
