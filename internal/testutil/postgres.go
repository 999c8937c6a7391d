// Package testutil starts the databases and builds the fixtures used by
// integration tests.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"nascon-platform/internal/db"
)

var (
	pgOnce sync.Once
	pgPool *pgxpool.Pool
	pgErr  error
)

// Postgres returns a pool on a migrated, empty PostgreSQL 16 database.
// One container is shared by every test of the package and is removed by
// the testcontainers reaper when the test binary exits. Tests are skipped in
// -short mode and when no container runtime is available.
func Postgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test: skipped in -short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	pgOnce.Do(func() {
		pgPool, pgErr = startPostgres(context.Background())
	})
	require.NoError(t, pgErr)

	Reset(t, pgPool)
	return pgPool
}

func startPostgres(ctx context.Context) (*pgxpool.Pool, error) {
	ctr, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("nascon"),
		postgres.WithUsername("nascon"),
		postgres.WithPassword("nascon"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		return nil, fmt.Errorf("start postgres container: %w", err)
	}

	url, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = ctr.Terminate(ctx)
		return nil, fmt.Errorf("postgres connection string: %w", err)
	}

	pool, err := db.Connect(ctx, url, 40, 45*time.Second, zerolog.Nop())
	if err != nil {
		_ = ctr.Terminate(ctx)
		return nil, err
	}
	if err := db.Migrate(ctx, pool, zerolog.Nop()); err != nil {
		pool.Close()
		_ = ctr.Terminate(ctx)
		return nil, err
	}
	return pool, nil
}

var appTables = []string{
	"activity_logs", "payments", "sponsorships", "sponsors",
	"user_accommodations", "accommodations", "judging", "participants",
	"event_judges", "event_rounds", "events", "venues", "users",
}

// Reset empties every application table and restarts the id sequences.
func Reset(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	_, err := pool.Exec(context.Background(),
		"TRUNCATE TABLE "+strings.Join(appTables, ", ")+" RESTART IDENTITY CASCADE")
	require.NoError(t, err)
}
