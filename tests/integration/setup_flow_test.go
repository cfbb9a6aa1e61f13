package integration

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"memosetup/bootstrap"
	"memosetup/migrate"
)

// TestPostgresSetupFlow exercises the readiness poll and the migration
// runner against a real PostgreSQL server.
func TestPostgresSetupFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	sugar := zap.NewNop().Sugar()
	desc := setupPostgresContainer(t, ctx)

	err := bootstrap.WaitForPostgres(ctx, desc, bootstrap.ReadinessConfig{
		MaxWait:     60 * time.Second,
		Interval:    500 * time.Millisecond,
		MaxInterval: 4 * time.Second,
	}, sugar)
	require.NoError(t, err, "PostgreSQL never became ready")

	opts := migrate.Options{
		SchemaTable: "schemaversion",
		Dir:         t.TempDir(),
	}

	result, err := migrate.Run(ctx, desc, opts, sugar)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Applied, "fresh database gets the full schema")

	db, err := sql.Open("pgx", desc.URL())
	require.NoError(t, err)
	defer db.Close()

	for _, table := range []string{"users", "voice_memos1", "helperApp", "schemaversion"} {
		var count int
		err := db.QueryRowContext(ctx,
			"SELECT count(*) FROM information_schema.tables WHERE table_name = $1", table).Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 1, count, "missing table %s", table)
	}

	// A second run must find the schema current and apply nothing.
	again, err := migrate.Run(ctx, desc, opts, sugar)
	require.NoError(t, err)
	assert.Empty(t, again.Applied)
}

// TestPostgresReadinessFailsFastWhenStopped verifies the bounded poll gives
// up against a server that was shut down.
func TestPostgresReadinessFailsFastWhenStopped(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	sugar := zap.NewNop().Sugar()
	desc := setupPostgresContainer(t, ctx)

	// Point at a port nothing listens on.
	desc.Port = 1

	start := time.Now()
	err := bootstrap.WaitForPostgres(ctx, desc, bootstrap.ReadinessConfig{
		MaxWait:     3 * time.Second,
		Interval:    200 * time.Millisecond,
		MaxInterval: 1 * time.Second,
	}, sugar)

	require.Error(t, err)
	assert.Less(t, time.Since(start), 15*time.Second)
}
