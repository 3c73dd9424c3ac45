package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// NewTestDB creates an in-memory database with migrations applied.
func NewTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Migrate(context.Background()))
	return db
}

func TestMigrate(t *testing.T) {
	db := NewTestDB(t)

	for _, table := range []string{"projects", "artifacts", "artifact_versions", "artifacts_fts", "schema_migrations"} {
		var name string
		err := db.QueryRow(
			`SELECT name FROM sqlite_master WHERE name = ?`, table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
	}
}

func TestMigrateIdempotent(t *testing.T) {
	db := NewTestDB(t)

	// Running migrations again must not re-apply anything.
	require.NoError(t, db.Migrate(context.Background()))

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&count))
	require.Equal(t, 1, count)
}

func TestAdapterLifecycle(t *testing.T) {
	adapter, err := NewAdapter(":memory:")
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, adapter.Initialize(ctx))
	require.NoError(t, adapter.Initialize(ctx))

	require.NotNil(t, adapter.Projects())
	require.NotNil(t, adapter.Artifacts())
	require.NoError(t, adapter.Close())
}
