// Package sqlite implements the embedded storage backend: single process,
// single writer, one connection, schema managed by embedded migrations.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/calder/mnemo/internal/domain/artifact"
	"github.com/calder/mnemo/internal/ident"
	"github.com/calder/mnemo/internal/storage"
	"github.com/calder/mnemo/migrations"
)

// DB wraps a SQLite database connection.
type DB struct {
	*sql.DB
}

// New opens a SQLite database at the given path (":memory:" for tests).
func New(dataSourceName string) (*DB, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection serializes all reads and writes; the engine is the
	// only lock this backend needs.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &DB{db}, nil
}

// Migrate applies any pending schema migrations. Applied versions are
// tracked one row each in schema_migrations, so calling this repeatedly is
// safe.
func (db *DB) Migrate(ctx context.Context) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	for i, name := range migrations.Ordered {
		version := i + 1

		var applied int
		err := db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version,
		).Scan(&applied)
		if err != nil {
			return fmt.Errorf("failed to check migration %d: %w", version, err)
		}
		if applied > 0 {
			continue
		}

		data, err := migrations.FS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", name, err)
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration transaction: %w", err)
		}
		if _, err := tx.ExecContext(ctx, string(data)); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to apply migration %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)`,
			version, name, ident.Now(),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %s: %w", name, err)
		}
	}

	return nil
}

// Adapter is the embedded storage backend.
type Adapter struct {
	db        *DB
	projects  *ProjectStore
	artifacts *ArtifactStore
}

var _ storage.Adapter = (*Adapter)(nil)

// NewAdapter opens the database without touching the schema; Initialize
// applies migrations.
func NewAdapter(path string) (*Adapter, error) {
	db, err := New(path)
	if err != nil {
		return nil, err
	}
	return &Adapter{
		db:        db,
		projects:  NewProjectStore(db),
		artifacts: NewArtifactStore(db),
	}, nil
}

// Initialize applies pending migrations. Idempotent.
func (a *Adapter) Initialize(ctx context.Context) error {
	return a.db.Migrate(ctx)
}

// Close releases the database connection.
func (a *Adapter) Close() error {
	return a.db.Close()
}

// Projects returns the project store.
func (a *Adapter) Projects() storage.ProjectStore {
	return a.projects
}

// Artifacts returns the artifact store.
func (a *Adapter) Artifacts() storage.ArtifactStore {
	return a.artifacts
}

// Search is implemented in search.go.
func (a *Adapter) Search(ctx context.Context, query string, opts storage.SearchOptions) ([]artifact.SearchResult, error) {
	return searchArtifacts(ctx, a.db, query, opts)
}
