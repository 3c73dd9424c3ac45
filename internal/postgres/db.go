// Package postgres implements the hosted storage backend: a shared pgx pool
// against a multi-tenant database. Every query is scoped to the owner
// resolved from the caller's API key; an artifact or project belonging to a
// different owner is indistinguishable from one that does not exist.
package postgres

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/calder/mnemo/internal/domain/artifact"
	"github.com/calder/mnemo/internal/storage"
)

// Adapter is the hosted storage backend.
type Adapter struct {
	pool   *pgxpool.Pool
	apiKey string

	// ownerID is resolved from the API key during Initialize; the stores
	// must not be used before it is set.
	ownerID string

	projects  *ProjectStore
	artifacts *ArtifactStore
}

var _ storage.Adapter = (*Adapter)(nil)

// NewAdapter connects the pool. Schema setup and credential resolution
// happen in Initialize.
func NewAdapter(ctx context.Context, databaseURL, apiKey string) (*Adapter, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	a := &Adapter{pool: pool, apiKey: apiKey}
	a.projects = &ProjectStore{adapter: a}
	a.artifacts = &ArtifactStore{adapter: a}
	return a, nil
}

// Initialize ensures the schema exists and resolves the API key to an owner.
// Only the key's SHA-256 digest is ever sent to or stored in the database.
func (a *Adapter) Initialize(ctx context.Context) error {
	if err := a.ensureSchema(ctx); err != nil {
		return err
	}

	digest := sha256.Sum256([]byte(a.apiKey))
	keyHash := hex.EncodeToString(digest[:])

	err := a.pool.QueryRow(ctx,
		`SELECT owner_id FROM api_keys WHERE key_hash = $1 AND revoked_at IS NULL`,
		keyHash,
	).Scan(&a.ownerID)
	if err == pgx.ErrNoRows {
		return fmt.Errorf("%w: unknown or revoked API key", storage.ErrValidation)
	}
	if err != nil {
		return fmt.Errorf("failed to resolve API key: %w", err)
	}

	if _, err := a.pool.Exec(ctx,
		`UPDATE api_keys SET last_used_at = NOW() WHERE key_hash = $1`, keyHash,
	); err != nil {
		return fmt.Errorf("failed to record key use: %w", err)
	}
	return nil
}

func (a *Adapter) ensureSchema(ctx context.Context) error {
	schema := `
CREATE TABLE IF NOT EXISTS api_keys (
  key_hash TEXT PRIMARY KEY,
  owner_id TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  last_used_at TIMESTAMPTZ,
  revoked_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS projects (
  id TEXT PRIMARY KEY,
  owner_id TEXT NOT NULL,
  name TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  tags JSONB NOT NULL DEFAULT '[]',
  status TEXT NOT NULL DEFAULT 'active' CHECK(status IN ('active', 'archived')),
  config JSONB NOT NULL DEFAULT '{}',
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS artifacts (
  id TEXT PRIMARY KEY,
  project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
  title TEXT NOT NULL,
  type TEXT NOT NULL CHECK(type IN ('document', 'code', 'decision', 'conversation', 'file')),
  content TEXT NOT NULL,
  summary TEXT NOT NULL DEFAULT '',
  priority TEXT NOT NULL DEFAULT 'normal' CHECK(priority IN ('core', 'normal', 'reference')),
  tags JSONB NOT NULL DEFAULT '[]',
  version BIGINT NOT NULL DEFAULT 1,
  archived_at TIMESTAMPTZ,
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS artifact_versions (
  id TEXT PRIMARY KEY,
  artifact_id TEXT NOT NULL REFERENCES artifacts(id) ON DELETE CASCADE,
  version BIGINT NOT NULL,
  title TEXT NOT NULL,
  content TEXT NOT NULL,
  summary TEXT NOT NULL DEFAULT '',
  priority TEXT NOT NULL,
  change_source TEXT NOT NULL CHECK(change_source IN ('update', 'archive', 'restore', 'rollback')),
  created_at TIMESTAMPTZ NOT NULL
);
`
	if _, err := a.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}

	// Case-insensitive name uniqueness uses lower() indexes so the
	// constraint and lookups share one normalization.
	indexes := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_projects_owner_name ON projects(owner_id, lower(name))`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_artifacts_project_title ON artifacts(project_id, lower(title))`,
		`CREATE INDEX IF NOT EXISTS idx_projects_owner ON projects(owner_id)`,
		`CREATE INDEX IF NOT EXISTS idx_artifacts_project ON artifacts(project_id)`,
		`CREATE INDEX IF NOT EXISTS idx_artifacts_archived ON artifacts(archived_at)`,
		`CREATE INDEX IF NOT EXISTS idx_artifacts_updated ON artifacts(updated_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_versions_artifact ON artifact_versions(artifact_id, version DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_artifacts_fts ON artifacts USING GIN (to_tsvector('english', title || ' ' || content || ' ' || summary))`,
	}
	for _, stmt := range indexes {
		if _, err := a.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

// Close releases the connection pool.
func (a *Adapter) Close() error {
	a.pool.Close()
	return nil
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
	return a.searchArtifacts(ctx, query, opts)
}
