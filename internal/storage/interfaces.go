// Package storage defines the backend-neutral contract for the versioning
// engine. Two adapters implement it: the embedded single-writer SQLite
// backend and the hosted multi-tenant Postgres backend. Both must expose
// identical semantics; the invariants live in the interface documentation
// and in the shared test expectations, not in per-backend behavior.
package storage

import (
	"context"

	"github.com/calder/mnemo/internal/domain/artifact"
	"github.com/calder/mnemo/internal/domain/project"
)

// ProjectStore manages project persistence. Name lookups and uniqueness are
// case-insensitive and share one collation per backend.
type ProjectStore interface {
	Create(ctx context.Context, proj *project.Project) error
	Get(ctx context.Context, id string) (*project.Project, error)
	GetByName(ctx context.Context, name string) (*project.Project, error)
	List(ctx context.Context, filter project.Filter) ([]project.Project, error)
	Update(ctx context.Context, id string, patch project.Patch) (*project.Project, error)
	// Delete removes the project and cascades to its artifacts and their
	// versions in a single atomic operation.
	Delete(ctx context.Context, id string) error
	// CountArtifacts counts only active (non-archived) artifacts.
	CountArtifacts(ctx context.Context, id string) (int, error)
}

// ArtifactStore manages artifacts and their append-only version history.
//
// Every content-affecting mutation (update, restore, rollback) snapshots the
// pre-mutation state and bumps the version counter by exactly 1 inside one
// transaction. Archive snapshots without bumping. Archiving an archived
// artifact or restoring an active one is a no-op that writes nothing.
type ArtifactStore interface {
	Create(ctx context.Context, req artifact.CreateRequest) (*artifact.Artifact, error)
	Get(ctx context.Context, id string) (*artifact.Artifact, error)
	GetByTitle(ctx context.Context, projectID, title string) (*artifact.Artifact, error)
	// List returns active artifacts, core priority first, then by update
	// recency descending.
	List(ctx context.Context, projectID string, filter artifact.ListFilter) ([]artifact.Summary, error)
	// ListArchived returns archived artifacts by archival time descending.
	ListArchived(ctx context.Context, projectID string, limit int) ([]artifact.Summary, error)
	Update(ctx context.Context, id string, patch artifact.Patch) (*artifact.Artifact, error)
	Archive(ctx context.Context, id string) (*artifact.Artifact, error)
	Restore(ctx context.Context, id string) (*artifact.Artifact, error)
	Versions(ctx context.Context, id string, limit int) ([]artifact.VersionSummary, error)
	GetVersion(ctx context.Context, versionID string) (*artifact.Version, error)
	// Rollback restores title/content/summary/priority from the named
	// snapshot and bumps the version; the counter never goes backward. A
	// version belonging to a different artifact yields ErrNotFound.
	Rollback(ctx context.Context, id, versionID string) (*artifact.Artifact, error)
}

// SearchOptions narrows a search.
type SearchOptions struct {
	ProjectID string // empty searches all projects visible to the tenant
	Limit     int
}

// Adapter composes the stores with lifecycle and search.
type Adapter interface {
	// Initialize performs idempotent schema setup and, in the hosted
	// backend, resolves the caller credential to a tenant identifier.
	Initialize(ctx context.Context) error
	Close() error
	Projects() ProjectStore
	Artifacts() ArtifactStore
	// Search ranks active artifacts against title/content/summary.
	Search(ctx context.Context, query string, opts SearchOptions) ([]artifact.SearchResult, error)
}
