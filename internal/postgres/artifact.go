package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/calder/mnemo/internal/domain/artifact"
	"github.com/calder/mnemo/internal/ident"
	"github.com/calder/mnemo/internal/storage"
)

// ArtifactStore implements storage.ArtifactStore against the shared
// database. Ownership is verified by joining through projects on every
// statement; an artifact under another owner's project reads as not found.
type ArtifactStore struct {
	adapter *Adapter
}

const artifactColumns = `a.id, a.project_id, a.title, a.type, a.content, a.summary, a.priority, a.tags, a.version, a.archived_at, a.created_at, a.updated_at`

// Create inserts a new artifact at version 1 under one of the owner's
// projects.
func (s *ArtifactStore) Create(ctx context.Context, req artifact.CreateRequest) (*artifact.Artifact, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrValidation, err)
	}

	// Verify the project belongs to the owner before writing anything.
	var exists bool
	err := s.adapter.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM projects WHERE id = $1 AND owner_id = $2)`,
		req.ProjectID, s.adapter.ownerID,
	).Scan(&exists)
	if err != nil {
		return nil, storage.Internal("failed to verify project", err)
	}
	if !exists {
		return nil, storage.ErrNotFound
	}

	now := ident.Now()
	art := &artifact.Artifact{
		ID:        ident.New(),
		ProjectID: req.ProjectID,
		Title:     req.Title,
		Type:      req.Type,
		Content:   req.Content,
		Summary:   req.Summary,
		Priority:  req.Priority,
		Tags:      req.Tags,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if art.Tags == nil {
		art.Tags = []string{}
	}
	tags, _ := json.Marshal(art.Tags)

	_, err = s.adapter.pool.Exec(ctx, `
		INSERT INTO artifacts (id, project_id, title, type, content, summary, priority, tags, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		art.ID, art.ProjectID, art.Title, art.Type, art.Content,
		art.Summary, art.Priority, tags, art.Version, art.CreatedAt, art.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: artifact title %q in project %s", storage.ErrConflict, art.Title, art.ProjectID)
		}
		// The project can vanish between the ownership check and the insert.
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("%w: project %s", storage.ErrNotFound, art.ProjectID)
		}
		return nil, storage.Internal("failed to create artifact", err)
	}
	return art, nil
}

// Get retrieves an artifact by ID, archived or not.
func (s *ArtifactStore) Get(ctx context.Context, id string) (*artifact.Artifact, error) {
	rows, err := s.adapter.pool.Query(ctx, `
		SELECT `+artifactColumns+`
		FROM artifacts a
		JOIN projects p ON a.project_id = p.id
		WHERE a.id = $1 AND p.owner_id = $2
	`, id, s.adapter.ownerID)
	if err != nil {
		return nil, storage.Internal("failed to query artifact", err)
	}
	return collectOneArtifact(rows)
}

// GetByTitle retrieves an active artifact by title within one of the owner's
// projects, case-insensitively.
func (s *ArtifactStore) GetByTitle(ctx context.Context, projectID, title string) (*artifact.Artifact, error) {
	rows, err := s.adapter.pool.Query(ctx, `
		SELECT `+artifactColumns+`
		FROM artifacts a
		JOIN projects p ON a.project_id = p.id
		WHERE a.project_id = $1 AND lower(a.title) = lower($2)
		  AND a.archived_at IS NULL AND p.owner_id = $3
	`, projectID, title, s.adapter.ownerID)
	if err != nil {
		return nil, storage.Internal("failed to query artifact", err)
	}
	return collectOneArtifact(rows)
}

// List returns active artifacts: core priority first, then by update
// recency.
func (s *ArtifactStore) List(ctx context.Context, projectID string, filter artifact.ListFilter) ([]artifact.Summary, error) {
	query := `
		SELECT a.id, a.project_id, a.title, a.type, a.summary, a.priority, a.tags,
		       a.version, length(a.content), a.archived_at, a.updated_at
		FROM artifacts a
		JOIN projects p ON a.project_id = p.id
		WHERE a.project_id = $1 AND p.owner_id = $2 AND a.archived_at IS NULL
	`
	args := []any{projectID, s.adapter.ownerID}
	if filter.Type != "" {
		query += fmt.Sprintf(` AND a.type = $%d`, len(args)+1)
		args = append(args, filter.Type)
	}
	if filter.Priority != "" {
		query += fmt.Sprintf(` AND a.priority = $%d`, len(args)+1)
		args = append(args, filter.Priority)
	}
	query += ` ORDER BY CASE WHEN a.priority = 'core' THEN 0 ELSE 1 END, a.updated_at DESC`
	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, len(args)+1)
		args = append(args, filter.Limit)
	}
	return s.querySummaries(ctx, query, args...)
}

// ListArchived returns archived artifacts, most recently archived first.
func (s *ArtifactStore) ListArchived(ctx context.Context, projectID string, limit int) ([]artifact.Summary, error) {
	query := `
		SELECT a.id, a.project_id, a.title, a.type, a.summary, a.priority, a.tags,
		       a.version, length(a.content), a.archived_at, a.updated_at
		FROM artifacts a
		JOIN projects p ON a.project_id = p.id
		WHERE a.project_id = $1 AND p.owner_id = $2 AND a.archived_at IS NOT NULL
		ORDER BY a.archived_at DESC
	`
	args := []any{projectID, s.adapter.ownerID}
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, len(args)+1)
		args = append(args, limit)
	}
	return s.querySummaries(ctx, query, args...)
}

func (s *ArtifactStore) querySummaries(ctx context.Context, query string, args ...any) ([]artifact.Summary, error) {
	rows, err := s.adapter.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, storage.Internal("failed to list artifacts", err)
	}
	defer rows.Close()

	var summaries []artifact.Summary
	for rows.Next() {
		sum, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, *sum)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.Internal("error iterating artifact rows", err)
	}
	return summaries, nil
}

// Update merges the patch into the artifact. Any effective change snapshots
// the pre-mutation state and bumps the version inside one transaction.
func (s *ArtifactStore) Update(ctx context.Context, id string, patch artifact.Patch) (*artifact.Artifact, error) {
	if err := patch.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrValidation, err)
	}
	return s.mutate(ctx, id, func(art *artifact.Artifact) (artifact.ChangeSource, bool) {
		if !patch.Apply(art) {
			return "", false
		}
		art.Version++
		return artifact.SourceUpdate, true
	})
}

// Archive hides the artifact. The pre-archive state is snapshotted without
// bumping the counter. Idempotent.
func (s *ArtifactStore) Archive(ctx context.Context, id string) (*artifact.Artifact, error) {
	return s.mutate(ctx, id, func(art *artifact.Artifact) (artifact.ChangeSource, bool) {
		if art.Archived() {
			return "", false
		}
		now := ident.Now()
		art.ArchivedAt = &now
		return artifact.SourceArchive, true
	})
}

// Restore brings an archived artifact back, snapshotting and bumping the
// version. Idempotent.
func (s *ArtifactStore) Restore(ctx context.Context, id string) (*artifact.Artifact, error) {
	return s.mutate(ctx, id, func(art *artifact.Artifact) (artifact.ChangeSource, bool) {
		if !art.Archived() {
			return "", false
		}
		art.ArchivedAt = nil
		art.Version++
		return artifact.SourceRestore, true
	})
}

// Versions lists snapshots for an artifact, newest counter value first.
func (s *ArtifactStore) Versions(ctx context.Context, id string, limit int) ([]artifact.VersionSummary, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	query := `
		SELECT id, artifact_id, version, title, change_source, length(content), created_at
		FROM artifact_versions
		WHERE artifact_id = $1
		ORDER BY version DESC, created_at DESC
	`
	args := []any{id}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.adapter.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, storage.Internal("failed to list versions", err)
	}
	defer rows.Close()

	var versions []artifact.VersionSummary
	for rows.Next() {
		var v artifact.VersionSummary
		if err := rows.Scan(&v.ID, &v.ArtifactID, &v.Version, &v.Title, &v.Source, &v.CharCount, &v.CreatedAt); err != nil {
			return nil, storage.Internal("failed to scan version", err)
		}
		v.EstimatedTokens = artifact.EstimateTokens(v.CharCount)
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.Internal("error iterating version rows", err)
	}
	return versions, nil
}

// GetVersion retrieves a single snapshot with its full content. Ownership is
// verified through the snapshot's artifact and project.
func (s *ArtifactStore) GetVersion(ctx context.Context, versionID string) (*artifact.Version, error) {
	rows, err := s.adapter.pool.Query(ctx, `
		SELECT v.id, v.artifact_id, v.version, v.title, v.content, v.summary, v.priority, v.change_source, v.created_at
		FROM artifact_versions v
		JOIN artifacts a ON v.artifact_id = a.id
		JOIN projects p ON a.project_id = p.id
		WHERE v.id = $1 AND p.owner_id = $2
	`, versionID, s.adapter.ownerID)
	if err != nil {
		return nil, storage.Internal("failed to query version", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, storage.Internal("failed to query version", err)
		}
		return nil, storage.ErrNotFound
	}
	var v artifact.Version
	if err := rows.Scan(&v.ID, &v.ArtifactID, &v.Version, &v.Title, &v.Content, &v.Summary, &v.Priority, &v.Source, &v.CreatedAt); err != nil {
		return nil, storage.Internal("failed to scan version", err)
	}
	return &v, nil
}

// Rollback restores title, content, summary and priority from the named
// snapshot, snapshotting the current state first and bumping the counter.
func (s *ArtifactStore) Rollback(ctx context.Context, id, versionID string) (*artifact.Artifact, error) {
	target, err := s.GetVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}
	if target.ArtifactID != id {
		return nil, storage.ErrNotFound
	}

	return s.mutate(ctx, id, func(art *artifact.Artifact) (artifact.ChangeSource, bool) {
		art.Title = target.Title
		art.Content = target.Content
		art.Summary = target.Summary
		art.Priority = target.Priority
		art.Version++
		return artifact.SourceRollback, true
	})
}

// mutate loads the artifact under a row lock, applies fn, and if fn reports
// a change snapshots the pre-mutation state and writes the result, all in
// one transaction. Archive is the one source that does not bump the counter;
// fn owns the increment.
func (s *ArtifactStore) mutate(ctx context.Context, id string, fn func(*artifact.Artifact) (artifact.ChangeSource, bool)) (*artifact.Artifact, error) {
	tx, err := s.adapter.pool.Begin(ctx)
	if err != nil {
		return nil, storage.Internal("failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		SELECT `+artifactColumns+`
		FROM artifacts a
		JOIN projects p ON a.project_id = p.id
		WHERE a.id = $1 AND p.owner_id = $2
		FOR UPDATE OF a
	`, id, s.adapter.ownerID)
	if err != nil {
		return nil, storage.Internal("failed to query artifact", err)
	}
	art, err := collectOneArtifact(rows)
	if err != nil {
		return nil, err
	}

	snapshot := *art
	source, changed := fn(art)
	if !changed {
		return art, nil
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO artifact_versions (id, artifact_id, version, title, content, summary, priority, change_source, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		ident.New(), snapshot.ID, snapshot.Version, snapshot.Title,
		snapshot.Content, snapshot.Summary, snapshot.Priority, source, ident.Now(),
	)
	if err != nil {
		return nil, storage.Internal(fmt.Sprintf("failed to snapshot version %d", snapshot.Version), err)
	}

	art.UpdatedAt = ident.Now()
	tags, _ := json.Marshal(art.Tags)
	_, err = tx.Exec(ctx, `
		UPDATE artifacts
		SET title = $1, content = $2, summary = $3, priority = $4, tags = $5,
		    version = $6, archived_at = $7, updated_at = $8
		WHERE id = $9
	`,
		art.Title, art.Content, art.Summary, art.Priority, tags,
		art.Version, art.ArchivedAt, art.UpdatedAt, art.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: artifact title %q in project %s", storage.ErrConflict, art.Title, art.ProjectID)
		}
		return nil, storage.Internal("failed to write artifact", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, storage.Internal("failed to commit artifact mutation", err)
	}
	return art, nil
}

func collectOneArtifact(rows pgx.Rows) (*artifact.Artifact, error) {
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, storage.Internal("failed to query artifact", err)
		}
		return nil, storage.ErrNotFound
	}
	return scanArtifact(rows)
}

func scanArtifact(row pgScanner) (*artifact.Artifact, error) {
	var art artifact.Artifact
	var tags []byte
	err := row.Scan(
		&art.ID,
		&art.ProjectID,
		&art.Title,
		&art.Type,
		&art.Content,
		&art.Summary,
		&art.Priority,
		&tags,
		&art.Version,
		&art.ArchivedAt,
		&art.CreatedAt,
		&art.UpdatedAt,
	)
	if err != nil {
		return nil, storage.Internal("failed to scan artifact", err)
	}
	if err := json.Unmarshal(tags, &art.Tags); err != nil || art.Tags == nil {
		art.Tags = []string{}
	}
	return &art, nil
}

func scanSummary(row pgScanner) (*artifact.Summary, error) {
	var sum artifact.Summary
	var tags []byte
	err := row.Scan(
		&sum.ID,
		&sum.ProjectID,
		&sum.Title,
		&sum.Type,
		&sum.Summary,
		&sum.Priority,
		&tags,
		&sum.Version,
		&sum.CharCount,
		&sum.ArchivedAt,
		&sum.UpdatedAt,
	)
	if err != nil {
		return nil, storage.Internal("failed to scan artifact summary", err)
	}
	if err := json.Unmarshal(tags, &sum.Tags); err != nil || sum.Tags == nil {
		sum.Tags = []string{}
	}
	sum.EstimatedTokens = artifact.EstimateTokens(sum.CharCount)
	return &sum, nil
}
