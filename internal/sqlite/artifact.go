package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/calder/mnemo/internal/domain/artifact"
	"github.com/calder/mnemo/internal/ident"
	"github.com/calder/mnemo/internal/storage"
)

// ArtifactStore implements storage.ArtifactStore for SQLite. Every
// content-affecting mutation snapshots the pre-mutation row into
// artifact_versions and bumps the version counter inside one transaction.
type ArtifactStore struct {
	db *DB
}

// NewArtifactStore creates a new ArtifactStore.
func NewArtifactStore(db *DB) *ArtifactStore {
	return &ArtifactStore{db: db}
}

const artifactColumns = `id, project_id, title, type, content, summary, priority, tags, version, archived_at, created_at, updated_at`

// Create inserts a new artifact at version 1. No snapshot is written;
// history begins with the first mutation.
func (s *ArtifactStore) Create(ctx context.Context, req artifact.CreateRequest) (*artifact.Artifact, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrValidation, err)
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

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO artifacts (id, project_id, title, type, content, summary, priority, tags, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		art.ID,
		art.ProjectID,
		art.Title,
		art.Type,
		art.Content,
		art.Summary,
		art.Priority,
		encodeTags(art.Tags),
		art.Version,
		art.CreatedAt,
		art.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: artifact title %q in project %s", storage.ErrConflict, art.Title, art.ProjectID)
		}
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("%w: project %s", storage.ErrNotFound, art.ProjectID)
		}
		return nil, storage.Internal("failed to create artifact", err)
	}

	return art, nil
}

// Get retrieves an artifact by ID, archived or not.
func (s *ArtifactStore) Get(ctx context.Context, id string) (*artifact.Artifact, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+artifactColumns+` FROM artifacts WHERE id = ?`, id)
	return scanArtifact(row)
}

// GetByTitle retrieves an active artifact by title within a project. The
// title column carries the NOCASE collation, matching the uniqueness
// constraint.
func (s *ArtifactStore) GetByTitle(ctx context.Context, projectID, title string) (*artifact.Artifact, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+artifactColumns+` FROM artifacts
		WHERE project_id = ? AND title = ? AND archived_at IS NULL
	`, projectID, title)
	return scanArtifact(row)
}

// List returns active artifacts: core priority first, then by update
// recency.
func (s *ArtifactStore) List(ctx context.Context, projectID string, filter artifact.ListFilter) ([]artifact.Summary, error) {
	query := `
		SELECT id, project_id, title, type, summary, priority, tags, version, length(content), archived_at, updated_at
		FROM artifacts
		WHERE project_id = ? AND archived_at IS NULL
	`
	args := []any{projectID}
	if filter.Type != "" {
		query += ` AND type = ?`
		args = append(args, filter.Type)
	}
	if filter.Priority != "" {
		query += ` AND priority = ?`
		args = append(args, filter.Priority)
	}
	query += ` ORDER BY CASE WHEN priority = 'core' THEN 0 ELSE 1 END, updated_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	return s.querySummaries(ctx, query, args...)
}

// ListArchived returns archived artifacts, most recently archived first.
func (s *ArtifactStore) ListArchived(ctx context.Context, projectID string, limit int) ([]artifact.Summary, error) {
	query := `
		SELECT id, project_id, title, type, summary, priority, tags, version, length(content), archived_at, updated_at
		FROM artifacts
		WHERE project_id = ? AND archived_at IS NOT NULL
		ORDER BY archived_at DESC
	`
	args := []any{projectID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.querySummaries(ctx, query, args...)
}

func (s *ArtifactStore) querySummaries(ctx context.Context, query string, args ...any) ([]artifact.Summary, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
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
// the pre-mutation state and bumps the version; a patch that changes nothing
// writes nothing.
func (s *ArtifactStore) Update(ctx context.Context, id string, patch artifact.Patch) (*artifact.Artifact, error) {
	if err := patch.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrValidation, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storage.Internal("failed to begin transaction", err)
	}
	defer tx.Rollback()

	art, err := getArtifactTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	snapshot := *art
	if !patch.Apply(art) {
		return art, nil
	}

	if err := insertSnapshot(ctx, tx, &snapshot, artifact.SourceUpdate); err != nil {
		return nil, err
	}

	art.Version++
	art.UpdatedAt = ident.Now()
	if err := writeArtifactTx(ctx, tx, art); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, storage.Internal("failed to commit artifact update", err)
	}
	return art, nil
}

// Archive hides the artifact from listings and search. The pre-archive state
// is snapshotted but the version counter does not move; archiving changes
// visibility, not content. Archiving an archived artifact is a no-op.
func (s *ArtifactStore) Archive(ctx context.Context, id string) (*artifact.Artifact, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storage.Internal("failed to begin transaction", err)
	}
	defer tx.Rollback()

	art, err := getArtifactTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if art.Archived() {
		return art, nil
	}

	if err := insertSnapshot(ctx, tx, art, artifact.SourceArchive); err != nil {
		return nil, err
	}

	now := ident.Now()
	art.ArchivedAt = &now
	art.UpdatedAt = now
	if err := writeArtifactTx(ctx, tx, art); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, storage.Internal("failed to commit artifact archive", err)
	}
	return art, nil
}

// Restore brings an archived artifact back into listings. The pre-restore
// state is snapshotted and the version bumps. Restoring an active artifact
// is a no-op.
func (s *ArtifactStore) Restore(ctx context.Context, id string) (*artifact.Artifact, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storage.Internal("failed to begin transaction", err)
	}
	defer tx.Rollback()

	art, err := getArtifactTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if !art.Archived() {
		return art, nil
	}

	if err := insertSnapshot(ctx, tx, art, artifact.SourceRestore); err != nil {
		return nil, err
	}

	art.ArchivedAt = nil
	art.Version++
	art.UpdatedAt = ident.Now()
	if err := writeArtifactTx(ctx, tx, art); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, storage.Internal("failed to commit artifact restore", err)
	}
	return art, nil
}

// Versions lists snapshots for an artifact, newest counter value first.
func (s *ArtifactStore) Versions(ctx context.Context, id string, limit int) ([]artifact.VersionSummary, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	query := `
		SELECT id, artifact_id, version, title, change_source, length(content), created_at
		FROM artifact_versions
		WHERE artifact_id = ?
		ORDER BY version DESC, created_at DESC
	`
	args := []any{id}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
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

// GetVersion retrieves a single snapshot with its full content.
func (s *ArtifactStore) GetVersion(ctx context.Context, versionID string) (*artifact.Version, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, artifact_id, version, title, content, summary, priority, change_source, created_at
		FROM artifact_versions WHERE id = ?
	`, versionID)

	var v artifact.Version
	err := row.Scan(&v.ID, &v.ArtifactID, &v.Version, &v.Title, &v.Content, &v.Summary, &v.Priority, &v.Source, &v.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, storage.Internal("failed to scan version", err)
	}
	return &v, nil
}

// Rollback restores title, content, summary and priority from the named
// snapshot. The current state is snapshotted first and the version counter
// bumps; rolling back moves history forward, never backward. A snapshot
// belonging to a different artifact yields ErrNotFound.
func (s *ArtifactStore) Rollback(ctx context.Context, id, versionID string) (*artifact.Artifact, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storage.Internal("failed to begin transaction", err)
	}
	defer tx.Rollback()

	art, err := getArtifactTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	var target artifact.Version
	err = tx.QueryRowContext(ctx, `
		SELECT id, artifact_id, version, title, content, summary, priority, change_source, created_at
		FROM artifact_versions WHERE id = ?
	`, versionID).Scan(
		&target.ID, &target.ArtifactID, &target.Version, &target.Title,
		&target.Content, &target.Summary, &target.Priority, &target.Source, &target.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, storage.Internal("failed to load rollback target", err)
	}
	if target.ArtifactID != art.ID {
		return nil, storage.ErrNotFound
	}

	if err := insertSnapshot(ctx, tx, art, artifact.SourceRollback); err != nil {
		return nil, err
	}

	art.Title = target.Title
	art.Content = target.Content
	art.Summary = target.Summary
	art.Priority = target.Priority
	art.Version++
	art.UpdatedAt = ident.Now()
	if err := writeArtifactTx(ctx, tx, art); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, storage.Internal("failed to commit rollback", err)
	}
	return art, nil
}

func getArtifactTx(ctx context.Context, tx *sql.Tx, id string) (*artifact.Artifact, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+artifactColumns+` FROM artifacts WHERE id = ?`, id)
	return scanArtifact(row)
}

// insertSnapshot appends the artifact's current mutable fields to
// artifact_versions under its current counter value.
func insertSnapshot(ctx context.Context, tx *sql.Tx, art *artifact.Artifact, source artifact.ChangeSource) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO artifact_versions (id, artifact_id, version, title, content, summary, priority, change_source, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		ident.New(),
		art.ID,
		art.Version,
		art.Title,
		art.Content,
		art.Summary,
		art.Priority,
		source,
		ident.Now(),
	)
	if err != nil {
		return storage.Internal(fmt.Sprintf("failed to snapshot version %d", art.Version), err)
	}
	return nil
}

func writeArtifactTx(ctx context.Context, tx *sql.Tx, art *artifact.Artifact) error {
	var archivedAt any
	if art.ArchivedAt != nil {
		archivedAt = *art.ArchivedAt
	}
	_, err := tx.ExecContext(ctx, `
		UPDATE artifacts
		SET title = ?, content = ?, summary = ?, priority = ?, tags = ?, version = ?, archived_at = ?, updated_at = ?
		WHERE id = ?
	`,
		art.Title,
		art.Content,
		art.Summary,
		art.Priority,
		encodeTags(art.Tags),
		art.Version,
		archivedAt,
		art.UpdatedAt,
		art.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: artifact title %q in project %s", storage.ErrConflict, art.Title, art.ProjectID)
		}
		return storage.Internal("failed to write artifact", err)
	}
	return nil
}

func scanArtifact(row rowScanner) (*artifact.Artifact, error) {
	var art artifact.Artifact
	var tags string
	var archivedAt sql.NullTime
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
		&archivedAt,
		&art.CreatedAt,
		&art.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, storage.Internal("failed to scan artifact", err)
	}
	art.Tags = decodeTags(tags)
	if archivedAt.Valid {
		t := archivedAt.Time
		art.ArchivedAt = &t
	}
	return &art, nil
}

func scanSummary(row rowScanner) (*artifact.Summary, error) {
	var sum artifact.Summary
	var tags string
	var archivedAt sql.NullTime
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
		&archivedAt,
		&sum.UpdatedAt,
	)
	if err != nil {
		return nil, storage.Internal("failed to scan artifact summary", err)
	}
	sum.Tags = decodeTags(tags)
	sum.EstimatedTokens = artifact.EstimateTokens(sum.CharCount)
	if archivedAt.Valid {
		t := archivedAt.Time
		sum.ArchivedAt = &t
	}
	return &sum, nil
}
