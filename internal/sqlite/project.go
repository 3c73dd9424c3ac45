package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/calder/mnemo/internal/domain/project"
	"github.com/calder/mnemo/internal/ident"
	"github.com/calder/mnemo/internal/storage"
)

// ProjectStore implements storage.ProjectStore for SQLite.
type ProjectStore struct {
	db *DB
}

// NewProjectStore creates a new ProjectStore.
func NewProjectStore(db *DB) *ProjectStore {
	return &ProjectStore{db: db}
}

const projectColumns = `id, name, description, tags, status, config, created_at, updated_at`

// Create inserts a new project. A name colliding case-insensitively with an
// existing project fails with storage.ErrConflict.
func (s *ProjectStore) Create(ctx context.Context, proj *project.Project) error {
	if strings.TrimSpace(proj.Name) == "" {
		return fmt.Errorf("%w: project name must not be empty", storage.ErrValidation)
	}
	if proj.Status == "" {
		proj.Status = project.StatusActive
	}
	if !proj.Status.Valid() {
		return fmt.Errorf("%w: unknown project status %q", storage.ErrValidation, proj.Status)
	}
	if proj.ID == "" {
		proj.ID = ident.New()
	}
	now := ident.Now()
	if proj.CreatedAt.IsZero() {
		proj.CreatedAt = now
	}
	proj.UpdatedAt = now
	if proj.Tags == nil {
		proj.Tags = []string{}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, description, tags, status, config, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		proj.ID,
		proj.Name,
		proj.Description,
		encodeTags(proj.Tags),
		proj.Status,
		encodeConfig(proj.Config),
		proj.CreatedAt,
		proj.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: project name %q", storage.ErrConflict, proj.Name)
		}
		return storage.Internal("failed to create project", err)
	}

	return nil
}

// Get retrieves a project by ID.
func (s *ProjectStore) Get(ctx context.Context, id string) (*project.Project, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	return scanProject(row)
}

// GetByName retrieves a project by name. The name column carries the NOCASE
// collation, so the same collation backs both this lookup and the
// uniqueness constraint.
func (s *ProjectStore) GetByName(ctx context.Context, name string) (*project.Project, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE name = ?`, name)
	return scanProject(row)
}

// List returns projects, newest first.
func (s *ProjectStore) List(ctx context.Context, filter project.Filter) ([]project.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects`
	args := []any{}
	if filter.Status != "" {
		query += ` WHERE status = ?`
		args = append(args, filter.Status)
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storage.Internal("failed to list projects", err)
	}
	defer rows.Close()

	var projects []project.Project
	for rows.Next() {
		proj, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *proj)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.Internal("error iterating project rows", err)
	}
	return projects, nil
}

// Update merges the patch into the project. A patch with no effective change
// writes nothing and returns the current row.
func (s *ProjectStore) Update(ctx context.Context, id string, patch project.Patch) (*project.Project, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storage.Internal("failed to begin transaction", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	proj, err := scanProject(row)
	if err != nil {
		return nil, err
	}

	if !patch.Apply(proj) {
		return proj, nil
	}
	if strings.TrimSpace(proj.Name) == "" {
		return nil, fmt.Errorf("%w: project name must not be empty", storage.ErrValidation)
	}
	if !proj.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown project status %q", storage.ErrValidation, proj.Status)
	}
	proj.UpdatedAt = ident.Now()

	_, err = tx.ExecContext(ctx, `
		UPDATE projects
		SET name = ?, description = ?, tags = ?, status = ?, config = ?, updated_at = ?
		WHERE id = ?
	`,
		proj.Name,
		proj.Description,
		encodeTags(proj.Tags),
		proj.Status,
		encodeConfig(proj.Config),
		proj.UpdatedAt,
		id,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: project name %q", storage.ErrConflict, proj.Name)
		}
		return nil, storage.Internal("failed to update project", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, storage.Internal("failed to commit project update", err)
	}
	return proj, nil
}

// Delete removes the project; artifacts and their versions go with it via
// the cascading foreign keys, all inside the engine's single write.
func (s *ProjectStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return storage.Internal("failed to delete project", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return storage.Internal("failed to get rows affected", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// CountArtifacts counts the project's active (non-archived) artifacts.
func (s *ProjectStore) CountArtifacts(ctx context.Context, id string) (int, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return 0, err
	}

	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM artifacts
		WHERE project_id = ? AND archived_at IS NULL
	`, id).Scan(&count)
	if err != nil {
		return 0, storage.Internal("failed to count artifacts", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*project.Project, error) {
	var proj project.Project
	var tags, config string
	err := row.Scan(
		&proj.ID,
		&proj.Name,
		&proj.Description,
		&tags,
		&proj.Status,
		&config,
		&proj.CreatedAt,
		&proj.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, storage.Internal("failed to scan project", err)
	}
	proj.Tags = decodeTags(tags)
	proj.Config = decodeConfig(config)
	return &proj, nil
}
