package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/calder/mnemo/internal/domain/project"
	"github.com/calder/mnemo/internal/ident"
	"github.com/calder/mnemo/internal/storage"
)

// ProjectStore implements storage.ProjectStore against the shared database.
// Every statement is scoped to the adapter's resolved owner.
type ProjectStore struct {
	adapter *Adapter
}

const projectColumns = `id, name, description, tags, status, config, created_at, updated_at`

// Create inserts a new project for the owner. A name colliding
// case-insensitively with another of the owner's projects fails with
// storage.ErrConflict.
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

	tags, _ := json.Marshal(proj.Tags)
	config, _ := json.Marshal(proj.Config)
	if proj.Config == nil {
		config = []byte(`{}`)
	}

	_, err := s.adapter.pool.Exec(ctx, `
		INSERT INTO projects (id, owner_id, name, description, tags, status, config, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		proj.ID,
		s.adapter.ownerID,
		proj.Name,
		proj.Description,
		tags,
		proj.Status,
		config,
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

// Get retrieves one of the owner's projects by ID.
func (s *ProjectStore) Get(ctx context.Context, id string) (*project.Project, error) {
	rows, err := s.adapter.pool.Query(ctx, `
		SELECT `+projectColumns+` FROM projects
		WHERE id = $1 AND owner_id = $2
	`, id, s.adapter.ownerID)
	if err != nil {
		return nil, storage.Internal("failed to query project", err)
	}
	return collectOneProject(rows)
}

// GetByName retrieves one of the owner's projects by name,
// case-insensitively.
func (s *ProjectStore) GetByName(ctx context.Context, name string) (*project.Project, error) {
	rows, err := s.adapter.pool.Query(ctx, `
		SELECT `+projectColumns+` FROM projects
		WHERE lower(name) = lower($1) AND owner_id = $2
	`, name, s.adapter.ownerID)
	if err != nil {
		return nil, storage.Internal("failed to query project", err)
	}
	return collectOneProject(rows)
}

// List returns the owner's projects, newest first.
func (s *ProjectStore) List(ctx context.Context, filter project.Filter) ([]project.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE owner_id = $1`
	args := []any{s.adapter.ownerID}
	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, len(args)+1)
		args = append(args, filter.Status)
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, len(args)+1)
		args = append(args, filter.Limit)
	}

	rows, err := s.adapter.pool.Query(ctx, query, args...)
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
// writes nothing.
func (s *ProjectStore) Update(ctx context.Context, id string, patch project.Patch) (*project.Project, error) {
	tx, err := s.adapter.pool.Begin(ctx)
	if err != nil {
		return nil, storage.Internal("failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		SELECT `+projectColumns+` FROM projects
		WHERE id = $1 AND owner_id = $2
		FOR UPDATE
	`, id, s.adapter.ownerID)
	if err != nil {
		return nil, storage.Internal("failed to query project", err)
	}
	proj, err := collectOneProject(rows)
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

	tags, _ := json.Marshal(proj.Tags)
	config, _ := json.Marshal(proj.Config)
	if proj.Config == nil {
		config = []byte(`{}`)
	}

	_, err = tx.Exec(ctx, `
		UPDATE projects
		SET name = $1, description = $2, tags = $3, status = $4, config = $5, updated_at = $6
		WHERE id = $7 AND owner_id = $8
	`, proj.Name, proj.Description, tags, proj.Status, config, proj.UpdatedAt, id, s.adapter.ownerID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: project name %q", storage.ErrConflict, proj.Name)
		}
		return nil, storage.Internal("failed to update project", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, storage.Internal("failed to commit project update", err)
	}
	return proj, nil
}

// Delete removes the project; artifacts and versions cascade.
func (s *ProjectStore) Delete(ctx context.Context, id string) error {
	tag, err := s.adapter.pool.Exec(ctx,
		`DELETE FROM projects WHERE id = $1 AND owner_id = $2`,
		id, s.adapter.ownerID)
	if err != nil {
		return storage.Internal("failed to delete project", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// CountArtifacts counts the project's active artifacts.
func (s *ProjectStore) CountArtifacts(ctx context.Context, id string) (int, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return 0, err
	}

	var count int
	err := s.adapter.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM artifacts
		WHERE project_id = $1 AND archived_at IS NULL
	`, id).Scan(&count)
	if err != nil {
		return 0, storage.Internal("failed to count artifacts", err)
	}
	return count, nil
}

type pgScanner interface {
	Scan(dest ...any) error
}

func collectOneProject(rows pgx.Rows) (*project.Project, error) {
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, storage.Internal("failed to query project", err)
		}
		return nil, storage.ErrNotFound
	}
	return scanProject(rows)
}

func scanProject(row pgScanner) (*project.Project, error) {
	var proj project.Project
	var tags, config []byte
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
	if err != nil {
		return nil, storage.Internal("failed to scan project", err)
	}
	if err := json.Unmarshal(tags, &proj.Tags); err != nil || proj.Tags == nil {
		proj.Tags = []string{}
	}
	if err := json.Unmarshal(config, &proj.Config); err != nil || proj.Config == nil {
		proj.Config = map[string]any{}
	}
	return &proj, nil
}
