package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/calder/mnemo/internal/domain/artifact"
	"github.com/calder/mnemo/internal/domain/project"
	"github.com/calder/mnemo/internal/storage"
)

func TestProjectCreateAndGet(t *testing.T) {
	db := NewTestDB(t)
	store := NewProjectStore(db)
	ctx := context.Background()

	proj := &project.Project{
		Name:        "alpha",
		Description: "first project",
		Tags:        []string{"go", "storage"},
		Config:      map[string]any{"retention": "forever"},
	}
	require.NoError(t, store.Create(ctx, proj))
	require.NotEmpty(t, proj.ID)
	require.Equal(t, project.StatusActive, proj.Status)

	got, err := store.Get(ctx, proj.ID)
	require.NoError(t, err)
	require.Equal(t, "alpha", got.Name)
	require.Equal(t, []string{"go", "storage"}, got.Tags)
	require.Equal(t, "forever", got.Config["retention"])
}

func TestProjectCreateEmptyName(t *testing.T) {
	db := NewTestDB(t)
	store := NewProjectStore(db)

	err := store.Create(context.Background(), &project.Project{Name: "   "})
	require.ErrorIs(t, err, storage.ErrValidation)
}

func TestProjectNameCaseInsensitiveConflict(t *testing.T) {
	db := NewTestDB(t)
	store := NewProjectStore(db)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, &project.Project{Name: "Alpha"}))

	err := store.Create(ctx, &project.Project{Name: "ALPHA"})
	require.ErrorIs(t, err, storage.ErrConflict)
}

func TestProjectGetByNameCaseInsensitive(t *testing.T) {
	db := NewTestDB(t)
	store := NewProjectStore(db)
	ctx := context.Background()

	proj := &project.Project{Name: "Alpha"}
	require.NoError(t, store.Create(ctx, proj))

	got, err := store.GetByName(ctx, "alpha")
	require.NoError(t, err)
	require.Equal(t, proj.ID, got.ID)

	_, err = store.GetByName(ctx, "beta")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestProjectList(t *testing.T) {
	db := NewTestDB(t)
	store := NewProjectStore(db)
	ctx := context.Background()

	archived := project.StatusArchived
	require.NoError(t, store.Create(ctx, &project.Project{Name: "one"}))
	require.NoError(t, store.Create(ctx, &project.Project{Name: "two", Status: archived}))

	all, err := store.List(ctx, project.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 2)

	active, err := store.List(ctx, project.Filter{Status: project.StatusActive})
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, "one", active[0].Name)
}

func TestProjectUpdate(t *testing.T) {
	db := NewTestDB(t)
	store := NewProjectStore(db)
	ctx := context.Background()

	proj := &project.Project{Name: "alpha"}
	require.NoError(t, store.Create(ctx, proj))

	desc := "updated"
	got, err := store.Update(ctx, proj.ID, project.Patch{Description: &desc})
	require.NoError(t, err)
	require.Equal(t, "updated", got.Description)

	// Same patch again changes nothing and still returns the row.
	unchanged, err := store.Update(ctx, proj.ID, project.Patch{Description: &desc})
	require.NoError(t, err)
	require.True(t, got.UpdatedAt.Equal(unchanged.UpdatedAt))
}

func TestProjectUpdateRenameConflict(t *testing.T) {
	db := NewTestDB(t)
	store := NewProjectStore(db)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, &project.Project{Name: "alpha"}))
	proj := &project.Project{Name: "beta"}
	require.NoError(t, store.Create(ctx, proj))

	name := "ALPHA"
	_, err := store.Update(ctx, proj.ID, project.Patch{Name: &name})
	require.ErrorIs(t, err, storage.ErrConflict)
}

func TestProjectDeleteCascades(t *testing.T) {
	db := NewTestDB(t)
	projects := NewProjectStore(db)
	artifacts := NewArtifactStore(db)
	ctx := context.Background()

	proj := &project.Project{Name: "alpha"}
	require.NoError(t, projects.Create(ctx, proj))

	art, err := artifacts.Create(ctx, artifact.CreateRequest{
		ProjectID: proj.ID,
		Title:     "doc",
		Type:      artifact.TypeDocument,
		Content:   "body",
	})
	require.NoError(t, err)

	// Give the artifact some version history.
	content := "body v2"
	_, err = artifacts.Update(ctx, art.ID, artifact.Patch{Content: &content})
	require.NoError(t, err)

	require.NoError(t, projects.Delete(ctx, proj.ID))

	_, err = artifacts.Get(ctx, art.ID)
	require.ErrorIs(t, err, storage.ErrNotFound)

	var versions int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM artifact_versions`).Scan(&versions))
	require.Zero(t, versions)
}

func TestProjectDeleteMissing(t *testing.T) {
	db := NewTestDB(t)
	store := NewProjectStore(db)

	err := store.Delete(context.Background(), "nope")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestProjectCountArtifacts(t *testing.T) {
	db := NewTestDB(t)
	projects := NewProjectStore(db)
	artifacts := NewArtifactStore(db)
	ctx := context.Background()

	proj := &project.Project{Name: "alpha"}
	require.NoError(t, projects.Create(ctx, proj))

	a, err := artifacts.Create(ctx, artifact.CreateRequest{ProjectID: proj.ID, Title: "a", Type: artifact.TypeDocument, Content: "x"})
	require.NoError(t, err)
	_, err = artifacts.Create(ctx, artifact.CreateRequest{ProjectID: proj.ID, Title: "b", Type: artifact.TypeDocument, Content: "y"})
	require.NoError(t, err)

	count, err := projects.CountArtifacts(ctx, proj.ID)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	// Archived artifacts do not count.
	_, err = artifacts.Archive(ctx, a.ID)
	require.NoError(t, err)

	count, err = projects.CountArtifacts(ctx, proj.ID)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	_, err = projects.CountArtifacts(ctx, "nope")
	require.ErrorIs(t, err, storage.ErrNotFound)
}
