package sqlite

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/calder/mnemo/internal/domain/artifact"
	"github.com/calder/mnemo/internal/domain/project"
	"github.com/calder/mnemo/internal/storage"
)

func newTestProject(t *testing.T, db *DB) *project.Project {
	t.Helper()
	proj := &project.Project{Name: "test-project"}
	require.NoError(t, NewProjectStore(db).Create(context.Background(), proj))
	return proj
}

func TestArtifactCreate(t *testing.T) {
	db := NewTestDB(t)
	proj := newTestProject(t, db)
	store := NewArtifactStore(db)
	ctx := context.Background()

	art, err := store.Create(ctx, artifact.CreateRequest{
		ProjectID: proj.ID,
		Title:     "design notes",
		Type:      artifact.TypeDocument,
		Content:   "initial content",
		Summary:   "notes",
		Tags:      []string{"design"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, art.ID)
	require.EqualValues(t, 1, art.Version)
	require.Equal(t, artifact.PriorityNormal, art.Priority)

	// Creation writes no history.
	versions, err := store.Versions(ctx, art.ID, 0)
	require.NoError(t, err)
	require.Empty(t, versions)
}

func TestArtifactCreateValidation(t *testing.T) {
	db := NewTestDB(t)
	proj := newTestProject(t, db)
	store := NewArtifactStore(db)
	ctx := context.Background()

	_, err := store.Create(ctx, artifact.CreateRequest{ProjectID: proj.ID, Title: "", Type: artifact.TypeDocument})
	require.ErrorIs(t, err, storage.ErrValidation)

	_, err = store.Create(ctx, artifact.CreateRequest{ProjectID: proj.ID, Title: "x", Type: "blob"})
	require.ErrorIs(t, err, storage.ErrValidation)

	_, err = store.Create(ctx, artifact.CreateRequest{ProjectID: "missing", Title: "x", Type: artifact.TypeDocument})
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestArtifactTitleConflictCaseInsensitive(t *testing.T) {
	db := NewTestDB(t)
	proj := newTestProject(t, db)
	store := NewArtifactStore(db)
	ctx := context.Background()

	_, err := store.Create(ctx, artifact.CreateRequest{ProjectID: proj.ID, Title: "Readme", Type: artifact.TypeDocument, Content: "a"})
	require.NoError(t, err)

	_, err = store.Create(ctx, artifact.CreateRequest{ProjectID: proj.ID, Title: "README", Type: artifact.TypeDocument, Content: "b"})
	require.ErrorIs(t, err, storage.ErrConflict)
}

func TestArtifactGetByTitle(t *testing.T) {
	db := NewTestDB(t)
	proj := newTestProject(t, db)
	store := NewArtifactStore(db)
	ctx := context.Background()

	art, err := store.Create(ctx, artifact.CreateRequest{ProjectID: proj.ID, Title: "Readme", Type: artifact.TypeDocument, Content: "a"})
	require.NoError(t, err)

	got, err := store.GetByTitle(ctx, proj.ID, "readme")
	require.NoError(t, err)
	require.Equal(t, art.ID, got.ID)

	// Archived artifacts are not found by title.
	_, err = store.Archive(ctx, art.ID)
	require.NoError(t, err)
	_, err = store.GetByTitle(ctx, proj.ID, "readme")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

// Version counter: N updates leave the artifact at version N+1 with
// snapshots 1..N in history.
func TestArtifactUpdateVersioning(t *testing.T) {
	db := NewTestDB(t)
	proj := newTestProject(t, db)
	store := NewArtifactStore(db)
	ctx := context.Background()

	art, err := store.Create(ctx, artifact.CreateRequest{ProjectID: proj.ID, Title: "doc", Type: artifact.TypeDocument, Content: "v1"})
	require.NoError(t, err)

	const n = 3
	for i := 0; i < n; i++ {
		content := fmt.Sprintf("v%d", i+2)
		art, err = store.Update(ctx, art.ID, artifact.Patch{Content: &content})
		require.NoError(t, err)
	}
	require.EqualValues(t, n+1, art.Version)

	versions, err := store.Versions(ctx, art.ID, 0)
	require.NoError(t, err)
	require.Len(t, versions, n)
	// Newest counter value first.
	for i, v := range versions {
		require.EqualValues(t, n-i, v.Version)
		require.Equal(t, artifact.SourceUpdate, v.Source)
	}

	// The snapshot under counter value 1 holds the original content.
	first, err := store.GetVersion(ctx, versions[n-1].ID)
	require.NoError(t, err)
	require.Equal(t, "v1", first.Content)
}

func TestArtifactUpdateNoDiffIsNoOp(t *testing.T) {
	db := NewTestDB(t)
	proj := newTestProject(t, db)
	store := NewArtifactStore(db)
	ctx := context.Background()

	art, err := store.Create(ctx, artifact.CreateRequest{ProjectID: proj.ID, Title: "doc", Type: artifact.TypeDocument, Content: "same"})
	require.NoError(t, err)

	content := "same"
	got, err := store.Update(ctx, art.ID, artifact.Patch{Content: &content})
	require.NoError(t, err)
	require.EqualValues(t, 1, got.Version)

	versions, err := store.Versions(ctx, art.ID, 0)
	require.NoError(t, err)
	require.Empty(t, versions)
}

func TestArtifactUpdateTagsOnlyBumpsVersion(t *testing.T) {
	db := NewTestDB(t)
	proj := newTestProject(t, db)
	store := NewArtifactStore(db)
	ctx := context.Background()

	art, err := store.Create(ctx, artifact.CreateRequest{ProjectID: proj.ID, Title: "doc", Type: artifact.TypeDocument, Content: "body"})
	require.NoError(t, err)

	got, err := store.Update(ctx, art.ID, artifact.Patch{Tags: []string{"new"}})
	require.NoError(t, err)
	require.EqualValues(t, 2, got.Version)
	require.Equal(t, []string{"new"}, got.Tags)
}

func TestArtifactArchiveAndRestore(t *testing.T) {
	db := NewTestDB(t)
	proj := newTestProject(t, db)
	store := NewArtifactStore(db)
	ctx := context.Background()

	art, err := store.Create(ctx, artifact.CreateRequest{ProjectID: proj.ID, Title: "doc", Type: artifact.TypeDocument, Content: "body"})
	require.NoError(t, err)

	// Archive snapshots without bumping the counter.
	archived, err := store.Archive(ctx, art.ID)
	require.NoError(t, err)
	require.True(t, archived.Archived())
	require.EqualValues(t, 1, archived.Version)

	// Archiving again is a pure no-op.
	again, err := store.Archive(ctx, art.ID)
	require.NoError(t, err)
	require.True(t, archived.UpdatedAt.Equal(again.UpdatedAt))

	versions, err := store.Versions(ctx, art.ID, 0)
	require.NoError(t, err)
	require.Len(t, versions, 1)
	require.Equal(t, artifact.SourceArchive, versions[0].Source)

	// Restore snapshots and bumps.
	restored, err := store.Restore(ctx, art.ID)
	require.NoError(t, err)
	require.False(t, restored.Archived())
	require.EqualValues(t, 2, restored.Version)

	// Restoring an active artifact is a pure no-op.
	same, err := store.Restore(ctx, art.ID)
	require.NoError(t, err)
	require.EqualValues(t, 2, same.Version)

	versions, err = store.Versions(ctx, art.ID, 0)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	// Archive and restore both snapshotted counter value 1.
	require.EqualValues(t, 1, versions[0].Version)
	require.EqualValues(t, 1, versions[1].Version)
}

// Rollback example: contents A, B, C at versions 1, 2, 3; rolling back to
// the version-1 snapshot yields content A at version 4.
func TestArtifactRollback(t *testing.T) {
	db := NewTestDB(t)
	proj := newTestProject(t, db)
	store := NewArtifactStore(db)
	ctx := context.Background()

	art, err := store.Create(ctx, artifact.CreateRequest{ProjectID: proj.ID, Title: "doc", Type: artifact.TypeDocument, Content: "A"})
	require.NoError(t, err)

	for _, content := range []string{"B", "C"} {
		c := content
		art, err = store.Update(ctx, art.ID, artifact.Patch{Content: &c})
		require.NoError(t, err)
	}
	require.EqualValues(t, 3, art.Version)

	versions, err := store.Versions(ctx, art.ID, 0)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	v1 := versions[len(versions)-1]
	require.EqualValues(t, 1, v1.Version)

	rolled, err := store.Rollback(ctx, art.ID, v1.ID)
	require.NoError(t, err)
	require.Equal(t, "A", rolled.Content)
	require.EqualValues(t, 4, rolled.Version)

	// The rollback itself snapshotted the pre-rollback state (content C).
	versions, err = store.Versions(ctx, art.ID, 0)
	require.NoError(t, err)
	require.Len(t, versions, 3)
	require.Equal(t, artifact.SourceRollback, versions[0].Source)
	top, err := store.GetVersion(ctx, versions[0].ID)
	require.NoError(t, err)
	require.Equal(t, "C", top.Content)
}

func TestArtifactRollbackForeignVersion(t *testing.T) {
	db := NewTestDB(t)
	proj := newTestProject(t, db)
	store := NewArtifactStore(db)
	ctx := context.Background()

	a, err := store.Create(ctx, artifact.CreateRequest{ProjectID: proj.ID, Title: "a", Type: artifact.TypeDocument, Content: "A"})
	require.NoError(t, err)
	b, err := store.Create(ctx, artifact.CreateRequest{ProjectID: proj.ID, Title: "b", Type: artifact.TypeDocument, Content: "B"})
	require.NoError(t, err)

	content := "A2"
	_, err = store.Update(ctx, a.ID, artifact.Patch{Content: &content})
	require.NoError(t, err)

	versions, err := store.Versions(ctx, a.ID, 0)
	require.NoError(t, err)
	require.Len(t, versions, 1)

	// A snapshot of artifact a cannot roll back artifact b.
	_, err = store.Rollback(ctx, b.ID, versions[0].ID)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestArtifactListOrdering(t *testing.T) {
	db := NewTestDB(t)
	proj := newTestProject(t, db)
	store := NewArtifactStore(db)
	ctx := context.Background()

	mk := func(title string, priority artifact.Priority) *artifact.Artifact {
		art, err := store.Create(ctx, artifact.CreateRequest{
			ProjectID: proj.ID, Title: title, Type: artifact.TypeDocument,
			Content: "body", Priority: priority,
		})
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
		return art
	}

	mk("old-normal", artifact.PriorityNormal)
	mk("core-doc", artifact.PriorityCore)
	mk("new-normal", artifact.PriorityReference)

	list, err := store.List(ctx, proj.ID, artifact.ListFilter{})
	require.NoError(t, err)
	require.Len(t, list, 3)
	// Core first, then by update recency.
	require.Equal(t, "core-doc", list[0].Title)
	require.Equal(t, "new-normal", list[1].Title)
	require.Equal(t, "old-normal", list[2].Title)

	// Derived fields are computed, never stored.
	require.Equal(t, len("body"), list[0].CharCount)
	require.Equal(t, artifact.EstimateTokens(len("body")), list[0].EstimatedTokens)

	// Type filter.
	docs, err := store.List(ctx, proj.ID, artifact.ListFilter{Priority: artifact.PriorityCore})
	require.NoError(t, err)
	require.Len(t, docs, 1)
}

func TestArtifactArchivedListing(t *testing.T) {
	db := NewTestDB(t)
	proj := newTestProject(t, db)
	store := NewArtifactStore(db)
	ctx := context.Background()

	a, err := store.Create(ctx, artifact.CreateRequest{ProjectID: proj.ID, Title: "a", Type: artifact.TypeDocument, Content: "x"})
	require.NoError(t, err)
	b, err := store.Create(ctx, artifact.CreateRequest{ProjectID: proj.ID, Title: "b", Type: artifact.TypeDocument, Content: "y"})
	require.NoError(t, err)

	_, err = store.Archive(ctx, a.ID)
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	_, err = store.Archive(ctx, b.ID)
	require.NoError(t, err)

	// Archived artifacts leave the active listing.
	active, err := store.List(ctx, proj.ID, artifact.ListFilter{})
	require.NoError(t, err)
	require.Empty(t, active)

	// And appear in the archived listing, most recent first.
	archived, err := store.ListArchived(ctx, proj.ID, 0)
	require.NoError(t, err)
	require.Len(t, archived, 2)
	require.Equal(t, "b", archived[0].Title)
	require.Equal(t, "a", archived[1].Title)
}

func TestArtifactVersionsLimitAndMissing(t *testing.T) {
	db := NewTestDB(t)
	proj := newTestProject(t, db)
	store := NewArtifactStore(db)
	ctx := context.Background()

	art, err := store.Create(ctx, artifact.CreateRequest{ProjectID: proj.ID, Title: "doc", Type: artifact.TypeDocument, Content: "v1"})
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		c := fmt.Sprintf("v%d", i+2)
		_, err = store.Update(ctx, art.ID, artifact.Patch{Content: &c})
		require.NoError(t, err)
	}

	versions, err := store.Versions(ctx, art.ID, 2)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	require.EqualValues(t, 5, versions[0].Version)

	_, err = store.Versions(ctx, "missing", 0)
	require.ErrorIs(t, err, storage.ErrNotFound)

	_, err = store.GetVersion(ctx, "missing")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestArtifactEngineFailureClassified(t *testing.T) {
	db := NewTestDB(t)
	store := NewArtifactStore(db)
	ctx := context.Background()

	require.NoError(t, db.Close())

	_, err := store.Get(ctx, "any")
	require.ErrorIs(t, err, storage.ErrStorage)

	_, err = store.List(ctx, "any", artifact.ListFilter{})
	require.ErrorIs(t, err, storage.ErrStorage)
}
