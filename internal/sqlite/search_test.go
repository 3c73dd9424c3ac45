package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/calder/mnemo/internal/domain/artifact"
	"github.com/calder/mnemo/internal/domain/project"
	"github.com/calder/mnemo/internal/storage"
)

func newSearchFixture(t *testing.T) (*Adapter, *project.Project) {
	t.Helper()
	adapter, err := NewAdapter(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { adapter.Close() })

	ctx := context.Background()
	require.NoError(t, adapter.Initialize(ctx))

	proj := &project.Project{Name: "search-project"}
	require.NoError(t, adapter.Projects().Create(ctx, proj))
	return adapter, proj
}

func seedArtifact(t *testing.T, adapter *Adapter, projectID, title, content, summary string) *artifact.Artifact {
	t.Helper()
	art, err := adapter.Artifacts().Create(context.Background(), artifact.CreateRequest{
		ProjectID: projectID,
		Title:     title,
		Type:      artifact.TypeDocument,
		Content:   content,
		Summary:   summary,
	})
	require.NoError(t, err)
	return art
}

func TestSearchRanked(t *testing.T) {
	adapter, proj := newSearchFixture(t)
	ctx := context.Background()

	seedArtifact(t, adapter, proj.ID, "deployment guide",
		"How to deploy the service. Deployment needs credentials and a deployment target.", "")
	seedArtifact(t, adapter, proj.ID, "style notes",
		"Formatting conventions for the codebase.", "")

	results, err := adapter.Search(ctx, "deployment", storage.SearchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "deployment guide", results[0].Artifact.Title)
	require.Greater(t, results[0].Score, 0.0)
	require.Contains(t, results[0].Snippet, "deploy")
}

func TestSearchExcludesArchived(t *testing.T) {
	adapter, proj := newSearchFixture(t)
	ctx := context.Background()

	art := seedArtifact(t, adapter, proj.ID, "secret plan", "the hidden roadmap", "")

	results, err := adapter.Search(ctx, "roadmap", storage.SearchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 1)

	_, err = adapter.Artifacts().Archive(ctx, art.ID)
	require.NoError(t, err)

	results, err = adapter.Search(ctx, "roadmap", storage.SearchOptions{})
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestSearchProjectScope(t *testing.T) {
	adapter, proj := newSearchFixture(t)
	ctx := context.Background()

	other := &project.Project{Name: "other-project"}
	require.NoError(t, adapter.Projects().Create(ctx, other))

	seedArtifact(t, adapter, proj.ID, "here", "kubernetes manifests", "")
	seedArtifact(t, adapter, other.ID, "there", "kubernetes operators", "")

	all, err := adapter.Search(ctx, "kubernetes", storage.SearchOptions{})
	require.NoError(t, err)
	require.Len(t, all, 2)

	scoped, err := adapter.Search(ctx, "kubernetes", storage.SearchOptions{ProjectID: proj.ID})
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	require.Equal(t, "here", scoped[0].Artifact.Title)
}

// A query FTS5 cannot parse falls back to substring matching instead of
// failing.
func TestSearchFallbackOnMalformedQuery(t *testing.T) {
	adapter, proj := newSearchFixture(t)
	ctx := context.Background()

	seedArtifact(t, adapter, proj.ID, "notes", `content mentioning "unbalanced quotes here`, "")

	results, err := adapter.Search(ctx, `"unbalanced`, storage.SearchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, 1.0, results[0].Score)
}

func TestSearchSnippetPrefersSummary(t *testing.T) {
	adapter, proj := newSearchFixture(t)
	ctx := context.Background()

	seedArtifact(t, adapter, proj.ID, "doc", "long body about databases", "short summary")

	results, err := adapter.Search(ctx, "databases", storage.SearchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "short summary", results[0].Snippet)
}

func TestSearchEmptyQuery(t *testing.T) {
	adapter, _ := newSearchFixture(t)

	_, err := adapter.Search(context.Background(), "   ", storage.SearchOptions{})
	require.ErrorIs(t, err, storage.ErrValidation)
}

func TestSearchLimit(t *testing.T) {
	adapter, proj := newSearchFixture(t)
	ctx := context.Background()

	for _, title := range []string{"a", "b", "c"} {
		seedArtifact(t, adapter, proj.ID, title, "shared keyword gopher", "")
	}

	results, err := adapter.Search(ctx, "gopher", storage.SearchOptions{Limit: 2})
	require.NoError(t, err)
	require.Len(t, results, 2)
}
