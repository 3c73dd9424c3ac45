package mcp

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/calder/mnemo/internal/chunk"
	"github.com/calder/mnemo/internal/domain/artifact"
	"github.com/calder/mnemo/internal/domain/project"
	"github.com/calder/mnemo/internal/sqlite"
)

func newTestAdapter(t *testing.T) (*sqlite.Adapter, string) {
	t.Helper()
	adapter, err := sqlite.NewAdapter(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { adapter.Close() })

	ctx := context.Background()
	require.NoError(t, adapter.Initialize(ctx))

	proj := &project.Project{Name: "notes"}
	require.NoError(t, adapter.Projects().Create(ctx, proj))
	return adapter, proj.ID
}

func TestParseChunkMeta(t *testing.T) {
	meta, ok := parseChunkMeta([]string{"chunk-index", "chunk-parts:3", "chunk-md5:abc123"})
	require.True(t, ok)
	require.Equal(t, 3, meta.Parts)
	require.Equal(t, "abc123", meta.Checksum)

	// Ordinary tags are not chunk metadata.
	_, ok = parseChunkMeta([]string{"design", "go"})
	require.False(t, ok)

	// An index tag without a part count is malformed.
	_, ok = parseChunkMeta([]string{"chunk-index"})
	require.False(t, ok)
}

func TestStoreArtifactSmallContent(t *testing.T) {
	adapter, projectID := newTestAdapter(t)
	ctx := context.Background()

	art, parts, err := storeArtifact(ctx, adapter.Artifacts(), artifact.CreateRequest{
		ProjectID: projectID,
		Title:     "small",
		Type:      artifact.TypeDocument,
		Content:   "fits in one piece",
	})
	require.NoError(t, err)
	require.Equal(t, 1, parts)
	require.Equal(t, "fits in one piece", art.Content)
}

func TestStoreAndReadChunkedArtifact(t *testing.T) {
	adapter, projectID := newTestAdapter(t)
	ctx := context.Background()

	// Paragraphs well past the safe size force a split.
	var b strings.Builder
	for i := 0; i < 40; i++ {
		b.WriteString(strings.Repeat("all work and no play makes for dull docs. ", 6))
		b.WriteString("\n\n")
	}
	original := b.String()
	require.True(t, chunk.NeedsChunking(original, chunk.DefaultSafeSize))

	index, parts, err := storeArtifact(ctx, adapter.Artifacts(), artifact.CreateRequest{
		ProjectID: projectID,
		Title:     "big document",
		Type:      artifact.TypeDocument,
		Content:   original,
		Summary:   "a very large document",
	})
	require.NoError(t, err)
	require.Greater(t, parts, 1)

	// The stored artifact under the requested title is the index.
	require.Contains(t, index.Content, "chunked content index")
	require.Contains(t, index.Tags, "chunk-index")

	// Part artifacts exist under derived titles.
	part1, err := adapter.Artifacts().GetByTitle(ctx, projectID, partTitle("big document", 1, parts))
	require.NoError(t, err)
	require.Equal(t, artifact.PriorityReference, part1.Priority)
	require.Contains(t, part1.Tags, "chunk-part")

	// Reads reassemble the original byte-for-byte.
	assembled, err := readArtifact(ctx, adapter.Artifacts(), index)
	require.NoError(t, err)
	require.Equal(t, original, assembled.Content)
}

func TestReadChunkedArtifactMissingPart(t *testing.T) {
	adapter, projectID := newTestAdapter(t)
	ctx := context.Background()

	original := strings.Repeat("sentence after sentence goes here. ", 300)
	index, parts, err := storeArtifact(ctx, adapter.Artifacts(), artifact.CreateRequest{
		ProjectID: projectID,
		Title:     "doomed",
		Type:      artifact.TypeDocument,
		Content:   original,
	})
	require.NoError(t, err)
	require.Greater(t, parts, 1)

	// Archiving a part takes it out of title lookup.
	part, err := adapter.Artifacts().GetByTitle(ctx, projectID, partTitle("doomed", 1, parts))
	require.NoError(t, err)
	_, err = adapter.Artifacts().Archive(ctx, part.ID)
	require.NoError(t, err)

	_, err = readArtifact(ctx, adapter.Artifacts(), index)
	require.ErrorIs(t, err, chunk.ErrIntegrity)
}

func TestReadArtifactPlainPassthrough(t *testing.T) {
	adapter, projectID := newTestAdapter(t)
	ctx := context.Background()

	art, _, err := storeArtifact(ctx, adapter.Artifacts(), artifact.CreateRequest{
		ProjectID: projectID,
		Title:     "plain",
		Type:      artifact.TypeCode,
		Content:   "package main",
	})
	require.NoError(t, err)

	got, err := readArtifact(ctx, adapter.Artifacts(), art)
	require.NoError(t, err)
	require.Equal(t, art, got)
}
