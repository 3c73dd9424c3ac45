package mcp

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/calder/mnemo/internal/chunk"
	"github.com/calder/mnemo/internal/domain/artifact"
	"github.com/calder/mnemo/internal/storage"
)

// Oversized content is split before the artifact store ever sees it: each
// part becomes its own artifact, and the named artifact becomes a
// human-readable index carrying the reassembly metadata in its tags. Reads
// reverse the transformation transparently.

const (
	tagChunkIndex   = "chunk-index"
	tagChunkPart    = "chunk-part"
	tagPartsPrefix  = "chunk-parts:"
	tagDigestPrefix = "chunk-md5:"
	partTitleFormat = "%s [part %d/%d]"
)

func partTitle(title string, i, n int) string {
	return fmt.Sprintf(partTitleFormat, title, i, n)
}

// chunkMeta is the reassembly metadata recovered from an index artifact's
// tags.
type chunkMeta struct {
	Parts    int
	Checksum string
}

func indexTags(base []string, res chunk.Result) []string {
	tags := append([]string{}, base...)
	return append(tags,
		tagChunkIndex,
		tagPartsPrefix+strconv.Itoa(res.PartCount),
		tagDigestPrefix+res.Checksum,
	)
}

// parseChunkMeta recovers reassembly metadata from tags; ok is false for
// artifacts that are not chunk indexes.
func parseChunkMeta(tags []string) (chunkMeta, bool) {
	var meta chunkMeta
	indexed := false
	for _, tag := range tags {
		switch {
		case tag == tagChunkIndex:
			indexed = true
		case strings.HasPrefix(tag, tagPartsPrefix):
			n, err := strconv.Atoi(strings.TrimPrefix(tag, tagPartsPrefix))
			if err == nil {
				meta.Parts = n
			}
		case strings.HasPrefix(tag, tagDigestPrefix):
			meta.Checksum = strings.TrimPrefix(tag, tagDigestPrefix)
		}
	}
	if !indexed || meta.Parts < 1 {
		return chunkMeta{}, false
	}
	return meta, true
}

// storeArtifact creates the artifact, splitting oversized content into part
// artifacts plus an index artifact. It returns the artifact the caller
// addresses by title (the index, when split) and the number of parts (1 when
// unsplit).
func storeArtifact(ctx context.Context, store storage.ArtifactStore, req artifact.CreateRequest) (*artifact.Artifact, int, error) {
	if !chunk.NeedsChunking(req.Content, chunk.DefaultSafeSize) {
		art, err := store.Create(ctx, req)
		return art, 1, err
	}

	res := chunk.Split(req.Content, chunk.DefaultChunkSize)

	partNames := make([]string, res.PartCount)
	for i := range res.Parts {
		partNames[i] = partTitle(req.Title, i+1, res.PartCount)
	}

	created := make([]*artifact.Artifact, 0, res.PartCount)
	cleanup := func() {
		for _, part := range created {
			store.Archive(ctx, part.ID)
		}
	}

	for i, content := range res.Parts {
		part, err := store.Create(ctx, artifact.CreateRequest{
			ProjectID: req.ProjectID,
			Title:     partNames[i],
			Type:      req.Type,
			Content:   content,
			Priority:  artifact.PriorityReference,
			Tags:      append(append([]string{}, req.Tags...), tagChunkPart),
		})
		if err != nil {
			cleanup()
			return nil, 0, err
		}
		created = append(created, part)
	}

	index, err := store.Create(ctx, artifact.CreateRequest{
		ProjectID: req.ProjectID,
		Title:     req.Title,
		Type:      req.Type,
		Content:   chunk.IndexDocument(req.Title, res, partNames),
		Summary:   req.Summary,
		Priority:  req.Priority,
		Tags:      indexTags(req.Tags, res),
	})
	if err != nil {
		cleanup()
		return nil, 0, err
	}
	return index, res.PartCount, nil
}

// readArtifact returns the artifact with its original content. For a chunk
// index it fetches every part by title and reassembles them, verifying the
// recorded checksum.
func readArtifact(ctx context.Context, store storage.ArtifactStore, art *artifact.Artifact) (*artifact.Artifact, error) {
	meta, ok := parseChunkMeta(art.Tags)
	if !ok {
		return art, nil
	}

	parts := make([]string, meta.Parts)
	for i := 0; i < meta.Parts; i++ {
		part, err := store.GetByTitle(ctx, art.ProjectID, partTitle(art.Title, i+1, meta.Parts))
		if err != nil {
			return nil, fmt.Errorf("%w: missing part %d of %d", chunk.ErrIntegrity, i+1, meta.Parts)
		}
		parts[i] = part.Content
	}

	content, err := chunk.Reassemble(parts, meta.Checksum)
	if err != nil {
		return nil, err
	}

	assembled := *art
	assembled.Content = content
	return &assembled, nil
}
