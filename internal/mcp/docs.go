package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `mnemo stores durable AI memory as Projects → Artifacts → Versions.

Core concepts:
- Project: a named container for artifacts. Names are unique (case-insensitive).
- Artifact: one titled piece of content (document, code, decision, conversation, file)
  with a priority (core, normal, reference) and free-form tags.
- Version: an immutable snapshot of an artifact's state taken before each mutation.
  The version counter starts at 1 and only ever moves forward.
- Chunking: content too large for one response is split into part artifacts plus an
  index automatically on store, and reassembled (checksum-verified) on get.

Default workflow:
1) Orient: list_projects, then get_project for the one you need (by id or name).
2) Browse cheaply: list_artifacts returns summaries (no bodies) with char counts
   and token estimates; use search_artifacts for full-text lookup with snippets.
3) Read: get_artifact by id, or by project_id + title.
4) Write: store_artifact for new content; update_artifact for changes — every
   effective change is snapshotted, so history is never lost.
5) Housekeeping: archive_artifact hides without deleting; restore_artifact brings
   it back; rollback_artifact restores an earlier snapshot (history moves forward).

Notes:
- Listings put core-priority artifacts first, then order by update recency.
- Archived artifacts are excluded from listings, title lookup, and search.
- Use limit arguments to control token usage on list and search tools.

Docs:
- mnemo://docs/versioning (how snapshots, archive, restore and rollback interact)
- mnemo://docs/chunking (how oversized content is split and reassembled)
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "mnemo://docs/versioning",
		Name:        "docs_versioning",
		Title:       "Versioning semantics",
		Description: "How the version counter, snapshots, archive, restore and rollback interact.",
		Content: `# Versioning semantics

Every artifact carries a version counter starting at 1. Before any mutation that
changes the artifact, the current title, content, summary and priority are copied
into an immutable snapshot tagged with the operation that caused it.

Rules:

- **update**: snapshots the prior state, bumps the counter. A patch that changes
  nothing writes nothing — same content in, same version out.
- **archive**: snapshots the prior state but does NOT bump the counter; archiving
  changes visibility, not content. Archiving an archived artifact is a no-op.
- **restore**: snapshots and bumps. Restoring an active artifact is a no-op.
- **rollback**: copies title/content/summary/priority from a chosen snapshot into
  the artifact, snapshotting the pre-rollback state first and bumping the counter.
  Rolling back never decrements the counter: after contents A, B, C at versions
  1, 2, 3, rolling back to the version-1 snapshot yields content A at version 4.

After N effective updates an artifact is at version N+1 with snapshots 1..N in
history. list_artifact_versions returns snapshots newest counter value first;
get_artifact_version returns one snapshot with full content.
`,
	},
	{
		URI:         "mnemo://docs/chunking",
		Name:        "docs_chunking",
		Title:       "Content chunking",
		Description: "How oversized content is split into part artifacts and reassembled.",
		Content: `# Content chunking

Content whose JSON-serialized size exceeds the safe transmission limit is split
before storage:

- Each part becomes its own artifact titled "<title> [part i/N]" at reference
  priority, tagged chunk-part.
- The artifact stored under the requested title becomes a human-readable index
  listing the parts, tagged with the part count and an MD5 checksum of the
  original content.

Parts are cut at natural boundaries — paragraph break, then line break, then
sentence end — falling back to hard cuts for content without any.

get_artifact reverses the split transparently: it fetches every part in order,
concatenates them, and verifies the checksum. A missing or corrupted part fails
the read with an INTEGRITY error rather than returning incomplete content.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		doc := doc

		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
