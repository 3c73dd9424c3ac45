package artifact

import "time"

// Type classifies what an artifact holds.
type Type string

const (
	TypeDocument     Type = "document"
	TypeCode         Type = "code"
	TypeDecision     Type = "decision"
	TypeConversation Type = "conversation"
	TypeFile         Type = "file"
)

// Valid reports whether the type is a known value.
func (t Type) Valid() bool {
	switch t {
	case TypeDocument, TypeCode, TypeDecision, TypeConversation, TypeFile:
		return true
	}
	return false
}

// Priority ranks artifacts for listing and retrieval. It never affects
// correctness.
type Priority string

const (
	PriorityCore      Priority = "core"
	PriorityNormal    Priority = "normal"
	PriorityReference Priority = "reference"
)

// Valid reports whether the priority is a known value.
func (p Priority) Valid() bool {
	switch p {
	case PriorityCore, PriorityNormal, PriorityReference:
		return true
	}
	return false
}

// ChangeSource tags a version snapshot with the operation that caused it.
type ChangeSource string

const (
	SourceUpdate   ChangeSource = "update"
	SourceArchive  ChangeSource = "archive"
	SourceRestore  ChangeSource = "restore"
	SourceRollback ChangeSource = "rollback"
)

// Valid reports whether the change source is a known value.
func (c ChangeSource) Valid() bool {
	switch c {
	case SourceUpdate, SourceArchive, SourceRestore, SourceRollback:
		return true
	}
	return false
}

// Artifact is a unit of content owned by exactly one project. Titles are
// unique case-insensitively within a project. The version counter starts at
// 1 and increases by exactly 1 on every content-affecting mutation.
type Artifact struct {
	ID         string     `json:"id"`
	ProjectID  string     `json:"project_id"`
	Title      string     `json:"title"`
	Type       Type       `json:"type"`
	Content    string     `json:"content"`
	Summary    string     `json:"summary,omitempty"`
	Priority   Priority   `json:"priority"`
	Tags       []string   `json:"tags"`
	Version    int64      `json:"version"`
	ArchivedAt *time.Time `json:"archived_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Archived reports whether the artifact is hidden from normal listings.
func (a *Artifact) Archived() bool {
	return a.ArchivedAt != nil
}

// Version is an immutable snapshot of an artifact's mutable fields as they
// were immediately before a mutation. The Version field holds the counter
// value the artifact had at snapshot time.
type Version struct {
	ID         string       `json:"id"`
	ArtifactID string       `json:"artifact_id"`
	Version    int64        `json:"version"`
	Title      string       `json:"title"`
	Content    string       `json:"content"`
	Summary    string       `json:"summary,omitempty"`
	Priority   Priority     `json:"priority"`
	Source     ChangeSource `json:"change_source"`
	CreatedAt  time.Time    `json:"created_at"`
}

// Summary is a listing view of an artifact. CharCount and EstimatedTokens
// are derived at query time, never stored.
type Summary struct {
	ID              string     `json:"id"`
	ProjectID       string     `json:"project_id"`
	Title           string     `json:"title"`
	Type            Type       `json:"type"`
	Summary         string     `json:"summary,omitempty"`
	Priority        Priority   `json:"priority"`
	Tags            []string   `json:"tags"`
	Version         int64      `json:"version"`
	CharCount       int        `json:"char_count"`
	EstimatedTokens int        `json:"estimated_tokens"`
	ArchivedAt      *time.Time `json:"archived_at,omitempty"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// VersionSummary is a listing view of a version snapshot.
type VersionSummary struct {
	ID              string       `json:"id"`
	ArtifactID      string       `json:"artifact_id"`
	Version         int64        `json:"version"`
	Title           string       `json:"title"`
	Source          ChangeSource `json:"change_source"`
	CharCount       int          `json:"char_count"`
	EstimatedTokens int          `json:"estimated_tokens"`
	CreatedAt       time.Time    `json:"created_at"`
}

// SearchResult is a ranked search hit with an extracted snippet.
type SearchResult struct {
	Artifact Summary `json:"artifact"`
	Score    float64 `json:"score"`
	Snippet  string  `json:"snippet,omitempty"`
}

// EstimateTokens is the chars/4 heuristic used for listing views.
func EstimateTokens(charCount int) int {
	return charCount / 4
}

// ListFilter narrows artifact listings. Zero values match everything.
type ListFilter struct {
	Type     Type
	Priority Priority
	Limit    int
}
