package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/calder/mnemo/internal/domain/artifact"
	"github.com/calder/mnemo/internal/storage"
)

const defaultSearchLimit = 20

// searchArtifacts ranks the owner's active artifacts with Postgres
// full-text search. plainto_tsquery accepts any input, so unlike the
// embedded backend there is no malformed-query fallback path.
func (a *Adapter) searchArtifacts(ctx context.Context, query string, opts storage.SearchOptions) ([]artifact.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: search query must not be empty", storage.ErrValidation)
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	sqlQuery := `
		SELECT a.id, a.project_id, a.title, a.type, a.summary, a.priority, a.tags,
		       a.version, length(a.content), a.content, a.updated_at,
		       ts_rank(to_tsvector('english', a.title || ' ' || a.content || ' ' || a.summary),
		               plainto_tsquery('english', $1)) AS rank
		FROM artifacts a
		JOIN projects p ON a.project_id = p.id
		WHERE p.owner_id = $2 AND a.archived_at IS NULL
		  AND to_tsvector('english', a.title || ' ' || a.content || ' ' || a.summary)
		      @@ plainto_tsquery('english', $1)
	`
	args := []any{query, a.ownerID}
	if opts.ProjectID != "" {
		sqlQuery += fmt.Sprintf(` AND a.project_id = $%d`, len(args)+1)
		args = append(args, opts.ProjectID)
	}
	sqlQuery += fmt.Sprintf(` ORDER BY rank DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := a.pool.Query(ctx, sqlQuery, args...)
	if err != nil {
		return nil, storage.Internal("search failed", err)
	}
	defer rows.Close()

	var results []artifact.SearchResult
	for rows.Next() {
		var sum artifact.Summary
		var tags []byte
		var content string
		var rank float64
		err := rows.Scan(
			&sum.ID, &sum.ProjectID, &sum.Title, &sum.Type, &sum.Summary,
			&sum.Priority, &tags, &sum.Version, &sum.CharCount, &content,
			&sum.UpdatedAt, &rank,
		)
		if err != nil {
			return nil, storage.Internal("failed to scan search result", err)
		}
		if err := json.Unmarshal(tags, &sum.Tags); err != nil || sum.Tags == nil {
			sum.Tags = []string{}
		}
		sum.EstimatedTokens = artifact.EstimateTokens(sum.CharCount)
		results = append(results, artifact.SearchResult{
			Artifact: sum,
			Score:    rank,
			Snippet:  artifact.MakeSnippet(sum.Summary, content, query),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, storage.Internal("error iterating search rows", err)
	}
	return results, nil
}
