package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/calder/mnemo/internal/domain/artifact"
	"github.com/calder/mnemo/internal/storage"
)

const defaultSearchLimit = 20

// searchArtifacts ranks active artifacts against the query using the FTS5
// shadow index. A query FTS5 cannot parse falls back to plain substring
// matching rather than failing the call.
func searchArtifacts(ctx context.Context, db *DB, query string, opts storage.SearchOptions) ([]artifact.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: search query must not be empty", storage.ErrValidation)
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	results, err := searchFTS(ctx, db, query, opts.ProjectID, limit)
	if err != nil {
		if isFTSSyntaxError(err) {
			return searchSubstring(ctx, db, query, opts.ProjectID, limit)
		}
		if errors.Is(err, storage.ErrStorage) {
			return nil, err
		}
		return nil, storage.Internal("search failed", err)
	}
	return results, nil
}

func searchFTS(ctx context.Context, db *DB, query, projectID string, limit int) ([]artifact.SearchResult, error) {
	sqlQuery := `
		SELECT a.id, a.project_id, a.title, a.type, a.summary, a.priority, a.tags,
		       a.version, length(a.content), a.content, a.updated_at, artifacts_fts.rank
		FROM artifacts_fts
		JOIN artifacts a ON a.rowid = artifacts_fts.rowid
		WHERE artifacts_fts MATCH ? AND a.archived_at IS NULL
	`
	args := []any{query}
	if projectID != "" {
		sqlQuery += ` AND a.project_id = ?`
		args = append(args, projectID)
	}
	sqlQuery += ` ORDER BY artifacts_fts.rank LIMIT ?`
	args = append(args, limit)

	rows, err := db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []artifact.SearchResult
	for rows.Next() {
		var sum artifact.Summary
		var tags, content string
		var rank float64
		err := rows.Scan(
			&sum.ID, &sum.ProjectID, &sum.Title, &sum.Type, &sum.Summary,
			&sum.Priority, &tags, &sum.Version, &sum.CharCount, &content,
			&sum.UpdatedAt, &rank,
		)
		if err != nil {
			return nil, storage.Internal("failed to scan search result", err)
		}
		sum.Tags = decodeTags(tags)
		sum.EstimatedTokens = artifact.EstimateTokens(sum.CharCount)
		results = append(results, artifact.SearchResult{
			Artifact: sum,
			// bm25 rank is negative with better matches more negative;
			// negate so higher score means better.
			Score:   -rank,
			Snippet: artifact.MakeSnippet(sum.Summary, content, query),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, storage.Internal("error iterating search rows", err)
	}
	return results, nil
}

// searchSubstring is the fallback path for queries FTS5 rejects. Matches are
// unranked (flat score) and ordered by update recency.
func searchSubstring(ctx context.Context, db *DB, query, projectID string, limit int) ([]artifact.SearchResult, error) {
	pattern := "%" + escapeLike(query) + "%"
	sqlQuery := `
		SELECT id, project_id, title, type, summary, priority, tags,
		       version, length(content), content, updated_at
		FROM artifacts
		WHERE archived_at IS NULL
		  AND (title LIKE ? ESCAPE '\' OR content LIKE ? ESCAPE '\' OR summary LIKE ? ESCAPE '\')
	`
	args := []any{pattern, pattern, pattern}
	if projectID != "" {
		sqlQuery += ` AND project_id = ?`
		args = append(args, projectID)
	}
	sqlQuery += ` ORDER BY updated_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, storage.Internal("substring search failed", err)
	}
	defer rows.Close()

	var results []artifact.SearchResult
	for rows.Next() {
		var sum artifact.Summary
		var tags, content string
		err := rows.Scan(
			&sum.ID, &sum.ProjectID, &sum.Title, &sum.Type, &sum.Summary,
			&sum.Priority, &tags, &sum.Version, &sum.CharCount, &content,
			&sum.UpdatedAt,
		)
		if err != nil {
			return nil, storage.Internal("failed to scan search result", err)
		}
		sum.Tags = decodeTags(tags)
		sum.EstimatedTokens = artifact.EstimateTokens(sum.CharCount)
		results = append(results, artifact.SearchResult{
			Artifact: sum,
			Score:    1.0,
			Snippet:  artifact.MakeSnippet(sum.Summary, content, query),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, storage.Internal("error iterating search rows", err)
	}
	return results, nil
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
