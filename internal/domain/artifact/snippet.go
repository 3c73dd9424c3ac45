package artifact

import (
	"strings"
	"unicode/utf8"
)

const (
	snippetHead   = 200
	snippetBefore = 50
	snippetAfter  = 150
)

// MakeSnippet extracts a short preview for a search hit. A summary wins when
// present; otherwise a window around the first case-insensitive occurrence
// of the query inside the content, with ellipses marking truncation; when
// the query never occurs, the head of the content.
func MakeSnippet(summary, content, query string) string {
	if summary != "" {
		return head(summary, snippetHead)
	}

	idx := -1
	if query != "" {
		idx = strings.Index(strings.ToLower(content), strings.ToLower(query))
	}
	if idx < 0 {
		return head(content, snippetHead)
	}

	start := idx - snippetBefore
	if start < 0 {
		start = 0
	}
	end := idx + len(query) + snippetAfter
	if end > len(content) {
		end = len(content)
	}
	// Keep window edges on rune boundaries.
	for start > 0 && !utf8.RuneStart(content[start]) {
		start--
	}
	for end < len(content) && !utf8.RuneStart(content[end]) {
		end++
	}

	snippet := content[start:end]
	if start > 0 {
		snippet = "..." + snippet
	}
	if end < len(content) {
		snippet += "..."
	}
	return snippet
}

func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
