// Package chunk splits oversized artifact content into ordered parts that
// survive transport limits, and reassembles them with checksum verification.
// It is a pure transformation: the tool layer runs it before the artifact
// store ever sees the content.
package chunk

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultSafeSize is the serialized size above which content must be
	// split before transmission.
	DefaultSafeSize = 3500
	// DefaultChunkSize is the target size of each part.
	DefaultChunkSize = 3000
)

// Result describes a split.
type Result struct {
	Parts     []string `json:"parts"`
	TotalSize int      `json:"total_size"`
	PartCount int      `json:"part_count"`
	Checksum  string   `json:"checksum"`
}

// SerializedSize measures content as it travels on the wire, including JSON
// escaping overhead, excluding the surrounding quotes.
func SerializedSize(content string) int {
	encoded, err := json.Marshal(content)
	if err != nil {
		return len(content)
	}
	return len(encoded) - 2
}

// NeedsChunking reports whether content exceeds the safe transmission size.
// Empty content never needs chunking. A non-positive limit selects
// DefaultSafeSize.
func NeedsChunking(content string, safeSize int) bool {
	if content == "" {
		return false
	}
	if safeSize <= 0 {
		safeSize = DefaultSafeSize
	}
	return SerializedSize(content) > safeSize
}

// Split cuts content into parts of at most chunkSize characters, preferring
// natural boundaries. Each cut point is chosen, in order of preference, as
// the last paragraph break, line break, or sentence end inside the window —
// but only when it falls past the window midpoint, so every part consumes at
// least half the target size and progress is guaranteed. Content with no
// break points degrades to hard cuts exactly at chunkSize.
//
// The checksum is an MD5 hash of the original unsplit content, used for
// reassembly verification only.
func Split(content string, chunkSize int) Result {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	sum := md5.Sum([]byte(content))
	res := Result{
		TotalSize: len(content),
		Checksum:  hex.EncodeToString(sum[:]),
	}

	if len(content) <= chunkSize {
		res.Parts = []string{content}
		res.PartCount = 1
		return res
	}

	rest := content
	for len(rest) > chunkSize {
		cut := cutPoint(rest, chunkSize)
		res.Parts = append(res.Parts, rest[:cut])
		rest = rest[cut:]
	}
	if len(rest) > 0 {
		res.Parts = append(res.Parts, rest)
	}
	res.PartCount = len(res.Parts)
	return res
}

// cutPoint returns the index to cut s at, 0 < cut <= chunkSize.
func cutPoint(s string, chunkSize int) int {
	window := s[:chunkSize]
	mid := chunkSize / 2

	if i := strings.LastIndex(window, "\n\n"); i > mid {
		return i + 2
	}
	if i := strings.LastIndex(window, "\n"); i > mid {
		return i + 1
	}
	if i := lastSentenceEnd(window); i > mid {
		return i
	}
	// Hard cut: back off to a rune boundary so a multi-byte character is
	// never split across parts.
	cut := chunkSize
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	if cut == 0 {
		return chunkSize
	}
	return cut
}

// lastSentenceEnd finds the position just after the last sentence-ending
// punctuation followed by a space, or -1.
func lastSentenceEnd(window string) int {
	for i := len(window) - 2; i >= 0; i-- {
		switch window[i] {
		case '.', '!', '?':
			if window[i+1] == ' ' {
				return i + 2
			}
		}
	}
	return -1
}

// Reassemble concatenates parts in order. When expectedChecksum is non-empty
// and the recomputed hash differs, it fails with ErrIntegrity instead of
// returning corrupted data.
func Reassemble(parts []string, expectedChecksum string) (string, error) {
	content := strings.Join(parts, "")
	if expectedChecksum != "" {
		sum := md5.Sum([]byte(content))
		if hex.EncodeToString(sum[:]) != expectedChecksum {
			return "", ErrIntegrity
		}
	}
	return content, nil
}
