// Package chunker splits extracted document text into overlapping segments
// sized for embedding. Splits prefer structural boundaries (paragraph,
// line, sentence, word) and fall back to hard rune cuts.
package chunker

import "strings"

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 150
)

// separators in preference order; a chunk end snaps to the last occurrence
// of the strongest boundary available inside the window.
var separators = []string{"\n\n", "\n", ". ", " "}

// Split returns ordered chunks of at most size runes, with consecutive
// chunks sharing exactly overlap trailing/leading runes. Empty or
// whitespace-only input yields nil; callers treat that as nothing to index.
func Split(text string, size, overlap int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = size / 5
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}

	runes := []rune(text)
	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + size
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			break
		}
		end = snapToBoundary(runes, start, end, overlap)
		chunks = append(chunks, string(runes[start:end]))
		start = end - overlap
	}
	return chunks
}

// snapToBoundary moves end back to just after the last structural separator
// in the window, keeping the chunk longer than the overlap so the next chunk
// always makes progress. Returns end unchanged when no separator fits.
func snapToBoundary(runes []rune, start, end, overlap int) int {
	searchFrom := start + overlap + 1
	if searchFrom >= end {
		return end
	}
	window := string(runes[searchFrom:end])
	for _, sep := range separators {
		idx := strings.LastIndex(window, sep)
		if idx < 0 {
			continue
		}
		return searchFrom + len([]rune(window[:idx+len(sep)]))
	}
	return end
}
