package text

import (
	"strings"
)

// Chunker splits extracted document text into bounded-size segments with a
// fixed overlap between consecutive windows. Splitting is purely positional:
// the same input and configuration always produce the same sequence, which
// keeps re-indexing idempotent.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker builds a chunker with the given window size and overlap, both in
// runes. Overlap must be smaller than size; out-of-range values fall back to
// no overlap.
func NewChunker(size, overlap int) *Chunker {
	if size < 1 {
		size = 1
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	return &Chunker{size: size, overlap: overlap}
}

// Split breaks text into windows of at most size runes, each starting
// size-overlap runes after the previous one, in document order. Whitespace-only
// windows are dropped; returned chunks are never empty.
func (c *Chunker) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	runes := []rune(text)
	step := c.size - c.overlap

	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}
		window := string(runes[start:end])
		if strings.TrimSpace(window) != "" {
			chunks = append(chunks, window)
		}
		if end == len(runes) {
			break
		}
	}

	return chunks
}

// Dedupe collapses exact-text duplicates, keeping first occurrence order.
// Chunk windows of overlapping pages frequently repeat navigation fragments;
// indexing them twice only skews retrieval.
func Dedupe(chunks []string) []string {
	seen := make(map[string]struct{}, len(chunks))
	out := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
