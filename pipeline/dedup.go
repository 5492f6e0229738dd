package pipeline

import "strings"

// Deduplicate removes exact-content repeats from a batch before any
// classification work. Two chunks are duplicates when they share a chunk
// identifier or when their text is byte-identical after normalization
// (case folding and whitespace collapse). The first occurrence in input
// order wins. The function is pure and idempotent: running it on its own
// output returns the same sequence.
func Deduplicate(chunks []Chunk) []Chunk {
	seenIDs := make(map[string]struct{}, len(chunks))
	seenText := make(map[string]struct{}, len(chunks))

	out := make([]Chunk, 0, len(chunks))
	for _, c := range chunks {
		if c.ChunkID != "" {
			if _, ok := seenIDs[c.ChunkID]; ok {
				continue
			}
		}

		norm := normalizeText(c.Text())
		if norm != "" {
			if _, ok := seenText[norm]; ok {
				continue
			}
			seenText[norm] = struct{}{}
		}

		if c.ChunkID != "" {
			seenIDs[c.ChunkID] = struct{}{}
		}
		out = append(out, c)
	}

	return out
}

func normalizeText(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
