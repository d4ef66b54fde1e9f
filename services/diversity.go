package services

import "basin-research-platform/models"

// DiversityFilter deduplicates rank-ordered chunks so at most one chunk per
// source document survives: a single forward pass keeping the first chunk
// seen per filename, stopping once k are accepted. Output order is a
// subsequence of input order. This is a greedy rank-preserving dedup, not an
// MMR-style similarity tradeoff.
func DiversityFilter(chunks []models.ScoredChunk, k int) []models.ScoredChunk {
	if k <= 0 || len(chunks) == 0 {
		return []models.ScoredChunk{}
	}

	seen := make(map[string]struct{}, k)
	filtered := make([]models.ScoredChunk, 0, k)

	for _, chunk := range chunks {
		if _, dup := seen[chunk.Filename]; dup {
			continue
		}
		seen[chunk.Filename] = struct{}{}
		filtered = append(filtered, chunk)
		if len(filtered) >= k {
			break
		}
	}

	return filtered
}
