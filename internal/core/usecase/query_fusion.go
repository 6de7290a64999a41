package usecase

import (
	"fmt"
	"sort"

	"github.com/kirillkom/manual-rag/internal/core/domain"
)

type fusedCandidate struct {
	chunk domain.RetrievedChunk
	score float64
}

// fuseCandidatesRRF merges the per-variant result lists with reciprocal
// rank fusion, deduplicating by chunk id. A chunk retrieved by several
// query variants accumulates score and ranks higher.
func fuseCandidatesRRF(lists [][]domain.RetrievedChunk, rrfK int) []domain.RetrievedChunk {
	if rrfK <= 0 {
		rrfK = 60
	}

	total := 0
	for _, list := range lists {
		total += len(list)
	}
	acc := make(map[string]fusedCandidate, total)
	for _, list := range lists {
		for rank, chunk := range list {
			key := retrievalChunkKey(chunk)
			candidate := acc[key]
			candidate.chunk = preferRicherChunk(candidate.chunk, chunk)
			candidate.score += 1.0 / float64(rrfK+rank+1)
			acc[key] = candidate
		}
	}

	out := make([]domain.RetrievedChunk, 0, len(acc))
	for _, c := range acc {
		chunk := c.chunk
		chunk.Score = c.score
		out = append(out, chunk)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		if out[i].Page != out[j].Page {
			return out[i].Page < out[j].Page
		}
		return out[i].ChunkIndex < out[j].ChunkIndex
	})

	return out
}

func trimCandidates(chunks []domain.RetrievedChunk, limit int) []domain.RetrievedChunk {
	if limit <= 0 || len(chunks) <= limit {
		return chunks
	}
	return chunks[:limit]
}

func retrievalChunkKey(chunk domain.RetrievedChunk) string {
	if chunk.ID != "" {
		return chunk.ID
	}
	return fmt.Sprintf("%s:%d:%d|%s", chunk.Source, chunk.Page, chunk.ChunkIndex, chunk.Text)
}

func preferRicherChunk(current, candidate domain.RetrievedChunk) domain.RetrievedChunk {
	if current.ID == "" && current.Source == "" && current.Text == "" {
		return candidate
	}
	if current.Text == "" && candidate.Text != "" {
		current.Text = candidate.Text
	}
	if current.Source == "" && candidate.Source != "" {
		current.Source = candidate.Source
	}
	if current.ID == "" && candidate.ID != "" {
		current.ID = candidate.ID
	}
	return current
}
