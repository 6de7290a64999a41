package usecase

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/kirillkom/manual-rag/internal/core/domain"
	"github.com/kirillkom/manual-rag/internal/core/ports"
)

// buildChunks splits extracted pages and stamps every chunk with its
// deterministic id "source:page:index" and a SHA-256 content hash.
// The chunk index restarts on every page, so ids survive edits to
// unrelated pages.
func buildChunks(source string, pages []domain.Page, chunker ports.Chunker) []domain.Chunk {
	out := make([]domain.Chunk, 0, len(pages))
	for _, page := range pages {
		for idx, text := range chunker.Split(page.Text) {
			out = append(out, domain.Chunk{
				ID:     fmt.Sprintf("%s:%d:%d", source, page.Number, idx),
				Source: source,
				Page:   page.Number,
				Index:  idx,
				Text:   text,
				Hash:   hashText(text),
			})
		}
	}
	return out
}

func hashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// partitionChunks splits computed chunks into new, updated and unchanged
// against the vector store's existing id->hash map.
func partitionChunks(chunks []domain.Chunk, existing map[string]string) (newChunks, updated, unchanged []domain.Chunk) {
	for _, chunk := range chunks {
		storedHash, ok := existing[chunk.ID]
		switch {
		case !ok:
			newChunks = append(newChunks, chunk)
		case storedHash != chunk.Hash:
			updated = append(updated, chunk)
		default:
			unchanged = append(unchanged, chunk)
		}
	}
	return newChunks, updated, unchanged
}
