package ports

import (
	"context"

	"github.com/kirillkom/manual-rag/internal/core/domain"
)

// SourceRegistry persists per-file ingestion state.
type SourceRegistry interface {
	GetByPath(ctx context.Context, path string) (*domain.SourceRecord, error)
	Upsert(ctx context.Context, rec *domain.SourceRecord) error
	UpdateStatus(ctx context.Context, path string, status domain.SourceStatus, errMessage string) error
	MarkIndexed(ctx context.Context, path, contentHash string, pages, chunks int) error
	Reset(ctx context.Context) error
}

// SourceStore lists ingestible files from the configured documents location.
type SourceStore interface {
	List(ctx context.Context) ([]string, error)
}

// PageExtractor extracts page-wise plain text from a source file.
type PageExtractor interface {
	ExtractPages(ctx context.Context, path string) ([]domain.Page, error)
}

// Chunker splits page text into overlapping chunks.
type Chunker interface {
	Split(text string) []string
}

// Embedder builds vectors for chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorStore indexes chunks and performs similarity search.
type VectorStore interface {
	UpsertChunks(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error
	ExistingHashes(ctx context.Context) (map[string]string, error)
	Search(ctx context.Context, queryVector []float32, limit int) ([]domain.RetrievedChunk, error)
	SearchLexical(ctx context.Context, queryText string, limit int) ([]domain.RetrievedChunk, error)
	Reset(ctx context.Context) error
}

// QueryExpander produces paraphrased variants of a user question.
type QueryExpander interface {
	Expand(ctx context.Context, question string, n int) ([]string, error)
}

// AnswerGenerator creates the final user-facing answer from context chunks.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, question string, chunks []domain.RetrievedChunk) (string, error)
}

// AnswerJudge compares an actual answer against an expected one.
type AnswerJudge interface {
	Judge(ctx context.Context, expected, actual string) (bool, error)
}
