package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirillkom/manual-rag/internal/core/domain"
	"github.com/kirillkom/manual-rag/internal/core/ports"
)

const (
	RetrievalModeSemantic = "semantic"
	RetrievalModeHybrid   = "hybrid"
)

type QueryConfig struct {
	Variants      int
	TopK          int
	ContextLimit  int
	RetrievalMode string
	FusionRRFK    int
	RerankTopN    int
}

func (c QueryConfig) normalize() QueryConfig {
	out := c
	if out.Variants <= 0 {
		out.Variants = 5
	}
	if out.TopK <= 0 {
		out.TopK = 5
	}
	if out.ContextLimit <= 0 {
		out.ContextLimit = 8
	}
	if out.RetrievalMode != RetrievalModeHybrid {
		out.RetrievalMode = RetrievalModeSemantic
	}
	if out.FusionRRFK <= 0 {
		out.FusionRRFK = 60
	}
	return out
}

type QueryUseCase struct {
	embedder  ports.Embedder
	vectorDB  ports.VectorStore
	expander  ports.QueryExpander
	generator ports.AnswerGenerator
	cfg       QueryConfig
}

func NewQueryUseCase(
	embedder ports.Embedder,
	vectorDB ports.VectorStore,
	expander ports.QueryExpander,
	generator ports.AnswerGenerator,
	cfg QueryConfig,
) *QueryUseCase {
	return &QueryUseCase{
		embedder:  embedder,
		vectorDB:  vectorDB,
		expander:  expander,
		generator: generator,
		cfg:       cfg.normalize(),
	}
}

func (uc *QueryUseCase) Answer(ctx context.Context, question string) (*domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "answer question", errors.New("empty question"))
	}

	variants, err := uc.expander.Expand(ctx, question, uc.cfg.Variants)
	if err != nil {
		return nil, fmt.Errorf("expand query: %w", err)
	}
	searches := dedupeSearches(question, variants)
	slog.Debug("query_expanded", "variants", len(searches)-1)

	lists := make([][]domain.RetrievedChunk, 0, 2*len(searches))
	for _, search := range searches {
		hits, err := uc.retrieve(ctx, search)
		if err != nil {
			return nil, err
		}
		lists = append(lists, hits...)
	}

	fused := fuseCandidatesRRF(lists, uc.cfg.FusionRRFK)
	fused = rerankFusedCandidates(question, fused, uc.cfg.RerankTopN)
	contextChunks := trimCandidates(fused, uc.cfg.ContextLimit)

	answerText, err := uc.generator.GenerateAnswer(ctx, question, contextChunks)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	return &domain.Answer{
		Text:    answerText,
		Sources: sourceLabels(contextChunks),
		Chunks:  contextChunks,
	}, nil
}

func (uc *QueryUseCase) retrieve(ctx context.Context, search string) ([][]domain.RetrievedChunk, error) {
	queryVector, err := uc.embedder.EmbedQuery(ctx, search)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	semantic, err := uc.vectorDB.Search(ctx, queryVector, uc.cfg.TopK)
	if err != nil {
		return nil, fmt.Errorf("search vector db: %w", err)
	}
	if uc.cfg.RetrievalMode != RetrievalModeHybrid {
		return [][]domain.RetrievedChunk{semantic}, nil
	}

	lexical, err := uc.vectorDB.SearchLexical(ctx, search, uc.cfg.TopK)
	if err != nil {
		return nil, fmt.Errorf("lexical search vector db: %w", err)
	}
	return [][]domain.RetrievedChunk{semantic, lexical}, nil
}

// dedupeSearches keeps the original question first and drops blank or
// duplicate variants, comparing case-insensitively.
func dedupeSearches(question string, variants []string) []string {
	out := make([]string, 0, len(variants)+1)
	seen := map[string]struct{}{}

	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		key := strings.ToLower(s)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}

	add(question)
	for _, v := range variants {
		add(v)
	}
	return out
}

// sourceLabels returns the distinct "source page N" citations in rank order.
func sourceLabels(chunks []domain.RetrievedChunk) []string {
	out := make([]string, 0, len(chunks))
	seen := map[string]struct{}{}
	for _, chunk := range chunks {
		label := fmt.Sprintf("%s page %d", chunk.Source, chunk.Page)
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		out = append(out, label)
	}
	return out
}
