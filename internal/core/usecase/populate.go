package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"

	"github.com/kirillkom/manual-rag/internal/core/domain"
	"github.com/kirillkom/manual-rag/internal/core/ports"
)

type PopulateUseCase struct {
	registry  ports.SourceRegistry
	store     ports.SourceStore
	extractor ports.PageExtractor
	chunker   ports.Chunker
	embedder  ports.Embedder
	vectorDB  ports.VectorStore

	batchSize int
	limiter   *rate.Limiter
}

func NewPopulateUseCase(
	registry ports.SourceRegistry,
	store ports.SourceStore,
	extractor ports.PageExtractor,
	chunker ports.Chunker,
	embedder ports.Embedder,
	vectorDB ports.VectorStore,
	batchSize int,
	limiter *rate.Limiter,
) *PopulateUseCase {
	if batchSize <= 0 {
		batchSize = 32
	}
	return &PopulateUseCase{
		registry:  registry,
		store:     store,
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		vectorDB:  vectorDB,
		batchSize: batchSize,
		limiter:   limiter,
	}
}

func (uc *PopulateUseCase) Populate(ctx context.Context, sources []string, reset bool) (*domain.PopulateReport, error) {
	if reset {
		if err := uc.vectorDB.Reset(ctx); err != nil {
			return nil, fmt.Errorf("reset vector store: %w", err)
		}
		if err := uc.registry.Reset(ctx); err != nil {
			return nil, fmt.Errorf("reset source registry: %w", err)
		}
		slog.Info("database_cleared")
	}

	if len(sources) == 0 {
		listed, err := uc.store.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("list documents dir: %w", err)
		}
		sources = listed
	}

	existing, err := uc.vectorDB.ExistingHashes(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch existing chunk ids: %w", err)
	}
	slog.Info("existing_chunks", "count", len(existing))

	report := &domain.PopulateReport{}
	for _, src := range sources {
		if err := uc.populateSource(ctx, src, existing, report); err != nil {
			return nil, err
		}
	}
	return report, nil
}

func (uc *PopulateUseCase) populateSource(
	ctx context.Context,
	path string,
	existing map[string]string,
	report *domain.PopulateReport,
) error {
	contentHash, err := hashFile(path)
	if err != nil {
		return domain.WrapError(domain.ErrSourceNotFound, "read source file", err)
	}

	source := filepath.Base(path)
	rec, err := uc.registry.GetByPath(ctx, source)
	if err != nil && !domain.IsKind(err, domain.ErrSourceNotFound) {
		return fmt.Errorf("lookup source record: %w", err)
	}
	if rec != nil && rec.Status == domain.StatusIndexed && rec.ContentHash == contentHash {
		slog.Info("source_unchanged", "source", source)
		report.SourcesSkipped++
		return nil
	}

	now := time.Now().UTC()
	if err := uc.registry.Upsert(ctx, &domain.SourceRecord{
		Path:        source,
		ContentHash: contentHash,
		Status:      domain.StatusIndexing,
		CreatedAt:   now,
		UpdatedAt:   now,
	}); err != nil {
		return fmt.Errorf("register source: %w", err)
	}

	pages, chunks, err := uc.indexSource(ctx, path, source, existing, report)
	if err != nil {
		if failErr := uc.registry.UpdateStatus(ctx, source, domain.StatusFailed, err.Error()); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.registry.MarkIndexed(ctx, source, contentHash, pages, chunks); err != nil {
		return fmt.Errorf("mark source indexed: %w", err)
	}
	report.SourcesIndexed++
	return nil
}

func (uc *PopulateUseCase) indexSource(
	ctx context.Context,
	path, source string,
	existing map[string]string,
	report *domain.PopulateReport,
) (pages int, chunks int, err error) {
	extracted, err := uc.extractor.ExtractPages(ctx, path)
	if err != nil {
		return 0, 0, fmt.Errorf("extract pages: %w", err)
	}
	if len(extracted) == 0 {
		return 0, 0, domain.WrapError(domain.ErrInvalidInput, "extract pages", fmt.Errorf("no text in %s", source))
	}

	all := buildChunks(source, extracted, uc.chunker)
	newChunks, updated, unchanged := partitionChunks(all, existing)
	slog.Info("source_chunked",
		"source", source,
		"pages", len(extracted),
		"new", len(newChunks),
		"updated", len(updated),
		"unchanged", len(unchanged),
	)

	if err := uc.indexChunks(ctx, newChunks); err != nil {
		return 0, 0, err
	}
	if err := uc.indexChunks(ctx, updated); err != nil {
		return 0, 0, err
	}

	for _, chunk := range all {
		existing[chunk.ID] = chunk.Hash
	}
	report.ChunksAdded += len(newChunks)
	report.ChunksUpdated += len(updated)
	report.ChunksUnchanged += len(unchanged)
	return len(extracted), len(all), nil
}

func (uc *PopulateUseCase) indexChunks(ctx context.Context, chunks []domain.Chunk) error {
	for start := 0; start < len(chunks); start += uc.batchSize {
		end := start + uc.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		if uc.limiter != nil {
			if err := uc.limiter.Wait(ctx); err != nil {
				return fmt.Errorf("embed rate limit: %w", err)
			}
		}

		texts := make([]string, len(batch))
		for i, chunk := range batch {
			texts[i] = chunk.Text
		}
		vectors, err := uc.embedder.Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed chunks: %w", err)
		}
		if len(vectors) != len(batch) {
			return domain.WrapError(
				domain.ErrInvalidInput,
				"embed chunks",
				fmt.Errorf("vectors/chunks mismatch: %d/%d", len(vectors), len(batch)),
			)
		}

		if err := uc.vectorDB.UpsertChunks(ctx, batch, vectors); err != nil {
			return fmt.Errorf("upsert chunks: %w", err)
		}
	}
	return nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
