package ports

import (
	"context"

	"github.com/kirillkom/manual-rag/internal/core/domain"
)

// DatabasePopulator is the inbound contract for the population pipeline.
// With an empty sources slice the configured documents directory is scanned.
type DatabasePopulator interface {
	Populate(ctx context.Context, sources []string, reset bool) (*domain.PopulateReport, error)
}

// QuestionAnswerer is the inbound contract for the RAG query pipeline.
type QuestionAnswerer interface {
	Answer(ctx context.Context, question string) (*domain.Answer, error)
}

// AnswerEvaluator runs eval cases through the query pipeline and lets the
// model judge the produced answers.
type AnswerEvaluator interface {
	Evaluate(ctx context.Context, cases []domain.EvalCase) (*domain.EvalReport, error)
}
