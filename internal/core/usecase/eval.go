package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/manual-rag/internal/core/domain"
	"github.com/kirillkom/manual-rag/internal/core/ports"
)

// EvalUseCase runs example questions through the query pipeline and lets
// the model itself judge whether each produced answer matches the expected
// one.
type EvalUseCase struct {
	answerer ports.QuestionAnswerer
	judge    ports.AnswerJudge
}

func NewEvalUseCase(answerer ports.QuestionAnswerer, judge ports.AnswerJudge) *EvalUseCase {
	return &EvalUseCase{
		answerer: answerer,
		judge:    judge,
	}
}

func (uc *EvalUseCase) Evaluate(ctx context.Context, cases []domain.EvalCase) (*domain.EvalReport, error) {
	report := &domain.EvalReport{
		Results: make([]domain.EvalResult, 0, len(cases)),
	}

	for _, evalCase := range cases {
		answer, err := uc.answerer.Answer(ctx, evalCase.Question)
		if err != nil {
			return nil, fmt.Errorf("answer %q: %w", evalCase.Question, err)
		}

		passed, err := uc.judge.Judge(ctx, evalCase.Expected, answer.Text)
		if err != nil {
			return nil, fmt.Errorf("judge %q: %w", evalCase.Question, err)
		}

		slog.Info("eval_case", "question", evalCase.Question, "passed", passed)
		report.Results = append(report.Results, domain.EvalResult{
			Case:   evalCase,
			Answer: answer.Text,
			Passed: passed,
		})
		if passed {
			report.Passed++
		} else {
			report.Failed++
		}
	}
	return report, nil
}
