package bootstrap

import (
	"context"
	"time"

	"github.com/kirillkom/manual-rag/internal/core/domain"
	"github.com/kirillkom/manual-rag/internal/core/ports"
	"github.com/kirillkom/manual-rag/internal/observability/metrics"
)

type instrumentedPopulator struct {
	next    ports.DatabasePopulator
	metrics *metrics.PipelineMetrics
	service string
}

func (p *instrumentedPopulator) Populate(ctx context.Context, srcs []string, reset bool) (*domain.PopulateReport, error) {
	start := time.Now()
	report, err := p.next.Populate(ctx, srcs, reset)
	p.metrics.ObserveRun(p.service, time.Since(start), err)
	if report != nil {
		p.metrics.AddChunks(p.service, report.ChunksAdded, report.ChunksUpdated, report.ChunksUnchanged)
	}
	return report, err
}

type instrumentedAnswerer struct {
	next    ports.QuestionAnswerer
	metrics *metrics.PipelineMetrics
	service string
}

func (a *instrumentedAnswerer) Answer(ctx context.Context, question string) (*domain.Answer, error) {
	start := time.Now()
	answer, err := a.next.Answer(ctx, question)
	contextChunks := 0
	if answer != nil {
		contextChunks = len(answer.Chunks)
	}
	a.metrics.ObserveAnswer(a.service, time.Since(start), contextChunks, err)
	return answer, err
}
