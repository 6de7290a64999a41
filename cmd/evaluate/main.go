package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/manual-rag/internal/bootstrap"
	"github.com/kirillkom/manual-rag/internal/config"
	"github.com/kirillkom/manual-rag/internal/core/domain"
	"github.com/kirillkom/manual-rag/internal/observability/logging"
)

func main() {
	casesPath := flag.String("cases", "configs/eval.yaml", "YAML file with question/expected pairs")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	slog.SetDefault(logging.NewJSONLogger("evaluate", cfg.LogLevel))

	cases, err := loadCases(*casesPath)
	if err != nil {
		log.Fatalf("load cases error: %v", err)
	}
	if len(cases) == 0 {
		log.Fatalf("no eval cases in %s", *casesPath)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, "evaluate")
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	report, err := app.EvalUC.Evaluate(ctx, cases)
	if err != nil {
		log.Fatalf("evaluate error: %v", err)
	}

	for _, result := range report.Results {
		status := "PASS"
		if !result.Passed {
			status = "FAIL"
		}
		fmt.Printf("[%s] %s\n  expected: %s\n  actual:   %s\n", status, result.Case.Question, result.Case.Expected, result.Answer)
	}
	fmt.Printf("passed %d/%d\n", report.Passed, report.Passed+report.Failed)

	if report.Failed > 0 {
		os.Exit(1)
	}
}

func loadCases(path string) ([]domain.EvalCase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc struct {
		Cases []domain.EvalCase `yaml:"cases"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc.Cases, nil
}
