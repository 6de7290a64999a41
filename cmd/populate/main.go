package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/kirillkom/manual-rag/internal/bootstrap"
	"github.com/kirillkom/manual-rag/internal/config"
	"github.com/kirillkom/manual-rag/internal/observability/logging"
)

type sourceList []string

func (s *sourceList) String() string { return strings.Join(*s, ",") }

func (s *sourceList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func main() {
	reset := flag.Bool("reset", false, "clear the vector store and ingestion ledger before indexing")
	var srcs sourceList
	flag.Var(&srcs, "source", "index only this file (repeatable); default is the whole documents dir")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	slog.SetDefault(logging.NewJSONLogger("populate", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, "populate")
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	report, err := app.PopulateUC.Populate(ctx, srcs, *reset)
	if err != nil {
		log.Fatalf("populate error: %v", err)
	}
	slog.Info("populate_done",
		"sources_indexed", report.SourcesIndexed,
		"sources_skipped", report.SourcesSkipped,
		"chunks_added", report.ChunksAdded,
		"chunks_updated", report.ChunksUpdated,
		"chunks_unchanged", report.ChunksUnchanged,
	)
}
