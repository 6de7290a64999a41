package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/kirillkom/manual-rag/internal/bootstrap"
	"github.com/kirillkom/manual-rag/internal/config"
	"github.com/kirillkom/manual-rag/internal/core/domain"
	"github.com/kirillkom/manual-rag/internal/observability/logging"
)

func main() {
	queryText := flag.String("query_text", "", "answer a single question and exit; empty starts the interactive prompt")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	slog.SetDefault(logging.NewJSONLogger("query", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, "query")
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	if cfg.MetricsPort != "" {
		go serveMetrics(app, cfg.MetricsPort)
	}

	if strings.TrimSpace(*queryText) != "" {
		answer, err := app.QueryUC.Answer(ctx, *queryText)
		if err != nil {
			log.Fatalf("query error: %v", err)
		}
		printAnswer(answer)
		return
	}

	runInteractive(ctx, app)
}

func serveMetrics(app *bootstrap.App, port string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", app.Metrics.Handler())
	if err := http.ListenAndServe(":"+port, mux); err != nil && err != http.ErrServerClosed {
		slog.Error("metrics_server_stopped", "error", err)
	}
}

func runInteractive(ctx context.Context, app *bootstrap.App) {
	fmt.Println("Ask a question about the indexed documents. Type 'exit' or 'q' to quit.")
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		if ctx.Err() != nil {
			return
		}

		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		switch strings.ToLower(question) {
		case "exit", "q":
			return
		}

		answer, err := app.QueryUC.Answer(ctx, question)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}
		printAnswer(answer)
	}
}

func printAnswer(answer *domain.Answer) {
	fmt.Println(answer.Text)
	if len(answer.Sources) > 0 {
		fmt.Printf("Sources: %s\n", strings.Join(answer.Sources, "; "))
	}
}
