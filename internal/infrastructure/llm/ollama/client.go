package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/manual-rag/internal/core/domain"
	"github.com/kirillkom/manual-rag/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	genModel   string
	embedModel string
	httpClient *http.Client
	executor   *resilience.Executor
}

// New builds a client for the Ollama HTTP API. A nil executor disables
// retry/breaker wrapping, which the fake-server tests rely on.
func New(baseURL, genModel, embedModel string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		genModel:   genModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		executor:   executor,
	}
}

type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	request := map[string]any{
		"model": e.client.embedModel,
		"input": texts,
	}

	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := e.client.postJSON(ctx, "/api/embed", request, &response, "embed"); err != nil {
		return nil, err
	}
	return response.Embeddings, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return vectors[0], nil
}

type Generator struct {
	client *Client
}

func NewGenerator(client *Client) *Generator {
	return &Generator{client: client}
}

func (g *Generator) GenerateAnswer(ctx context.Context, question string, chunks []domain.RetrievedChunk) (string, error) {
	return g.client.generateText(ctx, buildAnswerPrompt(question, chunks))
}

type Expander struct {
	client *Client
}

func NewExpander(client *Client) *Expander {
	return &Expander{client: client}
}

// Expand asks the generation model for n alternative phrasings of the
// question, one per line.
func (e *Expander) Expand(ctx context.Context, question string, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	raw, err := e.client.generateText(ctx, buildExpansionPrompt(question, n))
	if err != nil {
		return nil, err
	}
	return parseVariantLines(raw, question, n), nil
}

type Judge struct {
	client *Client
}

func NewJudge(client *Client) *Judge {
	return &Judge{client: client}
}

// Judge asks the model for a strict true/false verdict. Anything that is
// neither is an error, so a rambling verdict never silently passes.
func (j *Judge) Judge(ctx context.Context, expected, actual string) (bool, error) {
	verdict, err := j.client.generateText(ctx, buildEvalPrompt(expected, actual))
	if err != nil {
		return false, err
	}

	normalized := strings.ToLower(strings.TrimSpace(verdict))
	switch {
	case strings.Contains(normalized, "true"):
		return true, nil
	case strings.Contains(normalized, "false"):
		return false, nil
	default:
		return false, fmt.Errorf("unparseable eval verdict: %q", verdict)
	}
}

func (c *Client) generateText(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]any{
		"model":  c.genModel,
		"prompt": prompt,
		"stream": false,
	}

	var response struct {
		Response string `json:"response"`
	}
	if err := c.postJSON(ctx, "/api/generate", reqBody, &response, "generate"); err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Response), nil
}

// parseVariantLines extracts up to n usable variants: list markers are
// stripped, preamble lines ending in ':' and echoes of the original
// question are dropped.
func parseVariantLines(raw, question string, n int) []string {
	lines := strings.Split(raw, "\n")
	out := make([]string, 0, n)
	original := strings.ToLower(strings.TrimSpace(question))

	for _, line := range lines {
		variant := strings.TrimSpace(line)
		variant = strings.TrimLeft(variant, "0123456789.)-* \t")
		variant = strings.TrimSpace(variant)
		if variant == "" || strings.HasSuffix(variant, ":") {
			continue
		}
		if strings.ToLower(variant) == original {
			continue
		}
		out = append(out, variant)
		if len(out) == n {
			break
		}
	}
	return out
}
