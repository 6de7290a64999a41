package ollama

import (
	"fmt"
	"strings"

	"github.com/kirillkom/manual-rag/internal/core/domain"
)

const contextSeparator = "\n\n---\n\n"

func buildAnswerPrompt(question string, chunks []domain.RetrievedChunk) string {
	parts := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		text := strings.TrimSpace(chunk.Text)
		if text == "" {
			continue
		}
		parts = append(parts, text)
	}

	var b strings.Builder
	b.WriteString("Answer the question based only on the following context:\n\n")
	b.WriteString(strings.Join(parts, contextSeparator))
	b.WriteString("\n\n---\n\n")
	b.WriteString("Answer the question based on the above context: ")
	b.WriteString(strings.TrimSpace(question))
	return b.String()
}

func buildExpansionPrompt(question string, n int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are an AI language model assistant. Your task is to generate %d\n", n)
	b.WriteString("different versions of the given user question to retrieve relevant documents\n")
	b.WriteString("from a vector database. By generating multiple perspectives on the user\n")
	b.WriteString("question, your goal is to help the user overcome some of the limitations of\n")
	b.WriteString("distance-based similarity search. Provide these alternative questions\n")
	b.WriteString("separated by newlines. Do not number them and do not add any other text.\n\n")
	b.WriteString("Original question: ")
	b.WriteString(strings.TrimSpace(question))
	return b.String()
}

func buildEvalPrompt(expected, actual string) string {
	var b strings.Builder
	b.WriteString("Expected Response: ")
	b.WriteString(strings.TrimSpace(expected))
	b.WriteString("\nActual Response: ")
	b.WriteString(strings.TrimSpace(actual))
	b.WriteString("\n\n(Answer with 'true' or 'false') Does the actual response match the expected response?")
	return b.String()
}
