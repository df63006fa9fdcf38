package ollama

import (
	"fmt"
	"strings"

	"github.com/acekavi/docqa/internal/core/domain"
)

func buildAnswerPrompt(question string, candidates []domain.RetrievalCandidate) string {
	return fmt.Sprintf(`You are a helpful assistant that answers questions based on the provided context.

INSTRUCTIONS:
1. Answer the question using ONLY the information in the context below
2. If the context doesn't contain enough information to answer, say "I don't know based on the available documents"
3. Be concise and direct in your answers
4. Do not make up information that isn't in the context

CONTEXT:
%s

QUESTION: %s

ANSWER:`, formatContext(candidates), question)
}

func formatContext(candidates []domain.RetrievalCandidate) string {
	if len(candidates) == 0 {
		return "No relevant documents found."
	}

	parts := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		label := fmt.Sprintf("[Source: %s", candidate.Chunk.DocName)
		if candidate.Chunk.Page > 0 {
			label += fmt.Sprintf(", Page: %d", candidate.Chunk.Page)
		}
		label += "]"
		parts = append(parts, label+"\n"+candidate.Chunk.Text)
	}
	return strings.Join(parts, "\n\n---\n\n")
}
