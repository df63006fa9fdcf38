package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/acekavi/docqa/internal/core/domain"
	"github.com/acekavi/docqa/internal/core/ports"
)

// ExtractionLoop drives schema-validated structured extraction. Invalid
// model output is corrected with a follow-up prompt carrying the violation
// messages; the retry budget bounds how often. Exhausting the budget is a
// reported outcome, never an error.
type ExtractionLoop struct {
	log        *slog.Logger
	generator  ports.AnswerGenerator
	schema     ports.ExtractionSchema
	maxRetries int
}

func NewExtractionLoop(log *slog.Logger, generator ports.AnswerGenerator, schema ports.ExtractionSchema, maxRetries int) *ExtractionLoop {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &ExtractionLoop{
		log:        log,
		generator:  generator,
		schema:     schema,
		maxRetries: maxRetries,
	}
}

func (l *ExtractionLoop) Extract(ctx context.Context, text string) (domain.ExtractionResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.ExtractionResult{}, domain.WrapError(domain.ErrInvalidInput, "extract", fmt.Errorf("empty input text"))
	}

	prompt := l.buildPrompt(text)
	var lastData map[string]any

	for attempt := 0; ; attempt++ {
		raw, err := l.generator.GenerateJSON(ctx, prompt)
		if err != nil {
			return domain.ExtractionResult{}, err
		}

		data, violations := l.validateOutput(raw)
		if len(violations) == 0 {
			l.log.Info("extraction validated", "schema", l.schema.Name(), "retries", attempt)
			return domain.ExtractionResult{
				Data:             data,
				ValidationPassed: true,
				Retries:          attempt,
			}, nil
		}
		lastData = data

		if attempt >= l.maxRetries {
			l.log.Warn("extraction retry budget exhausted",
				"schema", l.schema.Name(),
				"retries", attempt,
				"violations", len(violations),
			)
			return domain.ExtractionResult{
				Data:             lastData,
				ValidationPassed: false,
				Retries:          attempt,
			}, nil
		}

		l.log.Info("extraction output rejected, retrying",
			"schema", l.schema.Name(),
			"attempt", attempt,
			"violations", len(violations),
		)
		prompt = l.buildCorrectionPrompt(text, raw, violations)
	}
}

// validateOutput parses the model output and checks it against the schema.
// Parse failures are reported as violations so the correction prompt can
// describe them to the model.
func (l *ExtractionLoop) validateOutput(raw string) (map[string]any, []string) {
	trimmed := extractJSONObject(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(trimmed), &data); err != nil {
		return nil, []string{fmt.Sprintf("output is not a JSON object: %v", err)}
	}
	return data, l.schema.Validate(data)
}

func (l *ExtractionLoop) buildPrompt(text string) string {
	var b strings.Builder
	b.WriteString("Extract structured data from the text below.\n")
	b.WriteString("Respond with a single JSON object conforming to this JSON Schema, with no surrounding prose:\n\n")
	b.WriteString(l.schema.PromptDescription())
	b.WriteString("\n\nText:\n")
	b.WriteString(text)
	return b.String()
}

func (l *ExtractionLoop) buildCorrectionPrompt(text, previous string, violations []string) string {
	var b strings.Builder
	b.WriteString("Your previous response did not conform to the required JSON Schema.\n\nPrevious response:\n")
	b.WriteString(previous)
	b.WriteString("\n\nViolations:\n")
	for _, violation := range violations {
		b.WriteString("- ")
		b.WriteString(violation)
		b.WriteString("\n")
	}
	b.WriteString("\nRespond again with a single JSON object that fixes every violation. Schema:\n\n")
	b.WriteString(l.schema.PromptDescription())
	b.WriteString("\n\nText:\n")
	b.WriteString(text)
	return b.String()
}

// extractJSONObject trims any prose the model emits around a JSON object.
func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
