package synthesizer

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/tmc/langchaingo/prompts"

	"ada-engine/internal/application/port/output"
	"ada-engine/internal/application/service"
	"ada-engine/internal/domain/entity"
	promptfiles "ada-engine/internal/infrastructure/prompts"
)

const schemaName = "synthesizer_response"

var responseSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "response": {"type": "string"},
    "is_successful": {"type": "boolean"}
  },
  "required": ["response", "is_successful"],
  "additionalProperties": false
}`)

type response struct {
	Response     string `json:"response"`
	IsSuccessful bool   `json:"is_successful"`
}

// Synthesizer answers a query from a set of source chunks with a single
// constrained completion.
type Synthesizer struct {
	llm      output.StructuredCompleter
	logger   output.LoggerPort
	tracer   output.TracerPort
	template prompts.PromptTemplate
}

// New uses the embedded prompt when template is empty. A custom template must
// reference {context_str} and {query_str}.
func New(llm output.StructuredCompleter, template string, logger output.LoggerPort, tracer output.TracerPort) *Synthesizer {
	if template == "" {
		template = promptfiles.SynthesizerPrompt
	}
	if logger == nil {
		logger = service.NopLogger{}
	}
	if tracer == nil {
		tracer = service.NoopTracer{}
	}
	return &Synthesizer{
		llm:    llm,
		logger: logger,
		tracer: tracer,
		template: prompts.PromptTemplate{
			Template:       template,
			InputVariables: []string{"context_str", "query_str"},
			TemplateFormat: prompts.TemplateFormatFString,
		},
	}
}

func (s *Synthesizer) Respond(ctx context.Context, chunks []entity.SourceChunk, query string) (*entity.SourcedResponse, error) {
	contextStr := BuildContext(chunks)

	input, err := s.template.Format(map[string]any{
		"context_str": contextStr,
		"query_str":   query,
	})
	if err != nil {
		return nil, fmt.Errorf("format synthesizer prompt: %w", err)
	}

	ctx, span := s.tracer.Start(ctx, "Synthesizer", map[string]any{
		"span.kind":   "LLM",
		"input.value": input,
		"sources":     len(chunks),
	})
	defer span.End()

	raw, err := s.llm.ConstrainedComplete(ctx, output.ConstrainedRequest{
		Messages:   []entity.Message{{Role: entity.RoleSystem, Content: input}},
		SchemaName: schemaName,
		Schema:     responseSchema,
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("synthesizer llm request failed: %w", err)
	}

	parsed, err := parseResponse(raw)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(map[string]any{
		"output.value":  parsed.Response,
		"is_successful": parsed.IsSuccessful,
	})
	s.logger.Debug("Synthesized response", "sources", len(chunks), "is_successful", parsed.IsSuccessful)

	return &entity.SourcedResponse{
		Response:     parsed.Response,
		Sources:      chunks,
		IsSuccessful: parsed.IsSuccessful,
	}, nil
}

// BuildContext numbers the chunks from 1 and lists the metadata keys of the
// first chunk, sorted, ahead of each chunk's content.
func BuildContext(chunks []entity.SourceChunk) string {
	if len(chunks) == 0 {
		return ""
	}

	keys := make([]string, 0, len(chunks[0].Metadata))
	for k := range chunks[0].Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		var b strings.Builder
		fmt.Fprintf(&b, "[%d] %s\n", i+1, chunk.Name)
		for _, k := range keys {
			if v, ok := chunk.Metadata[k]; ok {
				fmt.Fprintf(&b, "%s: %s\n", k, v)
			}
		}
		b.WriteString(chunk.Content)
		parts = append(parts, b.String())
	}
	return strings.Join(parts, "\n\n")
}

func parseResponse(raw string) (*response, error) {
	raw = strings.TrimSpace(raw)

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return nil, fmt.Errorf("no JSON found in synthesizer response")
	}

	var result response
	if err := json.Unmarshal([]byte(raw[start:end+1]), &result); err != nil {
		return nil, fmt.Errorf("failed to parse synthesizer response: %w", err)
	}
	return &result, nil
}
