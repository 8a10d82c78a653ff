package tool

import (
	"context"
	"fmt"
	"strings"

	"ada-engine/internal/application/port/output"
	"ada-engine/internal/domain/entity"
)

var _ output.ToolPort = (*SynthesizerTool)(nil)

// Responder is satisfied by synthesizer.Synthesizer.
type Responder interface {
	Respond(ctx context.Context, chunks []entity.SourceChunk, query string) (*entity.SourcedResponse, error)
}

func DefaultSynthesizerDescription() entity.ToolDescription {
	return entity.ToolDescription{
		Name:        entity.ToolSynthesizer.String(),
		Description: "Write the final answer to a question from the results of the tools called so far.",
		Properties: map[string]entity.ToolProperty{
			"query": {Type: "string", Description: "The question to answer."},
		},
		Required: []string{"query"},
	}
}

type SynthesizerTool struct {
	responder Responder
	desc      entity.ToolDescription
	deps      Deps
}

func NewSynthesizerTool(responder Responder, desc *entity.ToolDescription, deps Deps) *SynthesizerTool {
	d := DefaultSynthesizerDescription()
	if desc != nil {
		d = *desc
	}
	return &SynthesizerTool{responder: responder, desc: d, deps: deps.withDefaults()}
}

func (t *SynthesizerTool) Description() entity.ToolDescription { return t.desc }

func (t *SynthesizerTool) Run(ctx context.Context, in *entity.AgentPayload, args map[string]any) (*entity.AgentPayload, error) {
	ctx, span := t.deps.begin(ctx, "SynthesizerTool", t.desc)
	defer span.End()

	query, _ := args["query"].(string)
	if strings.TrimSpace(query) == "" {
		query = firstUserContent(in)
	}

	chunks := chunksFromToolMessages(in)
	resp, err := t.responder.Respond(ctx, chunks, query)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("synthesize: %w", err)
	}

	out := assistantPayload(resp.Response)
	out.IsFinal = resp.IsSuccessful
	out.Artifacts = map[string]any{"sources": resp.Sources}
	return out, nil
}

func chunksFromToolMessages(in *entity.AgentPayload) []entity.SourceChunk {
	if in == nil {
		return nil
	}
	var chunks []entity.SourceChunk
	for _, m := range in.Messages {
		if m.Role != entity.RoleTool {
			continue
		}
		name := m.Name
		if name == "" {
			name = m.ToolCallID
		}
		chunks = append(chunks, entity.SourceChunk{
			Name:     name,
			Content:  m.Content,
			Metadata: map[string]string{"tool_call_id": m.ToolCallID},
		})
	}
	return chunks
}

func firstUserContent(in *entity.AgentPayload) string {
	if in == nil {
		return ""
	}
	for _, m := range in.Messages {
		if m.Role == entity.RoleUser {
			return m.Content
		}
	}
	return ""
}
