package tool

import (
	"context"
	"fmt"
	"strings"

	"ada-engine/internal/application/port/output"
	"ada-engine/internal/domain/entity"
)

var _ output.ToolPort = (*WebSearchTool)(nil)

func DefaultWebSearchDescription() entity.ToolDescription {
	return entity.ToolDescription{
		Name:        entity.ToolWebSearch.String(),
		Description: "Answer a question using web search.",
		Properties: map[string]entity.ToolProperty{
			"query": {Type: "string", Description: "The standalone question to be answered using web search."},
		},
		Required: []string{"query"},
	}
}

type WebSearchTool struct {
	searcher output.WebSearcher
	desc     entity.ToolDescription
	deps     Deps
}

// NewWebSearchTool uses the default description when desc is nil.
func NewWebSearchTool(searcher output.WebSearcher, desc *entity.ToolDescription, deps Deps) *WebSearchTool {
	d := DefaultWebSearchDescription()
	if desc != nil {
		d = *desc
	}
	return &WebSearchTool{searcher: searcher, desc: d, deps: deps.withDefaults()}
}

func (t *WebSearchTool) Description() entity.ToolDescription { return t.desc }

func (t *WebSearchTool) Run(ctx context.Context, in *entity.AgentPayload, args map[string]any) (*entity.AgentPayload, error) {
	ctx, span := t.deps.begin(ctx, "WebSearchTool", t.desc)
	defer span.End()

	query, _ := args["query"].(string)
	if strings.TrimSpace(query) == "" {
		query = in.LastMessage().Content
	}
	span.SetAttributes(map[string]any{"input.value": query})

	answer, err := t.searcher.WebSearch(ctx, query)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("web search: %w", err)
	}

	span.SetAttributes(map[string]any{"output.value": answer})
	return assistantPayload(answer), nil
}
