package tool

import (
	"context"

	"ada-engine/internal/application/port/output"
	"ada-engine/internal/application/service"
	"ada-engine/internal/domain/entity"
)

// Deps are the cross-cutting collaborators every tool reports to.
type Deps struct {
	Logger  output.LoggerPort
	Tracer  output.TracerPort
	Metrics output.MetricsPort
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = service.NopLogger{}
	}
	if d.Tracer == nil {
		d.Tracer = service.NoopTracer{}
	}
	if d.Metrics == nil {
		d.Metrics = service.NoopMetrics{}
	}
	return d
}

// begin counts the call and opens the tool span.
func (d Deps) begin(ctx context.Context, class string, desc entity.ToolDescription) (context.Context, output.Span) {
	d.Metrics.AgentCalled(ctx, class, service.ProjectIDFrom(ctx))
	return d.Tracer.Start(ctx, desc.Name, map[string]any{
		"span.kind":  "TOOL",
		"tool.class": class,
	})
}

func assistantPayload(content string) *entity.AgentPayload {
	return entity.NewAgentPayload(entity.Message{Role: entity.RoleAssistant, Content: content})
}
