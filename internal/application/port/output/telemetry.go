package output

import "context"

type TracerPort interface {
	Start(ctx context.Context, name string, attrs map[string]any) (context.Context, Span)
}

type Span interface {
	SetAttributes(attrs map[string]any)
	RecordError(err error)
	End()
}

type MetricsPort interface {
	AgentCalled(ctx context.Context, className, projectID string)
}
