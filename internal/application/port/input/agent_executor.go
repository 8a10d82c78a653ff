package input

import (
	"context"

	"ada-engine/internal/domain/entity"
)

// AgentExecutor runs a conversation to completion, mutating it in place.
type AgentExecutor interface {
	Execute(ctx context.Context, payload *entity.AgentPayload) (*entity.AgentPayload, error)
}

type PipelineResolver interface {
	For(projectID string) (AgentExecutor, error)
}
