package output

import (
	"context"

	"ada-engine/internal/domain/entity"
)

// ToolPort is anything a ReAct loop can dispatch a tool call to, nested
// agents included. input is a snapshot of the calling conversation.
type ToolPort interface {
	Description() entity.ToolDescription
	Run(ctx context.Context, input *entity.AgentPayload, args map[string]any) (*entity.AgentPayload, error)
}

type ToolRegistry interface {
	Register(tool ToolPort) error
	Get(name string) (ToolPort, bool)
	All() []ToolPort
	Definitions() []entity.ToolDescription
	Len() int
}
