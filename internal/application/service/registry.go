package service

import (
	"fmt"

	"ada-engine/internal/application/port/output"
	"ada-engine/internal/domain/entity"
)

var _ output.ToolRegistry = (*ToolRegistryImpl)(nil)

// ToolRegistryImpl keeps registration order so the model always sees the
// tools in the order they were configured.
type ToolRegistryImpl struct {
	tools map[string]output.ToolPort
	order []string
}

func NewToolRegistry() *ToolRegistryImpl {
	return &ToolRegistryImpl{
		tools: make(map[string]output.ToolPort),
	}
}

func (r *ToolRegistryImpl) Register(tool output.ToolPort) error {
	name := tool.Description().Name
	if name == "" {
		return fmt.Errorf("tool has no name")
	}
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %q registered twice", name)
	}
	r.tools[name] = tool
	r.order = append(r.order, name)
	return nil
}

func (r *ToolRegistryImpl) Get(name string) (output.ToolPort, bool) {
	tool, ok := r.tools[name]
	return tool, ok
}

func (r *ToolRegistryImpl) All() []output.ToolPort {
	result := make([]output.ToolPort, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.tools[name])
	}
	return result
}

func (r *ToolRegistryImpl) Definitions() []entity.ToolDescription {
	result := make([]entity.ToolDescription, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.tools[name].Description())
	}
	return result
}

func (r *ToolRegistryImpl) Len() int {
	return len(r.order)
}
