package pipeline

import (
	"time"

	"ada-engine/internal/domain/entity"
)

const DefaultKey = "default"

type ToolType string

const (
	ToolTypeWebSearch   ToolType = "web_search"
	ToolTypeAPICall     ToolType = "api_call"
	ToolTypeSynthesizer ToolType = "synthesizer"
	ToolTypeAgent       ToolType = "agent"
)

// File is the root of a pipelines YAML document. Keys are project ids or
// "default".
type File struct {
	Pipelines map[string]AgentSpec `yaml:"pipelines"`
}

type AgentSpec struct {
	Name          string                         `yaml:"name"`
	Description   string                         `yaml:"description"`
	MaxIterations int                            `yaml:"max_iterations"`
	InitialPrompt string                         `yaml:"initial_prompt"`
	Parameters    map[string]entity.ToolProperty `yaml:"parameters"`
	Required      []string                       `yaml:"required"`
	Tools         []ToolSpec                     `yaml:"tools"`
}

type ToolSpec struct {
	Type ToolType `yaml:"type"`

	// Optional overrides of the tool's default description.
	Name        string                         `yaml:"name"`
	Description string                         `yaml:"description"`
	Parameters  map[string]entity.ToolProperty `yaml:"parameters"`
	Required    []string                       `yaml:"required"`

	// api_call
	Endpoint         string            `yaml:"endpoint"`
	Method           string            `yaml:"method"`
	Headers          map[string]string `yaml:"headers"`
	Timeout          time.Duration     `yaml:"timeout"`
	MaxResponseBytes int64             `yaml:"max_response_bytes"`
	FixedParameters  map[string]any    `yaml:"fixed_parameters"`

	// synthesizer
	Prompt string `yaml:"prompt"`

	// agent
	Agent *AgentSpec `yaml:"agent"`
}

func (s ToolSpec) hasOverrides() bool {
	return s.Name != "" || s.Description != "" || s.Parameters != nil || s.Required != nil
}

// describe applies the spec's overrides on top of base.
func (s ToolSpec) describe(base entity.ToolDescription) *entity.ToolDescription {
	if !s.hasOverrides() {
		return nil
	}
	if s.Name != "" {
		base.Name = s.Name
	}
	if s.Description != "" {
		base.Description = s.Description
	}
	if s.Parameters != nil {
		base.Properties = s.Parameters
		base.Required = nil
	}
	if s.Required != nil {
		base.Required = s.Required
	}
	return &base
}

func (a AgentSpec) description() entity.ToolDescription {
	return entity.ToolDescription{
		Name:        a.Name,
		Description: a.Description,
		Properties:  a.Parameters,
		Required:    a.Required,
	}
}

// DefaultSpec answers questions with web search and synthesizes the results.
func DefaultSpec() AgentSpec {
	return AgentSpec{
		Name:        "assistant",
		Description: "Answers questions using web search.",
		Tools: []ToolSpec{
			{Type: ToolTypeWebSearch},
			{Type: ToolTypeSynthesizer},
		},
	}
}
