package entity

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrToolNotFound         = errors.New("tool not found")
	ErrInvalidToolArguments = errors.New("invalid tool arguments")
)

type ToolName string

const (
	ToolWebSearch   ToolName = "Web_Search_Tool"
	ToolAPICall     ToolName = "api_call"
	ToolSynthesizer ToolName = "synthesizer"
)

func (t ToolName) String() string {
	return string(t)
}

type ToolProperty struct {
	Type        string `json:"type" yaml:"type"`
	Description string `json:"description" yaml:"description"`
}

// ToolDescription advertises a tool to the model and validates the arguments
// the model sends back for it.
type ToolDescription struct {
	Name        string
	Description string
	Properties  map[string]ToolProperty
	Required    []string
}

// JSONSchema renders the parameters as an OpenAI function parameters object.
func (d ToolDescription) JSONSchema() map[string]any {
	properties := make(map[string]any, len(d.Properties))
	for name, p := range d.Properties {
		properties[name] = map[string]any{
			"type":        p.Type,
			"description": p.Description,
		}
	}

	required := d.Required
	if required == nil {
		required = []string{}
	}

	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}

// ParseArguments decodes the JSON object the model produced for this tool and
// checks that every required parameter is present.
func (d ToolDescription) ParseArguments(raw string) (map[string]any, error) {
	args := map[string]any{}
	if strings.TrimSpace(raw) != "" {
		var decoded any
		if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidToolArguments, d.Name, err)
		}
		obj, ok := decoded.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s: arguments must be a JSON object", ErrInvalidToolArguments, d.Name)
		}
		args = obj
	}

	for _, name := range d.Required {
		if _, ok := args[name]; !ok {
			return nil, fmt.Errorf("%w: %s: missing required parameter %q", ErrInvalidToolArguments, d.Name, name)
		}
	}

	return args, nil
}
