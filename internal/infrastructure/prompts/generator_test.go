package prompts

import (
	"strings"
	"testing"

	"ada-engine/internal/domain/entity"
)

func TestGenerateAgentPrompt(t *testing.T) {
	tmpl := `You are {{.AgentName}}.
Tools:
{{range .Tools}}- {{.Name}}: {{.Description}}
{{end}}`

	tools := []entity.ToolDescription{
		{Name: "weather", Description: "Current weather"},
		{Name: "api_call", Description: "Call an API"},
	}

	result, err := GenerateAgentPrompt(tmpl, "planner", tools)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(result, "You are planner.") {
		t.Errorf("agent name missing from prompt: %q", result)
	}

	apiIdx := strings.Index(result, "- api_call: Call an API")
	weatherIdx := strings.Index(result, "- weather: Current weather")
	if apiIdx < 0 || weatherIdx < 0 {
		t.Fatalf("tool lines missing from prompt: %q", result)
	}
	if apiIdx > weatherIdx {
		t.Error("tools should be sorted by name")
	}
}

func TestGenerateAgentPrompt_PlainTextUnchanged(t *testing.T) {
	result, err := GenerateAgentPrompt(ReActInitialPrompt, "agent", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != ReActInitialPrompt {
		t.Error("plain prompt should be returned unchanged")
	}
}

func TestGenerateAgentPrompt_InvalidTemplate(t *testing.T) {
	if _, err := GenerateAgentPrompt("{{.Broken", "agent", nil); err == nil {
		t.Error("expected parse error")
	}
}

func TestEmbeddedPrompts(t *testing.T) {
	if strings.TrimSpace(ReActInitialPrompt) == "" {
		t.Error("react prompt is empty")
	}
	for _, placeholder := range []string{"{context_str}", "{query_str}"} {
		if !strings.Contains(SynthesizerPrompt, placeholder) {
			t.Errorf("synthesizer prompt lacks %s", placeholder)
		}
	}
}
