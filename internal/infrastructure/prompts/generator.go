package prompts

import (
	"bytes"
	"sort"
	"strings"
	"text/template"

	"ada-engine/internal/domain/entity"
)

type ToolInfo struct {
	Name        string
	Description string
}

type AgentPromptData struct {
	AgentName string
	Tools     []ToolInfo
}

// GenerateAgentPrompt renders a directive written as a text/template with the
// agent name and its tools sorted by name. Text without actions comes back
// unchanged.
func GenerateAgentPrompt(baseTemplate, agentName string, tools []entity.ToolDescription) (string, error) {
	if !strings.Contains(baseTemplate, "{{") {
		return baseTemplate, nil
	}

	infos := make([]ToolInfo, 0, len(tools))
	for _, t := range tools {
		infos = append(infos, ToolInfo{
			Name:        t.Name,
			Description: t.Description,
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Name < infos[j].Name
	})

	data := AgentPromptData{
		AgentName: agentName,
		Tools:     infos,
	}

	tmpl, err := template.New(agentName).Parse(baseTemplate)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}
