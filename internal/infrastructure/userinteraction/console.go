package userinteraction

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"ada-engine/internal/domain/entity"
)

var ErrEmptyTask = errors.New("no task provided")

// Console reads a task from a terminal and prints the agent's transcript.
type Console struct {
	in  *bufio.Reader
	out io.Writer

	maxToolOutput int
}

func NewConsole(in io.Reader, out io.Writer) *Console {
	return &Console{
		in:            bufio.NewReader(in),
		out:           out,
		maxToolOutput: 500,
	}
}

// ReadTask returns everything up to EOF, so multi-line tasks can be piped in.
func (c *Console) ReadTask(prompt string) (string, error) {
	if prompt != "" {
		color.New(color.FgCyan, color.Bold).Fprintf(c.out, "%s\n> ", prompt)
	}

	data, err := io.ReadAll(c.in)
	if err != nil {
		return "", fmt.Errorf("failed to read task: %w", err)
	}

	task := strings.TrimSpace(string(data))
	if task == "" {
		return "", ErrEmptyTask
	}
	return task, nil
}

// PrintTranscript skips the system directive and prints each turn with its role.
func (c *Console) PrintTranscript(payload *entity.AgentPayload) {
	if payload == nil {
		return
	}

	for _, msg := range payload.Messages {
		switch msg.Role {
		case entity.RoleSystem:
			continue
		case entity.RoleUser:
			color.New(color.FgBlue, color.Bold).Fprint(c.out, "\nuser: ")
			fmt.Fprintln(c.out, msg.Content)
		case entity.RoleAssistant:
			if len(msg.ToolCalls) > 0 {
				for _, tc := range msg.ToolCalls {
					c.printToolCall(tc)
				}
				continue
			}
			color.New(color.FgGreen, color.Bold).Fprint(c.out, "\nassistant: ")
			fmt.Fprintln(c.out, msg.Content)
		case entity.RoleTool:
			color.New(color.Faint).Fprintf(c.out, "   %s → %s\n", toolLabel(msg.Name), truncate(msg.Content, c.maxToolOutput))
		}
	}

	if !payload.IsFinal {
		color.New(color.FgYellow).Fprintln(c.out, "\n(stopped before a final answer)")
	}
}

func (c *Console) PrintError(err error) {
	color.New(color.FgRed, color.Bold).Fprint(c.out, "error: ")
	fmt.Fprintln(c.out, err)
}

func (c *Console) printToolCall(tc entity.ToolCall) {
	color.New(color.FgYellow, color.Bold).Fprintf(c.out, "\n%s", toolLabel(tc.Name))
	if args := strings.TrimSpace(tc.Arguments); args != "" && args != "{}" {
		color.New(color.Faint).Fprintf(c.out, " %s", truncate(args, 120))
	}
	fmt.Fprintln(c.out)
}

func toolLabel(name string) string {
	switch entity.ToolName(name) {
	case entity.ToolWebSearch:
		return "[search]"
	case entity.ToolAPICall:
		return "[api]"
	case entity.ToolSynthesizer:
		return "[synthesize]"
	case "":
		return "[tool]"
	}
	return "[" + name + "]"
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
