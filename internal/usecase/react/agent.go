package react

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"ada-engine/internal/application/port/input"
	"ada-engine/internal/application/port/output"
	"ada-engine/internal/application/service"
	"ada-engine/internal/domain/entity"
	"ada-engine/internal/infrastructure/prompts"
)

var (
	_ input.AgentExecutor = (*ReActAgent)(nil)
	_ output.ToolPort     = (*ReActAgent)(nil)
)

const (
	DefaultMaxIterations = 3
	DefaultName          = "react_agent"

	// ExhaustionMessage closes a conversation that ran out of iterations.
	ExhaustionMessage = "I'm sorry, I couldn't find a solution to your problem."

	className  = "ReActAgent"
	toolChoice = "auto"
)

var ErrEmptyConversation = errors.New("conversation has no messages")

type Config struct {
	// Description is what a parent agent sees when this agent is nested as a tool.
	Description   entity.ToolDescription
	Tools         []output.ToolPort
	MaxIterations int
	InitialPrompt string
	Temperature   *float32
}

type ReActAgent struct {
	llm           output.LLMPort
	tools         *service.ToolRegistryImpl
	logger        output.LoggerPort
	tracer        output.TracerPort
	metrics       output.MetricsPort
	description   entity.ToolDescription
	maxIterations int
	initialPrompt string
	temperature   *float32
}

func New(
	llm output.LLMPort,
	cfg Config,
	logger output.LoggerPort,
	tracer output.TracerPort,
	metrics output.MetricsPort,
) (*ReActAgent, error) {
	if llm == nil {
		return nil, fmt.Errorf("react agent requires an llm")
	}

	tools := service.NewToolRegistry()
	for _, t := range cfg.Tools {
		if err := tools.Register(t); err != nil {
			return nil, fmt.Errorf("register tool: %w", err)
		}
	}

	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.InitialPrompt == "" {
		cfg.InitialPrompt = prompts.ReActInitialPrompt
	}
	if cfg.Description.Name == "" {
		cfg.Description = defaultDescription()
	}

	if logger == nil {
		logger = service.NopLogger{}
	}
	if tracer == nil {
		tracer = service.NoopTracer{}
	}
	if metrics == nil {
		metrics = service.NoopMetrics{}
	}

	return &ReActAgent{
		llm:           llm,
		tools:         tools,
		logger:        logger.WithField("agent", cfg.Description.Name),
		tracer:        tracer,
		metrics:       metrics,
		description:   cfg.Description,
		maxIterations: cfg.MaxIterations,
		initialPrompt: cfg.InitialPrompt,
		temperature:   cfg.Temperature,
	}, nil
}

func defaultDescription() entity.ToolDescription {
	return entity.ToolDescription{
		Name:        DefaultName,
		Description: "Solves a task by reasoning and calling its own tools.",
		Properties: map[string]entity.ToolProperty{
			"task": {Type: "string", Description: "The task for this agent to solve"},
		},
	}
}

func (a *ReActAgent) Description() entity.ToolDescription { return a.description }

func (a *ReActAgent) MaxIterations() int { return a.maxIterations }

func (a *ReActAgent) InitialPrompt() string { return a.initialPrompt }

func (a *ReActAgent) Tools() output.ToolRegistry { return a.tools }

// Execute runs the loop on payload. The payload is modified in place and
// returned; on error it keeps every message appended before the failure.
func (a *ReActAgent) Execute(ctx context.Context, payload *entity.AgentPayload) (*entity.AgentPayload, error) {
	if payload == nil || len(payload.Messages) == 0 {
		return nil, ErrEmptyConversation
	}

	a.metrics.AgentCalled(ctx, className, service.ProjectIDFrom(ctx))

	ctx, span := a.tracer.Start(ctx, a.description.Name, map[string]any{
		"agent.class":    className,
		"max_iterations": a.maxIterations,
	})
	defer span.End()

	a.ensureDirective(payload)
	toolDefs := a.tools.Definitions()

	for iteration := 1; iteration <= a.maxIterations; iteration++ {
		a.logger.Debug("Starting iteration", "iteration", iteration)

		done, err := a.iterate(ctx, payload, toolDefs, iteration)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		if done {
			span.SetAttributes(map[string]any{"iterations": iteration, "is_final": true})
			return payload, nil
		}
	}

	a.logger.Warn("Iteration budget exhausted", "max_iterations", a.maxIterations)
	payload.Messages = append(payload.Messages, entity.Message{
		Role:    entity.RoleAssistant,
		Content: ExhaustionMessage,
	})
	payload.IsFinal = false
	span.SetAttributes(map[string]any{"iterations": a.maxIterations, "is_final": false})
	return payload, nil
}

// iterate performs one model turn and reports whether the model answered
// without requesting tools.
func (a *ReActAgent) iterate(
	ctx context.Context,
	payload *entity.AgentPayload,
	toolDefs []entity.ToolDescription,
	iteration int,
) (bool, error) {
	ctx, span := a.tracer.Start(ctx, a.description.Name+".iteration", map[string]any{
		"iteration": iteration,
	})
	defer span.End()

	resp, err := a.llm.FunctionCall(ctx, output.FunctionCallRequest{
		Messages:    payload.Messages,
		Tools:       toolDefs,
		ToolChoice:  toolChoice,
		Temperature: a.temperature,
	})
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("llm request failed: %w", err)
	}

	calls := resp.Message.ToolCalls
	if len(calls) == 0 {
		payload.Messages = append(payload.Messages, entity.Message{
			Role:    entity.RoleAssistant,
			Content: resp.Message.Content,
		})
		payload.IsFinal = true
		span.SetAttributes(map[string]any{"tool_names": []string{}})
		return true, nil
	}

	names := make([]string, 0, len(calls))
	for _, tc := range calls {
		names = append(names, tc.Name)
	}
	span.SetAttributes(map[string]any{"tool_names": names})

	results := make([]bool, 0, len(calls))
	for _, tc := range calls {
		if err := a.dispatch(ctx, payload, tc); err != nil {
			results = append(results, false)
			span.SetAttributes(map[string]any{"success": false, "tool_success": results})
			span.RecordError(err)
			return false, err
		}
		results = append(results, true)
	}
	span.SetAttributes(map[string]any{"success": true, "tool_success": results})

	return false, nil
}

func (a *ReActAgent) dispatch(ctx context.Context, payload *entity.AgentPayload, tc entity.ToolCall) error {
	tool, ok := a.tools.Get(tc.Name)
	if !ok {
		a.logger.Error("Unknown tool called", "name", tc.Name)
		return fmt.Errorf("%w: %s", entity.ErrToolNotFound, tc.Name)
	}

	args, err := tool.Description().ParseArguments(tc.Arguments)
	if err != nil {
		a.logger.Error("Invalid tool arguments", "name", tc.Name, "args", tc.Arguments, "error", err)
		return err
	}

	a.logger.Info("Executing tool", "name", tc.Name, "args", tc.Arguments)

	out, err := tool.Run(ctx, payload.Clone(), args)
	if err != nil {
		a.logger.Error("Tool execution failed", "name", tc.Name, "error", err)
		return fmt.Errorf("tool %s: %w", tc.Name, err)
	}

	observation := out.LastMessage().Content
	a.logger.Debug("Tool completed", "name", tc.Name, "resultLen", len(observation))

	payload.Messages = append(payload.Messages,
		entity.Message{
			Role:      entity.RoleAssistant,
			ToolCalls: []entity.ToolCall{tc},
		},
		entity.Message{
			Role:       entity.RoleTool,
			Content:    observation,
			ToolCallID: tc.ID,
			Name:       tc.Name,
		},
	)
	return nil
}

func (a *ReActAgent) ensureDirective(payload *entity.AgentPayload) {
	first := payload.Messages[0]
	if first.Role == entity.RoleSystem && first.Content == a.initialPrompt {
		return
	}
	payload.Messages = append([]entity.Message{{
		Role:    entity.RoleSystem,
		Content: a.initialPrompt,
	}}, payload.Messages...)
}

// Run lets a parent agent delegate to this one. The arguments become the
// child's only user message; with no arguments the parent conversation is
// continued on a copy.
func (a *ReActAgent) Run(ctx context.Context, in *entity.AgentPayload, args map[string]any) (*entity.AgentPayload, error) {
	var payload *entity.AgentPayload
	if len(args) > 0 {
		payload = entity.NewAgentPayload(entity.Message{
			Role:    entity.RoleUser,
			Content: renderArguments(args),
		})
	} else {
		payload = in.Clone()
	}

	a.logger.Info("Delegated run", "messages", len(payload.Messages))
	return a.Execute(ctx, payload)
}

func renderArguments(args map[string]any) string {
	if len(args) == 1 {
		for _, v := range args {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}

	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("%s: %v", k, args[k]))
	}
	return strings.Join(lines, "\n")
}
