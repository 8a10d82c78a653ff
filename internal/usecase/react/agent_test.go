package react

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ada-engine/internal/application/port/output"
	"ada-engine/internal/application/service"
	"ada-engine/internal/domain/entity"
	"ada-engine/internal/infrastructure/prompts"
)

type scriptedLLM struct {
	mu        sync.Mutex
	responses []entity.Message
	repeat    *entity.Message
	err       error
	requests  []output.FunctionCallRequest
}

func (s *scriptedLLM) FunctionCall(_ context.Context, req output.FunctionCallRequest) (*output.FunctionCallResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := req
	snapshot.Messages = append([]entity.Message(nil), req.Messages...)
	s.requests = append(s.requests, snapshot)

	if s.err != nil {
		return nil, s.err
	}
	if s.repeat != nil {
		return &output.FunctionCallResponse{Message: *s.repeat}, nil
	}
	if len(s.responses) == 0 {
		return nil, errors.New("no scripted response left")
	}
	msg := s.responses[0]
	s.responses = s.responses[1:]
	return &output.FunctionCallResponse{Message: msg}, nil
}

func (s *scriptedLLM) Complete(context.Context, output.CompletionRequest) (string, error) {
	return "", errors.New("not used")
}

func (s *scriptedLLM) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

type fakeTool struct {
	name     string
	required []string
	reply    string
	err      error
	inputs   []*entity.AgentPayload
	args     []map[string]any
}

func (f *fakeTool) Description() entity.ToolDescription {
	props := map[string]entity.ToolProperty{}
	for _, r := range f.required {
		props[r] = entity.ToolProperty{Type: "string", Description: r}
	}
	return entity.ToolDescription{
		Name:        f.name,
		Description: "fake " + f.name,
		Properties:  props,
		Required:    f.required,
	}
}

func (f *fakeTool) Run(_ context.Context, in *entity.AgentPayload, args map[string]any) (*entity.AgentPayload, error) {
	f.inputs = append(f.inputs, in)
	f.args = append(f.args, args)
	if f.err != nil {
		return nil, f.err
	}
	return entity.NewAgentPayload(entity.Message{Role: entity.RoleAssistant, Content: f.reply}), nil
}

type countingMetrics struct {
	calls []string
}

func (m *countingMetrics) AgentCalled(_ context.Context, className, projectID string) {
	m.calls = append(m.calls, className+"/"+projectID)
}

func toolCallMessage(id, name, args string) entity.Message {
	return entity.Message{
		Role:      entity.RoleAssistant,
		ToolCalls: []entity.ToolCall{{ID: id, Name: name, Arguments: args}},
	}
}

func userPayload(content string) *entity.AgentPayload {
	return entity.NewAgentPayload(entity.Message{Role: entity.RoleUser, Content: content})
}

func newAgent(t *testing.T, llm output.LLMPort, cfg Config) *ReActAgent {
	t.Helper()
	agent, err := New(llm, cfg, nil, nil, nil)
	require.NoError(t, err)
	return agent
}

func TestNew_Defaults(t *testing.T) {
	agent := newAgent(t, &scriptedLLM{}, Config{})

	assert.Equal(t, 0, agent.Tools().Len())
	assert.Equal(t, DefaultMaxIterations, agent.MaxIterations())
	assert.Equal(t, prompts.ReActInitialPrompt, agent.InitialPrompt())
	assert.Equal(t, DefaultName, agent.Description().Name)
}

func TestNew_RejectsDuplicateTools(t *testing.T) {
	_, err := New(&scriptedLLM{}, Config{
		Tools: []output.ToolPort{&fakeTool{name: "a"}, &fakeTool{name: "a"}},
	}, nil, nil, nil)
	assert.Error(t, err)
}

func TestNew_RequiresLLM(t *testing.T) {
	_, err := New(nil, Config{}, nil, nil, nil)
	assert.Error(t, err)
}

func TestExecute_DirectAnswer(t *testing.T) {
	llm := &scriptedLLM{responses: []entity.Message{{Role: entity.RoleAssistant, Content: "Paris"}}}
	agent := newAgent(t, llm, Config{})

	payload := userPayload("Capital of France?")
	result, err := agent.Execute(context.Background(), payload)
	require.NoError(t, err)

	assert.Same(t, payload, result)
	assert.True(t, result.IsFinal)
	assert.Equal(t, 1, llm.calls())
	require.Len(t, result.Messages, 3)
	assert.Equal(t, entity.RoleSystem, result.Messages[0].Role)
	assert.Equal(t, entity.RoleAssistant, result.LastMessage().Role)
	assert.Equal(t, "Paris", result.LastMessage().Content)
	assert.Equal(t, "auto", llm.requests[0].ToolChoice)
}

func TestExecute_DirectiveInsertedOnce(t *testing.T) {
	llm := &scriptedLLM{repeat: &entity.Message{Role: entity.RoleAssistant, Content: "ok"}}
	agent := newAgent(t, llm, Config{})

	payload := userPayload("hi")
	assert.NotEqual(t, entity.RoleSystem, payload.Messages[0].Role)

	for i := 0; i < 3; i++ {
		_, err := agent.Execute(context.Background(), payload)
		require.NoError(t, err)
	}

	systemCount := 0
	for _, m := range payload.Messages {
		if m.Role == entity.RoleSystem {
			systemCount++
		}
	}
	assert.Equal(t, 1, systemCount)
	assert.Equal(t, prompts.ReActInitialPrompt, payload.Messages[0].Content)
}

func TestExecute_DifferentSystemMessageGetsDirectiveInFront(t *testing.T) {
	llm := &scriptedLLM{repeat: &entity.Message{Role: entity.RoleAssistant, Content: "ok"}}
	agent := newAgent(t, llm, Config{InitialPrompt: "be brief"})

	payload := entity.NewAgentPayload(
		entity.Message{Role: entity.RoleSystem, Content: "other directive"},
		entity.Message{Role: entity.RoleUser, Content: "hi"},
	)
	_, err := agent.Execute(context.Background(), payload)
	require.NoError(t, err)

	assert.Equal(t, "be brief", payload.Messages[0].Content)
	assert.Equal(t, "other directive", payload.Messages[1].Content)
}

func TestExecute_ToolThenAnswer(t *testing.T) {
	tool := &fakeTool{name: "lookup", reply: "Tool response"}
	llm := &scriptedLLM{responses: []entity.Message{
		toolCallMessage("call_1", "lookup", `{}`),
		{Role: entity.RoleAssistant, Content: "Final answer"},
	}}
	agent := newAgent(t, llm, Config{Tools: []output.ToolPort{tool}})

	result, err := agent.Execute(context.Background(), userPayload("question"))
	require.NoError(t, err)

	assert.True(t, result.IsFinal)
	assert.Equal(t, 2, llm.calls())
	assert.Equal(t, "Final answer", result.LastMessage().Content)

	// system, user, assistant(call), tool, assistant
	require.Len(t, result.Messages, 5)
	call := result.Messages[2]
	assert.Equal(t, entity.RoleAssistant, call.Role)
	require.Len(t, call.ToolCalls, 1)
	assert.Equal(t, "call_1", call.ToolCalls[0].ID)

	obs := result.Messages[3]
	assert.Equal(t, entity.RoleTool, obs.Role)
	assert.Equal(t, "Tool response", obs.Content)
	assert.Equal(t, "call_1", obs.ToolCallID)

	// The second model call sees the tool observation.
	require.Len(t, llm.requests[1].Messages, 4)
	require.Len(t, llm.requests[0].Tools, 1)
	assert.Equal(t, "lookup", llm.requests[0].Tools[0].Name)

	// The tool gets a snapshot, not the live conversation.
	require.Len(t, tool.inputs, 1)
	assert.Len(t, tool.inputs[0].Messages, 2)
}

func TestExecute_MultipleCallsInOneTurn(t *testing.T) {
	a := &fakeTool{name: "a", reply: "from a"}
	b := &fakeTool{name: "b", reply: "from b", required: []string{"q"}}
	llm := &scriptedLLM{responses: []entity.Message{
		{
			Role: entity.RoleAssistant,
			ToolCalls: []entity.ToolCall{
				{ID: "1", Name: "a", Arguments: ""},
				{ID: "2", Name: "b", Arguments: `{"q":"x"}`},
			},
		},
		{Role: entity.RoleAssistant, Content: "done"},
	}}
	agent := newAgent(t, llm, Config{Tools: []output.ToolPort{a, b}})

	result, err := agent.Execute(context.Background(), userPayload("go"))
	require.NoError(t, err)

	require.Len(t, result.Messages, 7)
	assert.Equal(t, "1", result.Messages[3].ToolCallID)
	assert.Equal(t, "from a", result.Messages[3].Content)
	assert.Equal(t, "2", result.Messages[5].ToolCallID)
	assert.Equal(t, "from b", result.Messages[5].Content)
	assert.Equal(t, "x", b.args[0]["q"])

	// b's snapshot already contains a's observation.
	assert.Len(t, b.inputs[0].Messages, 4)
}

func TestExecute_Exhaustion(t *testing.T) {
	tool := &fakeTool{name: "loop", reply: "again"}
	llm := &scriptedLLM{repeat: &entity.Message{
		Role:      entity.RoleAssistant,
		ToolCalls: []entity.ToolCall{{ID: "c", Name: "loop", Arguments: "{}"}},
	}}
	agent := newAgent(t, llm, Config{Tools: []output.ToolPort{tool}, MaxIterations: 4})

	result, err := agent.Execute(context.Background(), userPayload("never ends"))
	require.NoError(t, err)

	assert.False(t, result.IsFinal)
	assert.Equal(t, 4, llm.calls())
	assert.Equal(t, entity.RoleAssistant, result.LastMessage().Role)
	assert.Equal(t, ExhaustionMessage, result.LastMessage().Content)
}

func TestExecute_DefaultBudgetIsThree(t *testing.T) {
	tool := &fakeTool{name: "loop", reply: "again"}
	llm := &scriptedLLM{repeat: &entity.Message{
		Role:      entity.RoleAssistant,
		ToolCalls: []entity.ToolCall{{ID: "c", Name: "loop"}},
	}}
	agent := newAgent(t, llm, Config{Tools: []output.ToolPort{tool}})

	result, err := agent.Execute(context.Background(), userPayload("x"))
	require.NoError(t, err)
	assert.Equal(t, 3, llm.calls())
	assert.False(t, result.IsFinal)
}

func TestExecute_UnknownTool(t *testing.T) {
	llm := &scriptedLLM{responses: []entity.Message{toolCallMessage("1", "missing", "{}")}}
	agent := newAgent(t, llm, Config{})

	payload := userPayload("x")
	_, err := agent.Execute(context.Background(), payload)

	require.Error(t, err)
	assert.ErrorIs(t, err, entity.ErrToolNotFound)
	require.Len(t, payload.Messages, 2)
	assert.Equal(t, entity.RoleSystem, payload.Messages[0].Role)
	assert.Equal(t, "x", payload.Messages[1].Content)
}

func TestExecute_InvalidArguments(t *testing.T) {
	tool := &fakeTool{name: "search", required: []string{"query"}}
	llm := &scriptedLLM{responses: []entity.Message{toolCallMessage("1", "search", `{"other":1}`)}}
	agent := newAgent(t, llm, Config{Tools: []output.ToolPort{tool}})

	_, err := agent.Execute(context.Background(), userPayload("x"))
	assert.ErrorIs(t, err, entity.ErrInvalidToolArguments)
	assert.Empty(t, tool.inputs)

	llm = &scriptedLLM{responses: []entity.Message{toolCallMessage("1", "search", `not json`)}}
	agent = newAgent(t, llm, Config{Tools: []output.ToolPort{tool}})
	_, err = agent.Execute(context.Background(), userPayload("x"))
	assert.ErrorIs(t, err, entity.ErrInvalidToolArguments)
}

func TestExecute_ToolErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	tool := &fakeTool{name: "fragile", err: boom}
	llm := &scriptedLLM{responses: []entity.Message{toolCallMessage("1", "fragile", "{}")}}
	agent := newAgent(t, llm, Config{Tools: []output.ToolPort{tool}})

	_, err := agent.Execute(context.Background(), userPayload("x"))
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "fragile")
}

func TestExecute_LLMErrorPropagates(t *testing.T) {
	boom := errors.New("provider down")
	agent := newAgent(t, &scriptedLLM{err: boom}, Config{})

	_, err := agent.Execute(context.Background(), userPayload("x"))
	assert.ErrorIs(t, err, boom)
}

func TestExecute_EmptyConversation(t *testing.T) {
	llm := &scriptedLLM{}
	agent := newAgent(t, llm, Config{})

	_, err := agent.Execute(context.Background(), entity.NewAgentPayload())
	assert.ErrorIs(t, err, ErrEmptyConversation)

	_, err = agent.Execute(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyConversation)
	assert.Equal(t, 0, llm.calls())
}

func TestExecute_CountsCallsPerProject(t *testing.T) {
	metrics := &countingMetrics{}
	llm := &scriptedLLM{repeat: &entity.Message{Role: entity.RoleAssistant, Content: "ok"}}
	agent, err := New(llm, Config{}, nil, nil, metrics)
	require.NoError(t, err)

	ctx := service.WithProjectID(context.Background(), "proj-1")
	_, err = agent.Execute(ctx, userPayload("a"))
	require.NoError(t, err)
	_, err = agent.Execute(ctx, userPayload("b"))
	require.NoError(t, err)

	assert.Equal(t, []string{"ReActAgent/proj-1", "ReActAgent/proj-1"}, metrics.calls)
}

func TestRun_NestedAgent(t *testing.T) {
	childLLM := &scriptedLLM{responses: []entity.Message{{Role: entity.RoleAssistant, Content: "child result"}}}
	child := newAgent(t, childLLM, Config{
		Description: entity.ToolDescription{
			Name:        "researcher",
			Description: "Researches a topic",
			Properties:  map[string]entity.ToolProperty{"task": {Type: "string"}},
			Required:    []string{"task"},
		},
	})

	parentLLM := &scriptedLLM{responses: []entity.Message{
		toolCallMessage("p1", "researcher", `{"task":"find facts"}`),
		{Role: entity.RoleAssistant, Content: "parent done"},
	}}
	parent := newAgent(t, parentLLM, Config{Tools: []output.ToolPort{child}})

	result, err := parent.Execute(context.Background(), userPayload("research something"))
	require.NoError(t, err)

	assert.Equal(t, "parent done", result.LastMessage().Content)
	assert.Equal(t, "child result", result.Messages[3].Content)
	assert.Equal(t, "p1", result.Messages[3].ToolCallID)

	// The child saw only its directive and the rendered task.
	require.Len(t, childLLM.requests, 1)
	childMsgs := childLLM.requests[0].Messages
	require.Len(t, childMsgs, 2)
	assert.Equal(t, "find facts", childMsgs[1].Content)
}

func TestRun_WithoutArgumentsContinuesCopy(t *testing.T) {
	llm := &scriptedLLM{responses: []entity.Message{{Role: entity.RoleAssistant, Content: "answer"}}}
	agent := newAgent(t, llm, Config{})

	in := userPayload("original")
	out, err := agent.Run(context.Background(), in, map[string]any{})
	require.NoError(t, err)

	assert.NotSame(t, in, out)
	assert.Len(t, in.Messages, 1)
	assert.Equal(t, "answer", out.LastMessage().Content)
}

func TestRenderArguments(t *testing.T) {
	assert.Equal(t, "just this", renderArguments(map[string]any{"task": "just this"}))
	assert.Equal(t, "a: 1\nb: two", renderArguments(map[string]any{"b": "two", "a": 1}))
	assert.Equal(t, "n: 5", renderArguments(map[string]any{"n": 5}))
}
