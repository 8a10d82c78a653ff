package pipeline

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"gopkg.in/yaml.v3"

	"ada-engine/internal/adapter/tool"
	"ada-engine/internal/application/port/input"
	"ada-engine/internal/application/port/output"
	"ada-engine/internal/domain/entity"
	"ada-engine/internal/infrastructure/prompts"
	"ada-engine/internal/usecase/react"
	"ada-engine/internal/usecase/synthesizer"
)

var (
	_ input.PipelineResolver = (*Pipelines)(nil)

	ErrPipelineNotFound = errors.New("no pipeline configured for project")
	ErrUnknownToolType  = errors.New("unknown tool type")
)

type Deps struct {
	LLM        output.LLMPort
	Structured output.StructuredCompleter
	Searcher   output.WebSearcher
	HTTPClient *http.Client
	Logger     output.LoggerPort
	Tracer     output.TracerPort
	Metrics    output.MetricsPort
}

type Builder struct {
	deps Deps
}

func NewBuilder(deps Deps) *Builder {
	if deps.HTTPClient == nil {
		deps.HTTPClient = &http.Client{}
	}
	return &Builder{deps: deps}
}

func (b *Builder) toolDeps() tool.Deps {
	return tool.Deps{Logger: b.deps.Logger, Tracer: b.deps.Tracer, Metrics: b.deps.Metrics}
}

// Build assembles the agent and, recursively, every nested agent.
func (b *Builder) Build(spec AgentSpec) (*react.ReActAgent, error) {
	tools := make([]output.ToolPort, 0, len(spec.Tools))
	for i, ts := range spec.Tools {
		t, err := b.buildTool(ts)
		if err != nil {
			return nil, fmt.Errorf("agent %q tool %d: %w", spec.Name, i, err)
		}
		tools = append(tools, t)
	}

	cfg := react.Config{
		Tools:         tools,
		MaxIterations: spec.MaxIterations,
	}
	if spec.Name != "" {
		cfg.Description = spec.description()
	}

	if spec.InitialPrompt != "" {
		defs := make([]entity.ToolDescription, 0, len(tools))
		for _, t := range tools {
			defs = append(defs, t.Description())
		}
		rendered, err := prompts.GenerateAgentPrompt(spec.InitialPrompt, spec.Name, defs)
		if err != nil {
			return nil, fmt.Errorf("agent %q initial prompt: %w", spec.Name, err)
		}
		cfg.InitialPrompt = rendered
	}

	return react.New(b.deps.LLM, cfg, b.deps.Logger, b.deps.Tracer, b.deps.Metrics)
}

func (b *Builder) buildTool(ts ToolSpec) (output.ToolPort, error) {
	switch ts.Type {
	case ToolTypeWebSearch:
		if b.deps.Searcher == nil {
			return nil, errors.New("web_search requires a search provider")
		}
		return tool.NewWebSearchTool(b.deps.Searcher, ts.describe(tool.DefaultWebSearchDescription()), b.toolDeps()), nil

	case ToolTypeAPICall:
		if ts.Endpoint == "" {
			return nil, errors.New("api_call requires an endpoint")
		}
		return tool.NewAPICallTool(tool.APICallConfig{
			Endpoint:         ts.Endpoint,
			Method:           ts.Method,
			Headers:          expandHeaders(ts.Headers),
			Timeout:          ts.Timeout,
			MaxResponseBytes: ts.MaxResponseBytes,
			FixedParameters:  ts.FixedParameters,
			Description:      ts.describe(tool.DefaultAPICallDescription()),
		}, b.deps.HTTPClient, b.toolDeps()), nil

	case ToolTypeSynthesizer:
		if b.deps.Structured == nil {
			return nil, errors.New("synthesizer requires a structured completion provider")
		}
		s := synthesizer.New(b.deps.Structured, ts.Prompt, b.deps.Logger, b.deps.Tracer)
		return tool.NewSynthesizerTool(s, ts.describe(tool.DefaultSynthesizerDescription()), b.toolDeps()), nil

	case ToolTypeAgent:
		if ts.Agent == nil {
			return nil, errors.New("agent tool requires an agent block")
		}
		return b.Build(*ts.Agent)
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownToolType, ts.Type)
}

// expandHeaders substitutes ${VAR} references so secrets stay out of the file.
func expandHeaders(headers map[string]string) map[string]string {
	if headers == nil {
		return nil
	}
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		out[k] = os.ExpandEnv(v)
	}
	return out
}

// Pipelines maps project ids to ready-to-run agents.
type Pipelines struct {
	agents map[string]*react.ReActAgent
}

func (p *Pipelines) For(projectID string) (input.AgentExecutor, error) {
	if a, ok := p.agents[projectID]; ok {
		return a, nil
	}
	if a, ok := p.agents[DefaultKey]; ok {
		return a, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrPipelineNotFound, projectID)
}

func (p *Pipelines) Len() int { return len(p.agents) }

func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse pipelines: %w", err)
	}
	if len(f.Pipelines) == 0 {
		return nil, errors.New("parse pipelines: no pipelines defined")
	}
	return &f, nil
}

// Load reads path, or builds only the default pipeline when path is empty.
func (b *Builder) Load(path string) (*Pipelines, error) {
	f := &File{Pipelines: map[string]AgentSpec{DefaultKey: DefaultSpec()}}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read pipelines: %w", err)
		}
		if f, err = Parse(data); err != nil {
			return nil, err
		}
	}
	return b.BuildAll(f)
}

func (b *Builder) BuildAll(f *File) (*Pipelines, error) {
	agents := make(map[string]*react.ReActAgent, len(f.Pipelines))
	for key, spec := range f.Pipelines {
		agent, err := b.Build(spec)
		if err != nil {
			return nil, fmt.Errorf("pipeline %q: %w", key, err)
		}
		agents[key] = agent
	}
	return &Pipelines{agents: agents}, nil
}
