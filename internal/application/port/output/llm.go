package output

import (
	"context"
	"encoding/json"

	"ada-engine/internal/domain/entity"
)

type LLMPort interface {
	FunctionCall(ctx context.Context, req FunctionCallRequest) (*FunctionCallResponse, error)
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

type StructuredCompleter interface {
	// ConstrainedComplete returns the raw JSON text the model produced for schema.
	ConstrainedComplete(ctx context.Context, req ConstrainedRequest) (string, error)
}

type WebSearcher interface {
	WebSearch(ctx context.Context, query string) (string, error)
}

type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

type Transcriber interface {
	// Transcribe returns the text spoken in the audio file at audioPath.
	// An empty path yields an empty transcript.
	Transcribe(ctx context.Context, audioPath, language string) (string, error)
}

type SpeechSynthesizer interface {
	// Speak renders text as speech into outPath and returns outPath.
	Speak(ctx context.Context, text, outPath string) (string, error)
}

type TokenCounter interface {
	TokenSize(content string) (int, error)
}

type FunctionCallRequest struct {
	Messages    []entity.Message
	Tools       []entity.ToolDescription
	ToolChoice  string
	Temperature *float32
}

type FunctionCallResponse struct {
	Message entity.Message
}

type CompletionRequest struct {
	Messages    []entity.Message
	Temperature *float32
}

type ConstrainedRequest struct {
	Messages    []entity.Message
	SchemaName  string
	Schema      json.RawMessage
	Temperature *float32
}
