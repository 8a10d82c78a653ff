package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"ada-engine/internal/application/port/output"
	"ada-engine/internal/application/service"
	"ada-engine/internal/domain/entity"
)

var (
	_ output.LLMPort             = (*Adapter)(nil)
	_ output.StructuredCompleter = (*Adapter)(nil)
	_ output.WebSearcher         = (*Adapter)(nil)
	_ output.Embedder            = (*Adapter)(nil)
	_ output.TokenCounter        = (*Adapter)(nil)
	_ output.Transcriber         = (*Adapter)(nil)
	_ output.SpeechSynthesizer   = (*Adapter)(nil)
)

const (
	DefaultModel          = "gpt-4o-mini"
	DefaultEmbeddingModel = "text-embedding-3-large"
	DefaultSearchModel    = "gpt-4o-mini-search-preview"
	DefaultTemperature    = float32(0.3)

	DefaultTranscriptionModel = openai.Whisper1
	DefaultSpeechModel        = openai.TTSModel1
	DefaultSpeechVoice        = openai.VoiceNova
)

var ErrNoChoices = errors.New("no choices in response")

type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	EmbeddingModel string
	SearchModel    string
	// Temperature defaults to DefaultTemperature when nil. Zero is honored.
	Temperature *float32

	TranscriptionModel string
	SpeechModel        openai.SpeechModel
	SpeechVoice        openai.SpeechVoice

	// MaxRequestsPerMinute throttles every call when positive.
	MaxRequestsPerMinute int
	Retry                RetryConfig
	// LogRequests logs every HTTP exchange with the provider at debug level.
	LogRequests bool
	Logger      output.LoggerPort
	// Tracer receives a span per audio call; optional.
	Tracer output.TracerPort
}

type RetryConfig struct {
	InitialInterval time.Duration
	// Function calls, constrained completions, embeddings and audio.
	ShortAttempts    uint
	ShortMaxInterval time.Duration
	// Plain completions and web search.
	LongAttempts    uint
	LongMaxInterval time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		InitialInterval:  time.Second,
		ShortAttempts:    3,
		ShortMaxInterval: 40 * time.Second,
		LongAttempts:     5,
		LongMaxInterval:  60 * time.Second,
	}
}

type Adapter struct {
	client         *openai.Client
	model          string
	embeddingModel string
	searchModel    string
	temperature    float32
	transcription  string
	speechModel    openai.SpeechModel
	speechVoice    openai.SpeechVoice
	retry          RetryConfig
	limiter        *rate.Limiter
	logger         output.LoggerPort
	tracer         output.TracerPort
}

type loggingTransport struct {
	base   http.RoundTripper
	logger output.LoggerPort
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var bodyBytes []byte
	if req.Body != nil {
		bodyBytes, _ = io.ReadAll(req.Body)
		req.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
	}

	var requestData map[string]any
	if len(bodyBytes) > 0 {
		_ = json.Unmarshal(bodyBytes, &requestData)
	}
	t.logger.Debug("LLM request", "method", req.Method, "url", req.URL.String(), "body", requestData)

	start := time.Now()
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		t.logger.Warn("LLM transport error", "url", req.URL.String(), "error", err)
		return nil, err
	}

	t.logger.Debug("LLM response", "status", resp.StatusCode, "elapsed", time.Since(start).String())
	return resp, nil
}

func NewAdapter(cfg Config) *Adapter {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	if cfg.LogRequests && cfg.Logger != nil {
		config.HTTPClient = &http.Client{
			Transport: &loggingTransport{base: http.DefaultTransport, logger: cfg.Logger},
		}
	}

	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = DefaultEmbeddingModel
	}
	if cfg.SearchModel == "" {
		cfg.SearchModel = DefaultSearchModel
	}
	temperature := DefaultTemperature
	if cfg.Temperature != nil {
		temperature = *cfg.Temperature
	}
	if cfg.TranscriptionModel == "" {
		cfg.TranscriptionModel = DefaultTranscriptionModel
	}
	if cfg.SpeechModel == "" {
		cfg.SpeechModel = DefaultSpeechModel
	}
	if cfg.SpeechVoice == "" {
		cfg.SpeechVoice = DefaultSpeechVoice
	}
	if cfg.Tracer == nil {
		cfg.Tracer = service.NoopTracer{}
	}
	if cfg.Retry == (RetryConfig{}) {
		cfg.Retry = DefaultRetryConfig()
	}

	var limiter *rate.Limiter
	if cfg.MaxRequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.MaxRequestsPerMinute)), 1)
	}

	return &Adapter{
		client:         openai.NewClientWithConfig(config),
		model:          cfg.Model,
		embeddingModel: cfg.EmbeddingModel,
		searchModel:    cfg.SearchModel,
		temperature:    temperature,
		transcription:  cfg.TranscriptionModel,
		speechModel:    cfg.SpeechModel,
		speechVoice:    cfg.SpeechVoice,
		retry:          cfg.Retry,
		limiter:        limiter,
		logger:         cfg.Logger,
		tracer:         cfg.Tracer,
	}
}

func (a *Adapter) FunctionCall(ctx context.Context, req output.FunctionCallRequest) (*output.FunctionCallResponse, error) {
	chatReq := openai.ChatCompletionRequest{
		Model:       a.model,
		Messages:    convertMessages(req.Messages),
		Temperature: a.temperatureFor(req.Temperature),
	}
	if len(req.Tools) > 0 {
		chatReq.Tools = convertTools(req.Tools)
		if req.ToolChoice != "" {
			chatReq.ToolChoice = req.ToolChoice
		}
	}

	msg, err := a.chat(ctx, chatReq, a.retry.ShortAttempts, a.retry.ShortMaxInterval)
	if err != nil {
		return nil, fmt.Errorf("function call failed: %w", err)
	}
	return &output.FunctionCallResponse{Message: convertResponseMessage(msg)}, nil
}

func (a *Adapter) Complete(ctx context.Context, req output.CompletionRequest) (string, error) {
	msg, err := a.chat(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		Messages:    convertMessages(req.Messages),
		Temperature: a.temperatureFor(req.Temperature),
	}, a.retry.LongAttempts, a.retry.LongMaxInterval)
	if err != nil {
		return "", fmt.Errorf("completion failed: %w", err)
	}
	return msg.Content, nil
}

func (a *Adapter) ConstrainedComplete(ctx context.Context, req output.ConstrainedRequest) (string, error) {
	msg, err := a.chat(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		Messages:    convertMessages(req.Messages),
		Temperature: a.temperatureFor(req.Temperature),
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   req.SchemaName,
				Schema: req.Schema,
				Strict: true,
			},
		},
	}, a.retry.ShortAttempts, a.retry.ShortMaxInterval)
	if err != nil {
		return "", fmt.Errorf("constrained completion failed: %w", err)
	}
	return msg.Content, nil
}

// WebSearch asks a search-enabled chat model. Search models reject the
// temperature parameter, so none is sent.
func (a *Adapter) WebSearch(ctx context.Context, query string) (string, error) {
	msg, err := a.chat(ctx, openai.ChatCompletionRequest{
		Model: a.searchModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: query},
		},
	}, a.retry.LongAttempts, a.retry.LongMaxInterval)
	if err != nil {
		return "", fmt.Errorf("web search failed: %w", err)
	}
	return msg.Content, nil
}

func (a *Adapter) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	resp, err := retry(ctx, a, a.retry.ShortAttempts, a.retry.ShortMaxInterval, func() (openai.EmbeddingResponse, error) {
		return a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: inputs,
			Model: openai.EmbeddingModel(a.embeddingModel),
		})
	})
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}

	result := make([][]float32, len(inputs))
	for _, d := range resp.Data {
		if d.Index >= 0 && d.Index < len(result) {
			result[d.Index] = d.Embedding
		}
	}
	return result, nil
}

func (a *Adapter) chat(ctx context.Context, req openai.ChatCompletionRequest, attempts uint, maxInterval time.Duration) (openai.ChatCompletionMessage, error) {
	resp, err := retry(ctx, a, attempts, maxInterval, func() (openai.ChatCompletionResponse, error) {
		return a.client.CreateChatCompletion(ctx, req)
	})
	if err != nil {
		return openai.ChatCompletionMessage{}, err
	}
	if len(resp.Choices) == 0 {
		return openai.ChatCompletionMessage{}, ErrNoChoices
	}
	return resp.Choices[0].Message, nil
}

// temperatureFor resolves the temperature to send. The client omits a zero
// temperature from the request body, so zero goes out as the smallest
// positive float instead.
func (a *Adapter) temperatureFor(t *float32) float32 {
	temp := a.temperature
	if t != nil {
		temp = *t
	}
	if temp == 0 {
		return math.SmallestNonzeroFloat32
	}
	return temp
}

func convertMessages(messages []entity.Message) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		oaiMsg := openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		}

		if msg.ToolCallID != "" {
			oaiMsg.ToolCallID = msg.ToolCallID
		}
		if msg.Name != "" && msg.Role != entity.RoleTool {
			oaiMsg.Name = msg.Name
		}

		for _, tc := range msg.ToolCalls {
			oaiMsg.ToolCalls = append(oaiMsg.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}

		result = append(result, oaiMsg)
	}
	return result
}

func convertTools(tools []entity.ToolDescription) []openai.Tool {
	result := make([]openai.Tool, 0, len(tools))
	for _, t := range tools {
		result = append(result, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.JSONSchema(),
			},
		})
	}
	return result
}

func convertResponseMessage(msg openai.ChatCompletionMessage) entity.Message {
	result := entity.Message{
		Role:    entity.MessageRole(msg.Role),
		Content: msg.Content,
	}
	if result.Role == "" {
		result.Role = entity.RoleAssistant
	}

	for _, tc := range msg.ToolCalls {
		result.ToolCalls = append(result.ToolCalls, entity.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}

	return result
}
