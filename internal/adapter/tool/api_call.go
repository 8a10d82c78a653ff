package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ada-engine/internal/application/port/output"
	"ada-engine/internal/domain/entity"
)

var _ output.ToolPort = (*APICallTool)(nil)

const (
	defaultAPITimeout     = 30 * time.Second
	defaultMaxAPIResponse = 10 << 20
)

func DefaultAPICallDescription() entity.ToolDescription {
	return entity.ToolDescription{
		Name:        entity.ToolAPICall.String(),
		Description: "A generic API tool that can make HTTP requests to any API endpoint.",
		Properties: map[string]entity.ToolProperty{
			"query_param1": {Type: "string", Description: "This the first query parameter to be sent to the API."},
			"query_param2": {Type: "string", Description: "This the second query parameter to be sent to the API."},
		},
	}
}

type APICallConfig struct {
	Endpoint string
	Method   string
	Headers  map[string]string
	Timeout  time.Duration

	// MaxResponseBytes caps how much of a response body is read.
	MaxResponseBytes int64
	FixedParameters  map[string]any
	Description      *entity.ToolDescription
}

// APICallTool forwards the model's arguments to one configured HTTP endpoint.
type APICallTool struct {
	cfg    APICallConfig
	desc   entity.ToolDescription
	client *http.Client
	deps   Deps
}

func NewAPICallTool(cfg APICallConfig, client *http.Client, deps Deps) *APICallTool {
	cfg.Method = strings.ToUpper(strings.TrimSpace(cfg.Method))
	if cfg.Method == "" {
		cfg.Method = http.MethodGet
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultAPITimeout
	}
	if cfg.MaxResponseBytes <= 0 {
		cfg.MaxResponseBytes = defaultMaxAPIResponse
	}
	if client == nil {
		client = &http.Client{}
	}

	desc := DefaultAPICallDescription()
	if cfg.Description != nil {
		desc = *cfg.Description
	}

	return &APICallTool{
		cfg:    cfg,
		desc:   desc,
		client: client,
		deps:   deps.withDefaults(),
	}
}

func (t *APICallTool) Description() entity.ToolDescription { return t.desc }

func (t *APICallTool) Run(ctx context.Context, _ *entity.AgentPayload, args map[string]any) (*entity.AgentPayload, error) {
	ctx, span := t.deps.begin(ctx, "APICallTool", t.desc)
	defer span.End()

	result := t.call(ctx, args)
	span.SetAttributes(map[string]any{
		"http.method":      t.cfg.Method,
		"http.url":         t.cfg.Endpoint,
		"http.status_code": result.StatusCode,
		"success":          result.Success,
	})

	var content string
	if result.Success {
		pretty, err := prettyJSON(result.Data)
		if err != nil {
			return nil, fmt.Errorf("format api response: %w", err)
		}
		content = pretty
	} else {
		content = "API call failed: " + result.Error
	}

	out := assistantPayload(content)
	out.Artifacts = map[string]any{"api_response": result.artifact()}
	out.IsFinal = false
	return out, nil
}

type apiResult struct {
	StatusCode int
	Data       any
	Headers    map[string]string
	Error      string
	Success    bool
}

func (r apiResult) artifact() map[string]any {
	a := map[string]any{"success": r.Success}
	if r.StatusCode != 0 {
		a["status_code"] = r.StatusCode
	} else {
		a["status_code"] = nil
	}
	if r.Success {
		a["data"] = r.Data
		a["headers"] = r.Headers
	} else {
		a["error"] = r.Error
	}
	return a
}

func (t *APICallTool) call(ctx context.Context, args map[string]any) apiResult {
	params := make(map[string]any, len(t.cfg.FixedParameters)+len(args))
	for k, v := range t.cfg.FixedParameters {
		params[k] = v
	}
	for k, v := range args {
		params[k] = v
	}

	ctx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	defer cancel()

	req, err := t.buildRequest(ctx, params)
	if err != nil {
		return t.failure(0, err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return t.failure(0, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, t.cfg.MaxResponseBytes+1))
	if err != nil {
		return t.failure(resp.StatusCode, err)
	}
	if int64(len(body)) > t.cfg.MaxResponseBytes {
		return t.failure(resp.StatusCode, fmt.Errorf("response body exceeds %d bytes", t.cfg.MaxResponseBytes))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return t.failure(resp.StatusCode, fmt.Errorf("%d %s for url: %s",
			resp.StatusCode, http.StatusText(resp.StatusCode), req.URL.String()))
	}

	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		data = map[string]any{"text": string(body)}
	}

	headers := make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		headers[k] = resp.Header.Get(k)
	}

	return apiResult{
		StatusCode: resp.StatusCode,
		Data:       data,
		Headers:    headers,
		Success:    true,
	}
}

func (t *APICallTool) buildRequest(ctx context.Context, params map[string]any) (*http.Request, error) {
	var body io.Reader
	endpoint := t.cfg.Endpoint

	switch t.cfg.Method {
	case http.MethodGet, http.MethodDelete:
		if len(params) > 0 {
			u, err := url.Parse(endpoint)
			if err != nil {
				return nil, err
			}
			q := u.Query()
			for k, v := range params {
				q.Set(k, fmt.Sprint(v))
			}
			u.RawQuery = q.Encode()
			endpoint = u.String()
		}
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		raw, err := json.Marshal(params)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, t.cfg.Method, endpoint, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range t.cfg.Headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

func (t *APICallTool) failure(status int, err error) apiResult {
	t.deps.Logger.Error("API request failed", "endpoint", t.cfg.Endpoint, "status", status, "error", err)
	return apiResult{StatusCode: status, Error: err.Error()}
}

func prettyJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
