package service

import (
	"context"

	"ada-engine/internal/application/port/output"
)

var (
	_ output.TracerPort  = NoopTracer{}
	_ output.MetricsPort = NoopMetrics{}
	_ output.LoggerPort  = NopLogger{}
)

type NoopTracer struct{}

func (NoopTracer) Start(ctx context.Context, _ string, _ map[string]any) (context.Context, output.Span) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) SetAttributes(map[string]any) {}
func (noopSpan) RecordError(error)            {}
func (noopSpan) End()                         {}

type NoopMetrics struct{}

func (NoopMetrics) AgentCalled(context.Context, string, string) {}

type NopLogger struct{}

func (NopLogger) Debug(string, ...any)                       {}
func (NopLogger) Info(string, ...any)                        {}
func (NopLogger) Warn(string, ...any)                        {}
func (NopLogger) Error(string, ...any)                       {}
func (l NopLogger) WithField(string, any) output.LoggerPort  { return l }
func (l NopLogger) WithFields(map[string]any) output.LoggerPort { return l }
func (NopLogger) Close() error                               { return nil }
