package observability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"ada-engine/internal/application/port/output"
)

const instrumentationName = "ada-engine"

type Config struct {
	ServiceName string
	Environment string
	// OTLPEndpoint is a gRPC host:port. Empty keeps spans and metrics in process.
	OTLPEndpoint string
	Insecure     bool
	SampleRatio  float64
}

// Provider owns the SDK trace and meter providers and the ports built on them.
type Provider struct {
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	tracer         *Tracer
	metrics        *Metrics
	logger         output.LoggerPort
}

func New(ctx context.Context, cfg Config, logger output.LoggerPort) (*Provider, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			semconv.ServiceName(cfg.ServiceName),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	traceOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sampler(cfg.SampleRatio))),
	}
	metricOpts := []sdkmetric.Option{sdkmetric.WithResource(res)}

	if cfg.OTLPEndpoint != "" {
		traceExp, err := otlptracegrpc.New(ctx, traceExporterOptions(cfg)...)
		if err != nil {
			return nil, fmt.Errorf("create trace exporter: %w", err)
		}
		traceOpts = append(traceOpts, sdktrace.WithBatcher(traceExp, sdktrace.WithBatchTimeout(5*time.Second)))

		metricExp, err := otlpmetricgrpc.New(ctx, metricExporterOptions(cfg)...)
		if err != nil {
			return nil, fmt.Errorf("create metric exporter: %w", err)
		}
		metricOpts = append(metricOpts, sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(metricExp, sdkmetric.WithInterval(15*time.Second)),
		))
	}

	tp := sdktrace.NewTracerProvider(traceOpts...)
	mp := sdkmetric.NewMeterProvider(metricOpts...)

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	metrics, err := NewMetrics(mp.Meter(instrumentationName))
	if err != nil {
		return nil, err
	}

	if logger != nil {
		logger.Info("Observability initialized",
			"service", cfg.ServiceName,
			"endpoint", cfg.OTLPEndpoint,
			"sample_ratio", cfg.SampleRatio,
		)
	}

	return &Provider{
		tracerProvider: tp,
		meterProvider:  mp,
		tracer:         NewTracer(tp.Tracer(instrumentationName)),
		metrics:        metrics,
		logger:         logger,
	}, nil
}

func sampler(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1.0:
		return sdktrace.AlwaysSample()
	case ratio <= 0.0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.TraceIDRatioBased(ratio)
	}
}

func traceExporterOptions(cfg Config) []otlptracegrpc.Option {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	return opts
}

func metricExporterOptions(cfg Config) []otlpmetricgrpc.Option {
	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	return opts
}

func (p *Provider) Tracer() *Tracer { return p.tracer }

func (p *Provider) Metrics() *Metrics { return p.metrics }

// Shutdown flushes pending spans and metrics.
func (p *Provider) Shutdown(ctx context.Context) error {
	return errors.Join(
		p.tracerProvider.Shutdown(ctx),
		p.meterProvider.Shutdown(ctx),
	)
}

var _ output.TracerPort = (*Tracer)(nil)

type Tracer struct {
	tracer trace.Tracer
}

func NewTracer(t trace.Tracer) *Tracer {
	return &Tracer{tracer: t}
}

func (t *Tracer) Start(ctx context.Context, name string, attrs map[string]any) (context.Context, output.Span) {
	ctx, span := t.tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(toAttributes(attrs)...),
	)
	return ctx, &spanAdapter{span: span}
}

type spanAdapter struct {
	span trace.Span
}

func (s *spanAdapter) SetAttributes(attrs map[string]any) {
	s.span.SetAttributes(toAttributes(attrs)...)
}

func (s *spanAdapter) RecordError(err error) {
	if err == nil {
		return
	}
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

func (s *spanAdapter) End() {
	s.span.End()
}

var _ output.MetricsPort = (*Metrics)(nil)

// Metrics counts agent and tool invocations as agent_calls_total.
type Metrics struct {
	agentCalls metric.Int64Counter
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	counter, err := meter.Int64Counter("agent_calls_total",
		metric.WithDescription("Number of agent and tool calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create agent call counter: %w", err)
	}
	return &Metrics{agentCalls: counter}, nil
}

func (m *Metrics) AgentCalled(ctx context.Context, className, projectID string) {
	m.agentCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("class_name", className),
		attribute.String("project_id", projectID),
	))
}
