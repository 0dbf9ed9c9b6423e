// Package tracing provides OpenTelemetry spans for pipeline operations and
// Langfuse recording for LLM generations.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/codescribe-ai/codescribe/pkg/interfaces"
	"github.com/codescribe-ai/codescribe/pkg/logging"
)

// OTelTracer implements tracing using OpenTelemetry
type OTelTracer struct {
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
	enabled  bool
}

// OTelConfig contains configuration for OpenTelemetry
type OTelConfig struct {
	// Enabled determines whether OpenTelemetry tracing is enabled
	Enabled bool

	// ServiceName is the name of the service
	ServiceName string

	// CollectorEndpoint is the endpoint of the OpenTelemetry collector
	CollectorEndpoint string
}

// NewOTelTracer creates a new OpenTelemetry tracer. When disabled it
// returns a tracer whose spans are no-ops.
func NewOTelTracer(config OTelConfig) (*OTelTracer, error) {
	if !config.Enabled {
		return &OTelTracer{enabled: false}, nil
	}

	ctx := context.Background()
	exporter, err := otlptrace.New(
		ctx,
		otlptracegrpc.NewClient(
			otlptracegrpc.WithEndpoint(config.CollectorEndpoint),
			otlptracegrpc.WithInsecure(),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(config.ServiceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return &OTelTracer{
		tracer:   tp.Tracer(config.ServiceName),
		provider: tp,
		enabled:  true,
	}, nil
}

// StartSpan starts a new span. The current job ID, when present in the
// context, is attached as an attribute.
func (t *OTelTracer) StartSpan(ctx context.Context, name string) (context.Context, interfaces.Span) {
	if !t.enabled {
		return ctx, noopSpan{}
	}

	var attrs []attribute.KeyValue
	if jobID, ok := logging.JobID(ctx); ok {
		attrs = append(attrs, attribute.String("job_id", jobID))
	}

	ctx, span := t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	return ctx, otelSpan{span: span}
}

// Shutdown flushes pending spans and stops the provider
func (t *OTelTracer) Shutdown(ctx context.Context) error {
	if !t.enabled || t.provider == nil {
		return nil
	}
	return t.provider.Shutdown(ctx)
}

type otelSpan struct {
	span trace.Span
}

func (s otelSpan) End() {
	s.span.End()
}

func (s otelSpan) AddEvent(name string, attributes map[string]interface{}) {
	s.span.AddEvent(name, trace.WithAttributes(convertAttributes(attributes)...))
}

func (s otelSpan) SetAttribute(key string, value interface{}) {
	s.span.SetAttributes(convertAttribute(key, value))
}

type noopSpan struct{}

func (noopSpan) End()                                    {}
func (noopSpan) AddEvent(string, map[string]interface{}) {}
func (noopSpan) SetAttribute(string, interface{})        {}

func convertAttributes(attributes map[string]interface{}) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(attributes))
	for k, v := range attributes {
		attrs = append(attrs, convertAttribute(k, v))
	}
	return attrs
}

func convertAttribute(key string, value interface{}) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case bool:
		return attribute.Bool(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	default:
		return attribute.String(key, fmt.Sprintf("%v", v))
	}
}
