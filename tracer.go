package authclient

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Tracer is a generic tracing interface for the client.
type Tracer interface {
	StartSpan(operationName string, opts ...interface{}) Span
}

// Span represents an in-flight trace span.
type Span interface {
	Finish()
	SetTag(key string, value interface{})
	LogFields(fields ...interface{})
}

// NoopTracer discards all spans. It is the default.
type NoopTracer struct{}

func (t *NoopTracer) StartSpan(operationName string, opts ...interface{}) Span {
	return &NoopSpan{}
}

// NoopSpan is the span produced by NoopTracer.
type NoopSpan struct{}

func (s *NoopSpan) Finish()                              {}
func (s *NoopSpan) SetTag(key string, value interface{}) {}
func (s *NoopSpan) LogFields(fields ...interface{})      {}

// OpenTelemetryTracer implements the Tracer interface using OpenTelemetry.
type OpenTelemetryTracer struct {
	tracer oteltrace.Tracer
}

// NewOpenTelemetryTracer returns a Tracer backed by OpenTelemetry.
func NewOpenTelemetryTracer(tracer oteltrace.Tracer) Tracer {
	return &OpenTelemetryTracer{tracer: tracer}
}

func (t *OpenTelemetryTracer) StartSpan(operationName string, opts ...interface{}) Span {
	_, span := t.tracer.Start(context.Background(), operationName)
	return &OpenTelemetrySpan{span: span}
}

// OpenTelemetrySpan implements the Span interface using OpenTelemetry.
type OpenTelemetrySpan struct {
	span oteltrace.Span
}

func (s *OpenTelemetrySpan) Finish() {
	s.span.End()
}

func (s *OpenTelemetrySpan) SetTag(key string, value interface{}) {
	s.span.SetAttributes(attribute.String(key, fmt.Sprint(value)))
}

func (s *OpenTelemetrySpan) LogFields(fields ...interface{}) {}
