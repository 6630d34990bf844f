package authclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	oteltracenoop "go.opentelemetry.io/otel/trace/noop"
)

func TestNoopTracer(t *testing.T) {
	tracer := &NoopTracer{}

	span := tracer.StartSpan("authclient.verify_superuser")
	span.SetTag("outcome", "granted")
	span.LogFields("user_id", 42)
	span.Finish()
}

func TestOpenTelemetryTracer(t *testing.T) {
	tracer := NewOpenTelemetryTracer(oteltracenoop.NewTracerProvider().Tracer("test"))

	span := tracer.StartSpan("authclient.validate_app")
	assert.NotNil(t, span)
	span.SetTag("app_id", "thermostat")
	span.Finish()
}
