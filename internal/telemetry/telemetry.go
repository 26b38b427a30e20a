// Package telemetry bootstraps an optional OpenTelemetry tracer provider.
// When Init is never called the global provider stays a no-op and tracing
// costs nothing.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope for runtime spans.
const TracerName = "github.com/catherinevee/mixport"

// Init installs a stdout-exporting tracer provider and returns its shutdown
// function. Callers must invoke shutdown before exit to flush spans.
func Init(ctx context.Context) (func(context.Context) error, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}
	provider := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(provider)
	return provider.Shutdown, nil
}

// Tracer returns the runtime tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}
