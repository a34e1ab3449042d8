// Package tracing provides OpenTelemetry span helpers that are a no-op
// unless OTEL_EXPORTER_OTLP_ENDPOINT is configured.
package tracing

import (
	"context"
	"os"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "androidctl"

var (
	setupOnce sync.Once
	provider  trace.TracerProvider = otel.GetTracerProvider()
)

// Init configures the global tracer provider. When endpoint is empty, the
// default no-op provider is left in place and every Tracer() call is free.
func Init(ctx context.Context, endpoint string) (shutdown func(context.Context) error, err error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpoint(endpoint))
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx, resource.WithAttributes(attribute.String("service.name", serviceName)))
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	setupOnce.Do(func() {
		provider = tp
		otel.SetTracerProvider(tp)
	})

	return tp.Shutdown, nil
}

// InitFromEnv calls Init using OTEL_EXPORTER_OTLP_ENDPOINT, matching the
// convention every OTel SDK already honors.
func InitFromEnv(ctx context.Context) (func(context.Context) error, error) {
	return Init(ctx, os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
}

// Tracer returns a named tracer. Safe to call before Init; spans are
// discarded until a real exporter is configured.
func Tracer(name string) trace.Tracer {
	return provider.Tracer(name)
}
