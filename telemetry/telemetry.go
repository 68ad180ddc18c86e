// Package telemetry wires a run's OpenTelemetry tracer provider: one span
// per dispatched chunk and one span per carve attempt, exported to
// whichever backend the run configuration selects.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// TracerName identifies the tracer used for every span this package and
// the pipeline package create.
const TracerName = "github.com/caseforge/filecarver"

// Exporter selects where spans are sent.
type Exporter string

const (
	ExporterNone   Exporter = ""
	ExporterStdout Exporter = "stdout"
	ExporterJaeger Exporter = "jaeger"
	ExporterOTLP   Exporter = "otlp"
)

// Config parameterizes tracer provider setup.
type Config struct {
	Exporter    Exporter
	Endpoint    string // jaeger collector URL or OTLP gRPC target; ignored by stdout
	ServiceName string
}

// Setup installs a global TracerProvider per cfg and returns a shutdown
// function that flushes and closes the exporter. A nil-returning shutdown
// (ExporterNone) makes tracing a no-op: otel's default global tracer
// discards spans, so callers never need to branch on whether tracing is
// enabled.
func Setup(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	if cfg.Exporter == ExporterNone {
		return func(context.Context) error { return nil }, nil
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "filecarver"
	}
	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(serviceName)))
	if err != nil {
		return nil, fmt.Errorf("telemetry: build resource: %w", err)
	}

	var exporter sdktrace.SpanExporter
	switch cfg.Exporter {
	case ExporterStdout:
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	case ExporterJaeger:
		endpoint := cfg.Endpoint
		if endpoint == "" {
			endpoint = "http://localhost:14268/api/traces"
		}
		exporter, err = jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(endpoint)))
	case ExporterOTLP:
		opts := []otlptracegrpc.Option{otlptracegrpc.WithInsecure()}
		if cfg.Endpoint != "" {
			opts = append(opts, otlptracegrpc.WithEndpoint(cfg.Endpoint))
		}
		exporter, err = otlptracegrpc.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("telemetry: unknown exporter %q", cfg.Exporter)
	}
	if err != nil {
		return nil, fmt.Errorf("telemetry: build %s exporter: %w", cfg.Exporter, err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

// Tracer returns the package-wide tracer, sourced from whatever provider
// Setup installed (or the global no-op provider if Setup was never
// called).
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// StartChunk starts a span for one dispatched-and-scanned chunk.
func StartChunk(ctx context.Context, chunkID int64, size int64) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "carver.chunk", trace.WithAttributes(
		chunkIDAttr(chunkID), chunkSizeAttr(size),
	))
}

// StartCarve starts a span for one handler's ProcessHit attempt.
func StartCarve(ctx context.Context, fileType string, offset int64) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "carver.carve", trace.WithAttributes(
		fileTypeAttr(fileType), offsetAttr(offset),
	))
}
