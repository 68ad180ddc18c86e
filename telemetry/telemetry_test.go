package telemetry

import (
	"context"
	"testing"
)

func TestSetupExporterNoneReturnsNoopShutdown(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{Exporter: ExporterNone})
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	if shutdown == nil {
		t.Fatal("expected a non-nil shutdown func even for the none exporter")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("expected the none-exporter shutdown to be a no-op, got %v", err)
	}
}

func TestSetupExporterStdoutSucceeds(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{Exporter: ExporterStdout, ServiceName: "filecarver-test"})
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	defer shutdown(context.Background())
	if shutdown == nil {
		t.Fatal("expected a non-nil shutdown func")
	}
}

func TestSetupUnknownExporterErrors(t *testing.T) {
	_, err := Setup(context.Background(), Config{Exporter: Exporter("bogus")})
	if err == nil {
		t.Fatal("expected an error for an unrecognized exporter")
	}
}

func TestTracerReturnsUsableTracer(t *testing.T) {
	tr := Tracer()
	if tr == nil {
		t.Fatal("expected a non-nil tracer")
	}
	_, span := tr.Start(context.Background(), "smoke")
	defer span.End()
	if !span.SpanContext().IsValid() && span.IsRecording() {
		t.Error("expected either a recording span or a valid no-op span context")
	}
}

func TestStartChunkAndStartCarveProduceSpans(t *testing.T) {
	ctx, chunkSpan := StartChunk(context.Background(), 3, 4096)
	if chunkSpan == nil {
		t.Fatal("expected a non-nil chunk span")
	}
	chunkSpan.End()

	_, carveSpan := StartCarve(ctx, "jpeg", 1024)
	if carveSpan == nil {
		t.Fatal("expected a non-nil carve span")
	}
	carveSpan.End()
}
