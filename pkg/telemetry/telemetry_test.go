package telemetry

import (
	"context"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newRecordingTracer(t *testing.T) (*Tracer, *tracetest.SpanRecorder) {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return NewTracer(provider), rec
}

func TestStartSupersteRecordsSuperstepAttribute(t *testing.T) {
	tracer, rec := newRecordingTracer(t)
	_, span := tracer.StartSuperstep(context.Background(), 3)
	span.End()

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("recorded %d spans, want 1", len(spans))
	}
	if spans[0].Name() != "superstep" {
		t.Fatalf("span name = %q, want superstep", spans[0].Name())
	}
}

func TestStartSignalAndCollectStepsAreNested(t *testing.T) {
	tracer, rec := newRecordingTracer(t)
	ctx, superstep := tracer.StartSuperstep(context.Background(), 1)
	_, signal := tracer.StartSignalStep(ctx, 0)
	signal.End()
	_, collect := tracer.StartCollectStep(ctx, 0)
	collect.End()
	superstep.End()

	spans := rec.Ended()
	if len(spans) != 3 {
		t.Fatalf("recorded %d spans, want 3", len(spans))
	}
	names := map[string]bool{}
	for _, s := range spans {
		names[s.Name()] = true
	}
	for _, want := range []string{"superstep", "signal_step", "collect_step"} {
		if !names[want] {
			t.Fatalf("missing span %q among %v", want, names)
		}
	}
}

func TestEndWithErrorRecordsErrorOnSpan(t *testing.T) {
	tracer, rec := newRecordingTracer(t)
	_, span := tracer.StartSignalStep(context.Background(), 2)
	EndWithError(span, context.Canceled)

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("recorded %d spans, want 1", len(spans))
	}
	events := spans[0].Events()
	if len(events) == 0 {
		t.Fatal("EndWithError did not record an exception event")
	}
}
