// Package telemetry wraps OpenTelemetry span creation around the
// engine's superstep boundaries (§4.5), independent of the console
// status feed and the Prometheus counters.
package telemetry

import (
	"context"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// TracerName identifies this package's spans in trace backends.
const TracerName = "github.com/vertexflow/sigcollect/pkg/telemetry"

// NewStdoutProvider builds a TracerProvider that writes spans to w as
// they complete, standing in for whichever OTLP backend a deployment
// picks (§4.5's "one deployment picks one trace backend" note).
func NewStdoutProvider(w io.Writer, serviceName string) (*sdktrace.TracerProvider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}
	res, err := resource.New(context.Background(),
		resource.WithAttributes(semconv.ServiceName(serviceName)),
	)
	if err != nil {
		return nil, err
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	), nil
}

// Tracer is a small facade over an otel Tracer, scoped to the spans this
// engine emits around signal/collect/superstep boundaries.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer wraps provider's tracer (or the global provider's, if
// provider is nil) under TracerName.
func NewTracer(provider trace.TracerProvider) *Tracer {
	if provider == nil {
		provider = otel.GetTracerProvider()
	}
	return &Tracer{tracer: provider.Tracer(TracerName)}
}

// StartSuperstep opens a span covering one full signal+collect round of
// the synchronous execution protocol (§4.5).
func (t *Tracer) StartSuperstep(ctx context.Context, step int64) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "superstep", trace.WithAttributes(
		attribute.Int64("sigcollect.superstep", step),
	))
}

// StartSignalStep opens a span covering one worker's signal step within
// a superstep.
func (t *Tracer) StartSignalStep(ctx context.Context, workerIndex int) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "signal_step", trace.WithAttributes(
		attribute.Int("sigcollect.worker", workerIndex),
	))
}

// StartCollectStep opens a span covering one worker's collect step
// within a superstep.
func (t *Tracer) StartCollectStep(ctx context.Context, workerIndex int) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "collect_step", trace.WithAttributes(
		attribute.Int("sigcollect.worker", workerIndex),
	))
}

// EndWithError ends span, recording err on it if non-nil (the common
// otel idiom for propagating step failures into the trace).
func EndWithError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
	}
	span.End()
}
