package wsbackend

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/quartzui/quartz/engine"
)

// defaultTracerName is the instrumentation scope spans are created under.
const defaultTracerName = "quartz"

// Tracer adapts an OpenTelemetry tracer to the engine's narrow tracing
// seam: one span per flush, one child span per commit phase.
type Tracer struct {
	tracer trace.Tracer
	ctx    context.Context
}

// NewTracer returns a Tracer using the globally registered provider.
// Pass a non-empty name to override the instrumentation scope.
func NewTracer(name string) *Tracer {
	if name == "" {
		name = defaultTracerName
	}
	return &Tracer{tracer: otel.Tracer(name), ctx: context.Background()}
}

type otelSpan struct{ span trace.Span }

func (s otelSpan) End() { s.span.End() }

// Start implements engine.Tracer.
func (t *Tracer) Start(name string) (any, engine.TraceSpan) {
	ctx, span := t.tracer.Start(t.ctx, name)
	return ctx, otelSpan{span: span}
}

var _ engine.Tracer = (*Tracer)(nil)
