package engine

// Metrics is the narrow instrumentation seam the scheduler calls into, so
// the reactive core stays free of any one metrics vendor's import. A
// concrete implementation (backend/wsbackend's Prometheus collectors) is
// supplied through RuntimeConfig; a nil Metrics is a no-op.
type Metrics interface {
	// FrameCompleted records that a frame finished committing, with the
	// lane bitset the frame carried.
	FrameCompleted(lanes Lanes)

	// CoroutineResumed records one coroutine resume.
	CoroutineResumed()

	// ObserveCommitPhase records that n effects committed in phase,
	// taking seconds of wall time.
	ObserveCommitPhase(phase Phase, n int, seconds float64)

	// ObserveScopeMemory records a scope's approximate byte footprint,
	// sampled as coroutines resume.
	ObserveScopeMemory(bytes int64)
}

// PanicReporter receives panics that escape every ErrorBoundary in a
// coroutine's scope chain, after the scheduler has cleared the
// coroutine's pending lanes and recorded the failure on the frame.
// The reference implementation forwards to Sentry.
type PanicReporter interface {
	ReportPanic(recovered any)
}

// TraceSpan is the minimal span handle Tracer.Start returns.
type TraceSpan interface {
	End()
}

// Tracer is the narrow tracing seam the scheduler calls into around each
// flush, mirroring Metrics's role: the core depends on this interface
// only, never on an OpenTelemetry import directly.
type Tracer interface {
	Start(name string) (any, TraceSpan)
}

type noopSpan struct{}

func (noopSpan) End() {}
