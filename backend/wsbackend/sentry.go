package wsbackend

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/quartzui/quartz/engine"
)

// SentryReporter forwards render panics that escaped every ErrorBoundary
// to Sentry. By the time a panic reaches the reporter the coroutine's lanes
// are cleared and the frame recorded failed, so reporting is purely an
// observability concern.
type SentryReporter struct {
	hub          *sentry.Hub
	flushTimeout time.Duration
}

// NewSentryReporter initializes Sentry with dsn and returns a reporter
// bound to the current hub. An empty dsn leaves transport disabled, which
// Sentry treats as a no-op sink, handy in development.
func NewSentryReporter(dsn string) (*SentryReporter, error) {
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		AttachStacktrace: true,
	}); err != nil {
		return nil, fmt.Errorf("sentry init: %w", err)
	}
	return &SentryReporter{hub: sentry.CurrentHub(), flushTimeout: 2 * time.Second}, nil
}

// ReportPanic implements engine.PanicReporter.
func (r *SentryReporter) ReportPanic(recovered any) {
	r.hub.Recover(recovered)
	r.hub.Flush(r.flushTimeout)
}

var _ engine.PanicReporter = (*SentryReporter)(nil)
