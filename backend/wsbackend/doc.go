// Package wsbackend is the reference engine.Backend: a server-side VNode
// document standing in for the browser DOM, a cooperative task loop
// standing in for the platform scheduler, and a websocket server that
// streams every committed mutation to a thin client as patch frames.
//
// The package also carries the concrete ends of the engine's
// observability seams (Prometheus collectors for engine.Metrics, an
// OpenTelemetry adapter for engine.Tracer, a Sentry adapter for
// engine.PanicReporter) and an S3-backed template store that lets a
// fleet of instances share compiled template skeletons.
package wsbackend
