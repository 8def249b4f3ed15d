// Package observability holds the logging, metrics and tracing plumbing shared
// by the fetch pipeline and the CLI.
//
// Logs go through log/slog; [NewLogger] builds a text or JSON handler and wraps
// it so that records emitted inside an OpenTelemetry span carry trace_id and
// span_id. [Metrics] registers Prometheus collectors for diff fetches, parsed
// patches and cache lookups on a caller-supplied registerer. [Tracer] returns
// the package tracer from the global OpenTelemetry provider, which is a no-op
// until a provider is installed.
package observability
