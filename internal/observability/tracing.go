package observability

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/dshills/prchanges"

// Tracer returns the tracer used by the fetch pipeline.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}
