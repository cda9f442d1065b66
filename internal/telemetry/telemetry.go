// Package telemetry holds the process-wide OpenTelemetry instruments
// the Actor runtime increments around publish, subscribe, and registrar
// calls. No exporter or SDK is wired here: instruments are created
// against the global, no-op-by-default otel providers, matching how a
// library instruments itself without forcing an observability backend
// on its callers (SPEC_FULL.md §4.8).
package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/JeffersonLab/dift-sub001/public/actor"

// Instruments bundles the counters and tracer the Actor runtime uses.
type Instruments struct {
	Tracer trace.Tracer

	MessagesPublished metric.Int64Counter
	MessagesReceived  metric.Int64Counter
	RegistrarCalls    metric.Int64Counter
}

var (
	once     sync.Once
	instance *Instruments
)

// Get returns the process-wide Instruments, created lazily against
// whatever global otel providers are installed (or their no-op
// defaults) at first use.
func Get() *Instruments {
	once.Do(func() {
		meter := otel.Meter(instrumentationName)

		published, _ := meter.Int64Counter("actor.messages.published")
		received, _ := meter.Int64Counter("actor.messages.received")
		regCalls, _ := meter.Int64Counter("actor.registrar.calls")

		instance = &Instruments{
			Tracer:             otel.Tracer(instrumentationName),
			MessagesPublished:  published,
			MessagesReceived:   received,
			RegistrarCalls:     regCalls,
		}
	})
	return instance
}

// StartSpan is a convenience wrapper around Tracer.Start.
func (in *Instruments) StartSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return in.Tracer.Start(ctx, name)
}
