package ovenflow

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/zoobzio/clockz"
	"github.com/zoobzio/hookz"
	"github.com/zoobzio/metricz"
)

// Observability constants for the telemetry emitter.
const (
	// Metrics.
	TelemetryReportsTotal  = metricz.Key("telemetry.reports.total")
	TelemetryFailuresTotal = metricz.Key("telemetry.failures.total")

	// Hook event keys.
	TelemetryEventReported = hookz.Key("telemetry.reported")
)

// NewCorrelationID returns an opaque token tagging all telemetry and log
// entries of one pipeline run.
func NewCorrelationID() string {
	return uuid.NewString()
}

// TelemetryEvent is the envelope reported to the telemetry sink.
type TelemetryEvent struct {
	Component     string
	Action        string
	Status        string
	CorrelationID string
	Payload       map[string]any
	At            time.Time
}

// Emitter reports telemetry events. Implementations must be best-effort:
// a returned error tells the caller delivery failed so it can record a
// degraded outcome, but reporting must never panic and never block a run
// beyond its own bounded work.
type Emitter interface {
	Report(ctx context.Context, event TelemetryEvent) error
}

// Sink receives telemetry events, e.g. a beacon POST to a collection path.
type Sink interface {
	Send(ctx context.Context, event TelemetryEvent) error
}

// SinkFunc adapts a plain function to the Sink interface.
type SinkFunc func(ctx context.Context, event TelemetryEvent) error

// Send implements Sink.
func (f SinkFunc) Send(ctx context.Context, event TelemetryEvent) error {
	return f(ctx, event)
}

// HookEmitter delivers events to a primary sink and fans them out to
// observers registered via OnEvent. The primary sink's error is returned so
// callers can wrap Report in retry and degrade on exhaustion; observer
// delivery is fire-and-forget.
type HookEmitter struct {
	sink    Sink
	hooks   *hookz.Hooks[TelemetryEvent]
	metrics *metricz.Registry
	clock   clockz.Clock
}

// NewHookEmitter creates an emitter delivering to sink. A nil sink is valid:
// Report then only feeds observers and metrics, and always succeeds.
func NewHookEmitter(sink Sink) *HookEmitter {
	metrics := metricz.New()
	metrics.Counter(TelemetryReportsTotal)
	metrics.Counter(TelemetryFailuresTotal)

	return &HookEmitter{
		sink:    sink,
		hooks:   hookz.New[TelemetryEvent](),
		metrics: metrics,
	}
}

// WithClock sets a custom clock for timestamping, for testing.
func (e *HookEmitter) WithClock(clock clockz.Clock) *HookEmitter {
	e.clock = clock
	return e
}

// OnEvent registers a best-effort observer for every reported event.
func (e *HookEmitter) OnEvent(handler func(context.Context, TelemetryEvent) error) error {
	_, err := e.hooks.Hook(TelemetryEventReported, handler)
	return err
}

// Metrics exposes the emitter's metric registry.
func (e *HookEmitter) Metrics() *metricz.Registry {
	return e.metrics
}

// Report implements Emitter. The event's At field is stamped from the clock
// when the caller left it zero.
func (e *HookEmitter) Report(ctx context.Context, event TelemetryEvent) error {
	if event.At.IsZero() {
		event.At = e.getClock().Now()
	}

	e.metrics.Counter(TelemetryReportsTotal).Inc()
	_ = e.hooks.Emit(ctx, TelemetryEventReported, event) //nolint:errcheck // observers are best-effort

	if e.sink == nil {
		return nil
	}
	if err := e.sink.Send(ctx, event); err != nil {
		e.metrics.Counter(TelemetryFailuresTotal).Inc()
		return err
	}
	return nil
}

// Close shuts down observer delivery.
func (e *HookEmitter) Close() {
	e.hooks.Close()
}

func (e *HookEmitter) getClock() clockz.Clock {
	if e.clock == nil {
		return clockz.RealClock
	}
	return e.clock
}

// NopEmitter drops every event and always succeeds. It is the emitter for
// non-interactive contexts where no telemetry sink exists.
type NopEmitter struct{}

// Report implements Emitter.
func (NopEmitter) Report(context.Context, TelemetryEvent) error {
	return nil
}
