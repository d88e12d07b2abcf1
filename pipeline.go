package ovenflow

import (
	"context"
	"fmt"
	"time"

	"github.com/zoobzio/clockz"
	"github.com/zoobzio/hookz"
	"github.com/zoobzio/metricz"
	"github.com/zoobzio/tracez"
)

// Observability constants for the pipeline engine.
const (
	// Metrics.
	PipelineRunsTotal      = metricz.Key("pipeline.runs.total")
	PipelineSuccessesTotal = metricz.Key("pipeline.successes.total")
	PipelineFailuresTotal  = metricz.Key("pipeline.failures.total")
	PipelineDegradedTotal  = metricz.Key("pipeline.degraded_steps.total")
	PipelineDurationMs     = metricz.Key("pipeline.duration.ms")

	// Spans.
	PipelineRunSpan  = tracez.Key("pipeline.run")
	PipelineStepSpan = tracez.Key("pipeline.step")

	// Tags.
	PipelineTagStepCount = tracez.Tag("pipeline.step_count")
	PipelineTagStepName  = tracez.Tag("pipeline.step_name")
	PipelineTagStatus    = tracez.Tag("pipeline.status")
	PipelineTagError     = tracez.Tag("pipeline.error")

	// Hook event keys.
	PipelineEventStepComplete = hookz.Key("pipeline.step_complete")
	PipelineEventRunComplete  = hookz.Key("pipeline.run_complete")
)

// Step is one named unit of a pipeline: it receives the current state and
// returns the next state plus a three-valued verdict. Steps must not panic;
// if one does, the engine converts the panic into a failed result.
type Step[S any] struct {
	Name string
	Run  func(context.Context, S) (S, StepResult)
}

// StepEvent is emitted via hooks as each step completes and once per run.
type StepEvent struct {
	Pipeline   string
	Step       string
	Status     StepStatus
	Attempts   int
	Err        *StepError
	StepNumber int
	TotalSteps int
	Duration   time.Duration
	Timestamp  time.Time
}

// RunReport is the engine's account of one run: the ordered timeline of
// every executed step, the degraded subsequence, and the fatal error if the
// run short-circuited.
type RunReport struct {
	Timeline []StepLog
	Degraded []StepLog
	Err      *StepError
}

// Pipeline executes a fixed, ordered list of strongly typed steps over a
// state value. One run is strictly sequential: no step begins before the
// previous one resolved. A fatal step short-circuits the loop; degraded
// steps are recorded and execution continues. The step list is immutable
// after construction, so a Pipeline is safe for concurrent runs; each run
// owns its state value.
type Pipeline[S any] struct {
	name    string
	steps   []Step[S]
	metrics *metricz.Registry
	tracer  *tracez.Tracer
	hooks   *hookz.Hooks[StepEvent]
	clock   clockz.Clock
}

// NewPipeline creates a pipeline executing steps in the given order.
func NewPipeline[S any](name string, steps ...Step[S]) *Pipeline[S] {
	metrics := metricz.New()
	metrics.Counter(PipelineRunsTotal)
	metrics.Counter(PipelineSuccessesTotal)
	metrics.Counter(PipelineFailuresTotal)
	metrics.Counter(PipelineDegradedTotal)
	metrics.Gauge(PipelineDurationMs)

	return &Pipeline[S]{
		name:    name,
		steps:   steps,
		metrics: metrics,
		tracer:  tracez.New(),
		hooks:   hookz.New[StepEvent](),
	}
}

// WithClock sets a custom clock for event timestamps, for testing.
func (p *Pipeline[S]) WithClock(clock clockz.Clock) *Pipeline[S] {
	p.clock = clock
	return p
}

// Name returns the pipeline name.
func (p *Pipeline[S]) Name() string {
	return p.name
}

// Names returns the step names in execution order.
func (p *Pipeline[S]) Names() []string {
	out := make([]string, len(p.steps))
	for i, s := range p.steps {
		out[i] = s.Name
	}
	return out
}

// Metrics exposes the engine's metric registry.
func (p *Pipeline[S]) Metrics() *metricz.Registry {
	return p.metrics
}

// Tracer exposes the engine's tracer for span collection.
func (p *Pipeline[S]) Tracer() *tracez.Tracer {
	return p.tracer
}

// OnStepComplete registers a best-effort observer fired as each step
// completes, whatever its status.
func (p *Pipeline[S]) OnStepComplete(handler func(context.Context, StepEvent) error) error {
	_, err := p.hooks.Hook(PipelineEventStepComplete, handler)
	return err
}

// OnRunComplete registers a best-effort observer fired once per run.
func (p *Pipeline[S]) OnRunComplete(handler func(context.Context, StepEvent) error) error {
	_, err := p.hooks.Hook(PipelineEventRunComplete, handler)
	return err
}

// Close shuts down the tracer and hook delivery.
func (p *Pipeline[S]) Close() {
	p.tracer.Close()
	p.hooks.Close()
}

// Run executes the steps in order against initial. It never returns an
// error and never panics: the verdict lives in the report. Once started, a
// run always proceeds to completion, there is no mid-run cancellation; the
// context is handed to steps for their own I/O.
func (p *Pipeline[S]) Run(ctx context.Context, initial S) (S, RunReport) {
	if ctx == nil {
		ctx = context.Background()
	}
	clock := p.getClock()

	p.metrics.Counter(PipelineRunsTotal).Inc()
	start := clock.Now()

	ctx, span := p.tracer.StartSpan(ctx, PipelineRunSpan)
	span.SetTag(PipelineTagStepCount, fmt.Sprintf("%d", len(p.steps)))

	report := RunReport{Timeline: make([]StepLog, 0, len(p.steps))}
	state := initial

	for i, step := range p.steps {
		stepCtx, stepSpan := p.tracer.StartSpan(ctx, PipelineStepSpan)
		stepSpan.SetTag(PipelineTagStepName, step.Name)

		stepStart := clock.Now()
		next, res := runStep(stepCtx, step, state)
		duration := clock.Since(stepStart)

		res = normalizeStepResult(res)
		stepSpan.SetTag(PipelineTagStatus, string(res.Status))
		if res.Err != nil {
			stepSpan.SetTag(PipelineTagError, res.Err.Error())
		}
		stepSpan.Finish()

		log := StepLog{
			Step:     step.Name,
			Status:   res.Status,
			Attempts: res.Attempts,
			Err:      res.Err,
			NextStep: res.NextStep,
		}
		report.Timeline = append(report.Timeline, log)

		_ = p.hooks.Emit(ctx, PipelineEventStepComplete, StepEvent{ //nolint:errcheck // observers are best-effort
			Pipeline:   p.name,
			Step:       step.Name,
			Status:     res.Status,
			Attempts:   res.Attempts,
			Err:        res.Err,
			StepNumber: i + 1,
			TotalSteps: len(p.steps),
			Duration:   duration,
			Timestamp:  clock.Now(),
		})

		switch res.Status {
		case StatusFailed:
			report.Err = res.Err
		case StatusDegraded:
			p.metrics.Counter(PipelineDegradedTotal).Inc()
			report.Degraded = append(report.Degraded, log)
			state = next
		case StatusOK:
			state = next
		}
		if report.Err != nil {
			break
		}
	}

	elapsed := clock.Since(start)
	p.metrics.Gauge(PipelineDurationMs).Set(float64(elapsed.Milliseconds()))
	if report.Err == nil {
		span.SetTag(PipelineTagStatus, string(StatusOK))
		p.metrics.Counter(PipelineSuccessesTotal).Inc()
	} else {
		span.SetTag(PipelineTagStatus, string(StatusFailed))
		span.SetTag(PipelineTagError, report.Err.Error())
		p.metrics.Counter(PipelineFailuresTotal).Inc()
	}
	span.Finish()

	_ = p.hooks.Emit(ctx, PipelineEventRunComplete, StepEvent{ //nolint:errcheck // observers are best-effort
		Pipeline:   p.name,
		Status:     runStatus(report),
		Err:        report.Err,
		TotalSteps: len(p.steps),
		StepNumber: len(report.Timeline),
		Duration:   elapsed,
		Timestamp:  clock.Now(),
	})

	return state, report
}

// runStep invokes a step, converting a panic into a failed result so that
// nothing escapes the engine.
func runStep[S any](ctx context.Context, step Step[S], state S) (next S, res StepResult) {
	defer func() {
		if r := recover(); r != nil {
			next = state
			res = Failed(&StepError{
				Kind:    KindUnknown,
				Message: fmt.Sprintf("step %s panicked: %v", step.Name, r),
			})
		}
	}()
	return step.Run(ctx, state)
}

// normalizeStepResult guards against steps reporting failure with no error
// attached, and against zero attempt counts.
func normalizeStepResult(res StepResult) StepResult {
	if res.Attempts < 1 {
		res.Attempts = 1
	}
	if res.Status == StatusFailed && res.Err == nil {
		res.Err = &StepError{Kind: KindUnknown, Message: "step failed without an error"}
	}
	if res.Status == StatusOK {
		res.Err = nil
	}
	return res
}

func runStatus(report RunReport) StepStatus {
	if report.Err != nil {
		return StatusFailed
	}
	if len(report.Degraded) > 0 {
		return StatusDegraded
	}
	return StatusOK
}

func (p *Pipeline[S]) getClock() clockz.Clock {
	if p.clock == nil {
		return clockz.RealClock
	}
	return p.clock
}
