// Package ovenflow implements the order submission pipeline for a pizza
// storefront: a multi-step, partial-failure-tolerant state machine that
// validates input, mutates injected cart and order-history stores, calls an
// unreliable mock kitchen backend with bounded retries, and emits best-effort
// telemetry.
//
// # Core Concepts
//
// Every fallible operation resolves to a three-valued StepResult rather than
// an error or a panic:
//
//   - StatusOK: the step succeeded, processing continues
//   - StatusDegraded: the step succeeded in its primary effect but recorded
//     a non-fatal problem for visibility
//   - StatusFailed: the step aborted the run; its StepError becomes the
//     pipeline's error
//
// A run never returns an error and never panics. OrderService.Run always
// produces a Result carrying the final value or StepError, the full per-step
// Timeline, the Degraded subset of that timeline, and the run's correlation
// ID, so a caller can perform a complete post-mortem of any submission.
//
// # Components
//
//   - Pipeline: a generic, fixed-order list of named steps threading a state
//     value, with tracing, metrics, and step-completion hooks
//   - RetryWithBackoff: bounded retry with linear backoff for any fallible
//     operation, driven by an injectable clock
//   - KitchenClient: client for the flaky mock order-acceptance endpoint,
//     POST with GET fallback and strict receipt validation
//   - CartStore / OrderHistory: injected mutable state with atomic
//     single-call mutations
//   - Emitter: best-effort telemetry that must never fail an order
//
// # Usage
//
//	svc := ovenflow.NewOrderService(ovenflow.ServiceOptions{
//	    Kitchen: ovenflow.NewKitchenClient(kitchenURL),
//	})
//	res := svc.Run(ctx, input)
//	if !res.OK {
//	    log.Printf("order failed: %v", res.Err)
//	}
//	for _, step := range res.Timeline {
//	    log.Printf("%s: %s (attempts=%d)", step.Step, step.Status, step.Attempts)
//	}
package ovenflow
