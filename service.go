package ovenflow

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/zoobzio/clockz"
)

// Step names in execution order. The sequence is fixed; OrderService.Describe
// reports it for callers that want to correlate timelines.
const (
	StepValidateInput          = "validateInput"
	StepValidateCustomer       = "validateCustomer"
	StepValidateCart           = "validateCart"
	StepGenerateOrderReference = "generateOrderReference"
	StepPersistOrder           = "persistOrder"
	StepClearCart              = "clearCart"
	StepEmitAnalytics          = "emitAnalytics"
)

// Retry settings for the two unreliable collaborators.
const (
	kitchenRetryTries   = 2
	kitchenRetryBase    = 400 * time.Millisecond
	analyticsRetryTries = 2
	analyticsRetryBase  = 250 * time.Millisecond
)

// PipelineName identifies the order submission pipeline in spans and events.
const PipelineName = "order-submission"

type correlationKey struct{}

func withCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationFromContext returns the correlation ID of the run that owns
// ctx, or "" outside a run.
func CorrelationFromContext(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

// ServiceOptions configures an OrderService. Nil collaborators fall back to
// in-memory stores, the embedded menu, a NopEmitter, and the real clock. A
// nil Kitchen is valid: submissions then commit without a receipt and the
// persist step reports a degraded outcome.
type ServiceOptions struct {
	Cart      CartStore
	History   OrderHistory
	Menu      *Menu
	Kitchen   KitchenSubmitter
	Telemetry Emitter
	Clock     clockz.Clock
}

// OrderService orchestrates one order submission as a fixed sequence of
// named steps. Collaborators are explicit dependencies; the service holds no
// ambient global state, so independent instances are fully isolated.
type OrderService struct {
	cart      CartStore
	history   OrderHistory
	menu      *Menu
	kitchen   KitchenSubmitter
	telemetry Emitter
	clock     clockz.Clock
	pipeline  *Pipeline[RunContext]
}

// NewOrderService wires an OrderService from opts.
func NewOrderService(opts ServiceOptions) *OrderService {
	s := &OrderService{
		cart:      opts.Cart,
		history:   opts.History,
		menu:      opts.Menu,
		kitchen:   opts.Kitchen,
		telemetry: opts.Telemetry,
		clock:     opts.Clock,
	}
	if s.menu == nil {
		s.menu = DefaultMenu()
	}
	if s.cart == nil {
		s.cart = NewMemoryCart(s.menu)
	}
	if s.history == nil {
		s.history = NewMemoryHistory()
	}
	if s.telemetry == nil {
		s.telemetry = NopEmitter{}
	}
	if s.clock == nil {
		s.clock = clockz.RealClock
	}

	s.pipeline = NewPipeline(PipelineName,
		Step[RunContext]{Name: StepValidateInput, Run: s.validateInput},
		Step[RunContext]{Name: StepValidateCustomer, Run: s.validateCustomer},
		Step[RunContext]{Name: StepValidateCart, Run: s.validateCart},
		Step[RunContext]{Name: StepGenerateOrderReference, Run: s.generateOrderReference},
		Step[RunContext]{Name: StepPersistOrder, Run: s.persistOrder},
		Step[RunContext]{Name: StepClearCart, Run: s.clearCart},
		Step[RunContext]{Name: StepEmitAnalytics, Run: s.emitAnalytics},
	).WithClock(s.clock)

	// Step outcomes are reported per run, best-effort: a dead sink must
	// never slow down or fail a submission.
	_ = s.pipeline.OnStepComplete(func(ctx context.Context, ev StepEvent) error { //nolint:errcheck
		return s.telemetry.Report(ctx, TelemetryEvent{
			Component:     ev.Pipeline,
			Action:        ev.Step,
			Status:        string(ev.Status),
			CorrelationID: CorrelationFromContext(ctx),
			Payload: map[string]any{
				"attempts": ev.Attempts,
				"step":     fmt.Sprintf("%d/%d", ev.StepNumber, ev.TotalSteps),
			},
		})
	})

	return s
}

// Describe returns the step names in execution order.
func (s *OrderService) Describe() []string {
	return s.pipeline.Names()
}

// Pipeline exposes the underlying engine for observability wiring.
func (s *OrderService) Pipeline() *Pipeline[RunContext] {
	return s.pipeline
}

// Close shuts down the underlying engine.
func (s *OrderService) Close() {
	s.pipeline.Close()
}

// Run submits one order. It never returns an error and never panics: the
// outcome, the full per-step timeline, the degraded subsequence, and the
// run's correlation ID are all in the Result.
func (s *OrderService) Run(ctx context.Context, input OrderRunInput) Result[OrderRecord] {
	if ctx == nil {
		ctx = context.Background()
	}
	correlationID := NewCorrelationID()
	ctx = withCorrelation(ctx, correlationID)

	state, report := s.pipeline.Run(ctx, RunContext{
		OrderRunInput: input,
		CorrelationID: correlationID,
	})

	res := Result[OrderRecord]{
		Timeline:      report.Timeline,
		Degraded:      report.Degraded,
		CorrelationID: correlationID,
	}
	if report.Err != nil {
		res.Err = report.Err
		return res
	}
	if state.Order == nil {
		// Guards against a future step-ordering bug silently succeeding
		// with no artifact.
		res.Err = &StepError{
			Kind:    KindStepFailed,
			Message: "pipeline finished without an order payload",
		}
		return res
	}
	res.OK = true
	res.Value = *state.Order
	return res
}

// validateInput sanitizes the whole input. It is always the first timeline
// entry, whatever happens downstream.
func (s *OrderService) validateInput(_ context.Context, rc RunContext) (RunContext, StepResult) {
	clean, errs := SanitizeRunInput(rc.OrderRunInput)
	if len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, fe := range errs {
			msgs[i] = fe.Error()
		}
		return rc, Failed(&StepError{
			Kind:    KindInputInvalid,
			Message: "input rejected: " + strings.Join(msgs, "; "),
		})
	}
	rc.OrderRunInput = clean
	return rc, OK()
}

func (s *OrderService) validateCustomer(_ context.Context, rc RunContext) (RunContext, StepResult) {
	if rc.Customer == "" || rc.Contact == "" {
		return rc, Failed(&StepError{
			Kind:    KindCustomerDetailsMissing,
			Message: "customer name and contact are required",
		})
	}
	return rc, OK()
}

// validateCart requires a non-empty cart. Line items missing display
// metadata are not fatal: they are rehydrated from the menu catalog and the
// step reports a degraded outcome instead.
func (s *OrderService) validateCart(_ context.Context, rc RunContext) (RunContext, StepResult) {
	if len(rc.CartDetails) == 0 {
		return rc, Failed(&StepError{
			Kind:    KindEmptyCart,
			Message: "cart has no items to commit",
		})
	}

	healed := 0
	items := cloneLineItems(rc.CartDetails)
	for i := range items {
		if items[i].Name != "" && items[i].SizeLabel != "" && items[i].UnitPrice > 0 {
			continue
		}

		pizza, err := s.menu.PizzaByID(items[i].PizzaID)
		if err != nil {
			return rc, Failed(&StepError{
				Kind:    KindInputInvalid,
				Message: fmt.Sprintf("line item %d cannot be rehydrated: %v", i, err),
			})
		}

		if custom := items[i].Customization; custom != nil {
			for j := range custom.AddedIngredients {
				if cat, err := s.menu.IngredientByID(custom.AddedIngredients[j].ID); err == nil {
					custom.AddedIngredients[j] = cat
				}
			}
		}
		if items[i].Name == "" {
			items[i].Name = pizza.Name
		}
		if items[i].SizeLabel == "" {
			items[i].SizeLabel = s.menu.SizeLabel(items[i].Size)
		}
		if items[i].UnitPrice <= 0 {
			items[i].UnitPrice = s.menu.PriceForConfiguration(pizza, items[i].Size, items[i].Customization)
		}
		items[i].LineTotal = roundCents(float64(items[i].Quantity) * items[i].UnitPrice)
		if items[i].ID == "" {
			items[i].ID = lineItemID(items[i].PizzaID, items[i].Size, items[i].Customization)
		}
		healed++
	}

	rc.CartDetails = items
	if healed > 0 {
		return rc, Degraded(&StepError{
			Kind:    KindLineItemIncomplete,
			Message: fmt.Sprintf("rehydrated %d line item(s) from the menu catalog", healed),
		})
	}
	return rc, OK()
}

// generateOrderReference is pure and always succeeds: a short, time-derived,
// human-shareable ID. High-entropy enough for interactive use, not
// cryptographically unique.
func (s *OrderService) generateOrderReference(_ context.Context, rc RunContext) (RunContext, StepResult) {
	ts := strings.ToUpper(strconv.FormatInt(s.clock.Now().Unix(), 36))
	rc.OrderID = fmt.Sprintf("PZ-%s-%04X", ts, rand.IntN(0x10000)) //nolint:gosec // shareable reference, not a secret
	return rc, OK()
}

// persistOrder builds the final OrderRecord, tries to obtain a kitchen
// receipt with bounded retries, then unconditionally appends the order to
// history. Losing the kitchen's acknowledgment is acceptable degradation;
// losing the user's order record is not; only a history write failure
// aborts the run.
func (s *OrderService) persistOrder(ctx context.Context, rc RunContext) (RunContext, StepResult) {
	order := OrderRecord{
		ID:           rc.OrderID,
		Customer:     rc.Customer,
		Contact:      rc.Contact,
		Instructions: rc.Instructions,
		Total:        rc.CartTotal,
		CreatedAt:    s.clock.Now(),
		Items:        cloneLineItems(rc.CartDetails),
	}

	attempts := 1
	var submissionErr error
	if s.kitchen == nil {
		submissionErr = errors.New("no kitchen backend configured")
	} else {
		att := RetryWithBackoff(ctx, s.clock, kitchenRetryTries, kitchenRetryBase,
			func(ctx context.Context) (KitchenReceipt, error) {
				return s.kitchen.Submit(ctx, order)
			})
		attempts = att.Attempts
		if att.Err == nil {
			receipt := att.Value
			order.Submission = &receipt
		} else {
			submissionErr = att.Err
		}
	}

	if err := s.history.AddOrder(order); err != nil {
		return rc, Failed(&StepError{
			Kind:      KindPersistFailed,
			Message:   fmt.Sprintf("could not record order %s: %v", order.ID, err),
			Retryable: true,
		}).WithAttempts(attempts)
	}

	rc.Order = &order
	if submissionErr != nil {
		return rc, Degraded(&StepError{
			Kind:      KindOrderSubmissionFailed,
			Message:   fmt.Sprintf("order %s recorded without a kitchen receipt: %v", order.ID, submissionErr),
			Retryable: true,
		}).WithAttempts(attempts)
	}
	return rc, OK().WithAttempts(attempts)
}

// clearCart empties the cart. Checkout has already logically succeeded, so
// any failure here is non-fatal.
func (s *OrderService) clearCart(_ context.Context, rc RunContext) (RunContext, StepResult) {
	if err := s.cart.Clear(); err != nil {
		return rc, Degraded(&StepError{
			Kind:      KindCartClearFailed,
			Message:   fmt.Sprintf("cart not cleared: %v", err),
			Retryable: true,
		})
	}
	return rc, OK()
}

// emitAnalytics reports the committed order. Analytics is observability,
// never a blocker: every failure path degrades instead of failing.
func (s *OrderService) emitAnalytics(ctx context.Context, rc RunContext) (RunContext, StepResult) {
	event := TelemetryEvent{
		Component:     "checkout",
		Action:        "order_submitted",
		Status:        string(StatusOK),
		CorrelationID: rc.CorrelationID,
	}
	if rc.Order != nil {
		event.Payload = map[string]any{
			"orderId":    rc.Order.ID,
			"total":      rc.Order.Total,
			"itemCount":  len(rc.Order.Items),
			"hasReceipt": rc.Order.Submission != nil,
		}
	}

	att := RetryWithBackoff(ctx, s.clock, analyticsRetryTries, analyticsRetryBase,
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.telemetry.Report(ctx, event)
		})
	if att.Err != nil {
		var stepErr *StepError
		if errors.As(att.Err, &stepErr) {
			// Keep the sink's own kind when it reported one.
			return rc, Degraded(stepErr).WithAttempts(att.Attempts)
		}
		return rc, Degraded(&StepError{
			Kind:      KindAnalyticsFailed,
			Message:   fmt.Sprintf("analytics not delivered: %v", att.Err),
			Retryable: true,
		}).WithAttempts(att.Attempts)
	}
	return rc, OK().WithAttempts(att.Attempts)
}
