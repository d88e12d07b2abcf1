package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/slicelab/ovenflow"
)

var chaosFlag bool

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run submission scenarios against a stub kitchen",
	Long: `Starts an in-process stub kitchen backend and walks the pipeline through
a set of scenarios: a clean submission, a cart entry missing display
metadata, an empty cart, and a kitchen outage. With --chaos the telemetry
sink is down as well, so analytics degrade too.`,
	RunE: runDemo,
}

func init() {
	demoCmd.Flags().BoolVar(&chaosFlag, "chaos", false, "fail the kitchen and the telemetry sink")
}

func runDemo(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	stub := ovenflow.NewStubKitchen()
	baseURL, shutdown, err := serveStub(stub)
	if err != nil {
		return err
	}
	defer shutdown()

	sink := ovenflow.SinkFunc(func(_ context.Context, ev ovenflow.TelemetryEvent) error {
		if chaosFlag {
			return fmt.Errorf("telemetry collector offline")
		}
		fmt.Printf("    telemetry %s/%s status=%s corr=%.8s\n", ev.Component, ev.Action, ev.Status, ev.CorrelationID)
		return nil
	})
	emitter := ovenflow.NewHookEmitter(sink)
	defer emitter.Close()

	menu := ovenflow.DefaultMenu()
	cart := ovenflow.NewMemoryCart(menu)
	history := ovenflow.NewMemoryHistory()

	svc := ovenflow.NewOrderService(ovenflow.ServiceOptions{
		Cart:      cart,
		History:   history,
		Menu:      menu,
		Kitchen:   ovenflow.NewKitchenClient(baseURL),
		Telemetry: emitter,
	})
	defer svc.Close()

	fmt.Printf("pipeline steps: %v\n", svc.Describe())

	// Scenario 1: clean submission from a freshly built cart.
	fmt.Println("\n--- clean submission ---")
	if _, err := cart.AddItem("pepperoni-classic", ovenflow.SizeMedium, nil); err != nil {
		return err
	}
	if _, err := cart.AddItem("diavola", ovenflow.SizeLarge, &ovenflow.Customization{
		RemovedIngredients: []string{"red-onion"},
		AddedIngredients:   []ovenflow.Ingredient{{ID: "gorgonzola"}},
	}); err != nil {
		return err
	}
	printResult(svc.Run(ctx, ovenflow.OrderRunInput{
		Customer:    "Ada Lovelace",
		Contact:     "ada@example.com",
		CartDetails: cart.Items(),
		CartTotal:   cart.TotalPrice(),
	}))
	fmt.Printf("  cart items after run: %d, history: %d\n", cart.TotalItems(), len(history.Orders()))

	// Scenario 2: a line item stripped of its display metadata gets healed.
	fmt.Println("\n--- incomplete line item ---")
	printResult(svc.Run(ctx, ovenflow.OrderRunInput{
		Customer: "Grace Hopper",
		Contact:  "grace@example.com",
		CartDetails: []ovenflow.LineItem{{
			PizzaID:  "margherita",
			Size:     ovenflow.SizeSmall,
			Quantity: 2,
		}},
		CartTotal: 21.60,
	}))

	// Scenario 3: empty cart is fatal.
	fmt.Println("\n--- empty cart ---")
	printResult(svc.Run(ctx, ovenflow.OrderRunInput{
		Customer: "Nobody",
		Contact:  "nobody@example.com",
	}))

	// Scenario 4: kitchen outage. Every POST and its GET fallback fail, so
	// the order commits without a receipt.
	fmt.Println("\n--- kitchen outage ---")
	stub.SetBehavior(ovenflow.StubServerError)
	if _, err := cart.AddItem("quattro-formaggi", ovenflow.SizeMedium, nil); err != nil {
		return err
	}
	printResult(svc.Run(ctx, ovenflow.OrderRunInput{
		Customer:    "Enzo Ferrari",
		Contact:     "enzo@example.com",
		CartDetails: cart.Items(),
		CartTotal:   cart.TotalPrice(),
	}))
	stub.SetBehavior(ovenflow.StubHealthy)

	fmt.Printf("\nstub kitchen handled %d requests; history holds %d order(s)\n",
		stub.Requests(), len(history.Orders()))
	return nil
}

func serveStub(stub *ovenflow.StubKitchen) (string, func(), error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, fmt.Errorf("listen for stub kitchen: %w", err)
	}
	srv := &http.Server{Handler: stub, ReadHeaderTimeout: 5 * time.Second}
	go srv.Serve(ln) //nolint:errcheck

	shutdown := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx) //nolint:errcheck
	}
	return "http://" + ln.Addr().String(), shutdown, nil
}

func printResult(res ovenflow.Result[ovenflow.OrderRecord]) {
	if res.OK {
		fmt.Printf("  ok: order %s total %.2f (%d item lines, receipt=%v)\n",
			res.Value.ID, res.Value.Total, len(res.Value.Items), res.Value.Submission != nil)
	} else {
		fmt.Printf("  failed: %v\n", res.Err)
	}
	for _, step := range res.Timeline {
		line := fmt.Sprintf("    %-24s %-9s attempts=%d", step.Step, step.Status, step.Attempts)
		if step.Err != nil {
			line += "  " + step.Err.Error()
		}
		fmt.Println(line)
	}
	if len(res.Degraded) > 0 {
		fmt.Printf("  degraded steps: %d\n", len(res.Degraded))
	}
}
