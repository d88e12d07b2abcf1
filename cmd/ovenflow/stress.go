package main

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/slicelab/ovenflow"
)

var stressRuns int

var stressCmd = &cobra.Command{
	Use:   "stress",
	Short: "Fire concurrent double-submits at shared stores",
	Long: `Runs N pipeline submissions concurrently against one cart and one order
history, the rapid double-submit case. Store mutations are atomic single
calls, so interleavings only produce last-write-wins outcomes, never
corrupted state; the history stays bounded to its limit.`,
	RunE: runStress,
}

func init() {
	stressCmd.Flags().IntVar(&stressRuns, "runs", 12, "number of concurrent submissions")
}

func runStress(cmd *cobra.Command, _ []string) error {
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

	menu := ovenflow.DefaultMenu()
	cart := ovenflow.NewMemoryCart(menu)
	history := ovenflow.NewMemoryHistory()
	svc := ovenflow.NewOrderService(ovenflow.ServiceOptions{
		Cart:    cart,
		History: history,
		Menu:    menu,
		Kitchen: ovenflow.NewKitchenClient(baseURL),
	})
	defer svc.Close()

	if _, err := cart.AddItem("margherita", ovenflow.SizeMedium, nil); err != nil {
		return err
	}
	input := ovenflow.OrderRunInput{
		Customer:    "Impatient Clicker",
		Contact:     "double@example.com",
		CartDetails: cart.Items(),
		CartTotal:   cart.TotalPrice(),
	}

	var succeeded, degraded atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < stressRuns; i++ {
		g.Go(func() error {
			res := svc.Run(gctx, input)
			if res.OK {
				succeeded.Add(1)
			}
			if len(res.Degraded) > 0 {
				degraded.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	fmt.Printf("%d runs: %d ok, %d with degraded steps\n", stressRuns, succeeded.Load(), degraded.Load())
	fmt.Printf("history holds %d order(s) (limit %d), cart items left: %d\n",
		len(history.Orders()), ovenflow.HistoryLimit, cart.TotalItems())
	return nil
}
