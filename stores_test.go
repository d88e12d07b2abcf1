package ovenflow

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestMemoryCart(t *testing.T) {
	menu := DefaultMenu()

	t.Run("Add And Totals", func(t *testing.T) {
		cart := NewMemoryCart(menu)

		item, err := cart.AddItem("pepperoni-classic", SizeMedium, nil)
		if err != nil {
			t.Fatalf("add failed: %v", err)
		}
		if item.UnitPrice != 16.00 || item.LineTotal != 16.00 {
			t.Errorf("unexpected pricing: %+v", item)
		}
		if item.Name != "Pepperoni Classic" || item.SizeLabel != "Medium 12″" {
			t.Errorf("display fields not filled from catalog: %+v", item)
		}

		if _, err := cart.AddItem("margherita", SizeSmall, nil); err != nil {
			t.Fatalf("add failed: %v", err)
		}

		if got := cart.TotalItems(); got != 2 {
			t.Errorf("TotalItems = %d, want 2", got)
		}
		if got := cart.TotalPrice(); got != 26.80 {
			t.Errorf("TotalPrice = %v, want 26.80", got)
		}
	})

	t.Run("Same Configuration Merges", func(t *testing.T) {
		cart := NewMemoryCart(menu)

		first, _ := cart.AddItem("margherita", SizeMedium, nil)
		second, err := cart.AddItem("margherita", SizeMedium, nil)
		if err != nil {
			t.Fatalf("add failed: %v", err)
		}

		if second.ID != first.ID {
			t.Errorf("identical configurations got different ids: %s vs %s", first.ID, second.ID)
		}
		if second.Quantity != 2 || second.LineTotal != 27.00 {
			t.Errorf("merge did not bump quantity: %+v", second)
		}
		if len(cart.Items()) != 1 {
			t.Errorf("expected a single merged line, got %d", len(cart.Items()))
		}
	})

	t.Run("Different Customizations Stay Separate", func(t *testing.T) {
		cart := NewMemoryCart(menu)

		plain, _ := cart.AddItem("margherita", SizeMedium, nil)
		extra, _ := cart.AddItem("margherita", SizeMedium, &Customization{
			AddedIngredients: []Ingredient{{ID: "gorgonzola"}},
		})

		if plain.ID == extra.ID {
			t.Error("customized line collapsed onto the plain one")
		}
		if extra.UnitPrice != 15.75 {
			t.Errorf("customized unit price = %v, want 15.75", extra.UnitPrice)
		}
		if len(cart.Items()) != 2 {
			t.Errorf("expected 2 lines, got %d", len(cart.Items()))
		}
	})

	t.Run("Decrement And Remove", func(t *testing.T) {
		cart := NewMemoryCart(menu)

		item, _ := cart.AddItem("diavola", SizeLarge, nil)
		_, _ = cart.AddItem("diavola", SizeLarge, nil)

		cart.DecrementItem(item.ID)
		if got := cart.TotalItems(); got != 1 {
			t.Errorf("after decrement TotalItems = %d, want 1", got)
		}

		cart.DecrementItem(item.ID)
		if got := cart.TotalItems(); got != 0 {
			t.Errorf("decrementing to zero should drop the line, got %d items", got)
		}

		other, _ := cart.AddItem("margherita", SizeSmall, nil)
		cart.RemoveItem(other.ID)
		if len(cart.Items()) != 0 {
			t.Error("RemoveItem left the line in the cart")
		}
	})

	t.Run("Unknown Pizza Rejected", func(t *testing.T) {
		cart := NewMemoryCart(menu)
		if _, err := cart.AddItem("calzone", SizeMedium, nil); err == nil {
			t.Error("expected error for a pizza not in the catalog")
		}
		if _, err := cart.AddItem("margherita", Size("party"), nil); err == nil {
			t.Error("expected error for an unknown size")
		}
	})

	t.Run("Items Returns Copies", func(t *testing.T) {
		cart := NewMemoryCart(menu)
		_, _ = cart.AddItem("margherita", SizeMedium, &Customization{
			RemovedIngredients: []string{"basil"},
		})

		snapshot := cart.Items()
		snapshot[0].Quantity = 99
		snapshot[0].Customization.RemovedIngredients[0] = "mozzarella"

		fresh := cart.Items()
		if fresh[0].Quantity != 1 {
			t.Error("mutating a returned item leaked into the cart")
		}
		if fresh[0].Customization.RemovedIngredients[0] != "basil" {
			t.Error("mutating a returned customization leaked into the cart")
		}
	})

	t.Run("Snapshot Round Trip", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cart.json")

		cart := NewMemoryCart(menu).WithSnapshot(path)
		if _, err := cart.AddItem("quattro-formaggi", SizeMedium, nil); err != nil {
			t.Fatalf("add failed: %v", err)
		}

		reloaded := NewMemoryCart(menu).WithSnapshot(path)
		items := reloaded.Items()
		if len(items) != 1 || items[0].PizzaID != "quattro-formaggi" {
			t.Fatalf("snapshot did not survive reload: %+v", items)
		}

		if err := reloaded.Clear(); err != nil {
			t.Fatalf("clear failed: %v", err)
		}
		again := NewMemoryCart(menu).WithSnapshot(path)
		if len(again.Items()) != 0 {
			t.Error("clear was not persisted")
		}
	})

	t.Run("Clear Reports Snapshot Failure", func(t *testing.T) {
		missing := filepath.Join(t.TempDir(), "no-such-dir", "cart.json")
		cart := NewMemoryCart(menu).WithSnapshot(missing)

		if err := cart.Clear(); err == nil {
			t.Error("expected snapshot write error from Clear")
		}
	})

	t.Run("Hydrate From Order", func(t *testing.T) {
		cart := NewMemoryCart(menu)
		_, _ = cart.AddItem("margherita", SizeSmall, nil)

		order := OrderRecord{
			ID:       "PZ-TEST-0001",
			Customer: "Ada",
			Items: []LineItem{
				{ID: "diavola-large", PizzaID: "diavola", Size: SizeLarge, Quantity: 2, UnitPrice: 20.94, LineTotal: 41.88},
			},
		}
		if err := cart.HydrateFromOrder(order); err != nil {
			t.Fatalf("hydrate failed: %v", err)
		}

		items := cart.Items()
		if len(items) != 1 || items[0].PizzaID != "diavola" || items[0].Quantity != 2 {
			t.Errorf("cart does not mirror the order: %+v", items)
		}
	})
}

func TestMemoryHistory(t *testing.T) {
	makeOrder := func(n int) OrderRecord {
		return OrderRecord{
			ID:        fmt.Sprintf("PZ-TEST-%04d", n),
			Customer:  "Ada",
			Total:     16.00,
			CreatedAt: time.Unix(int64(1_700_000_000+n), 0),
		}
	}

	t.Run("Newest First", func(t *testing.T) {
		history := NewMemoryHistory()
		for n := 1; n <= 3; n++ {
			if err := history.AddOrder(makeOrder(n)); err != nil {
				t.Fatalf("add failed: %v", err)
			}
		}

		orders := history.Orders()
		if len(orders) != 3 {
			t.Fatalf("expected 3 orders, got %d", len(orders))
		}
		for i, want := range []string{"PZ-TEST-0003", "PZ-TEST-0002", "PZ-TEST-0001"} {
			if orders[i].ID != want {
				t.Errorf("orders[%d].ID = %s, want %s", i, orders[i].ID, want)
			}
		}
	})

	t.Run("Bounded Eviction", func(t *testing.T) {
		history := NewMemoryHistory()
		for n := 1; n <= HistoryLimit+3; n++ {
			if err := history.AddOrder(makeOrder(n)); err != nil {
				t.Fatalf("add failed: %v", err)
			}
		}

		orders := history.Orders()
		if len(orders) != HistoryLimit {
			t.Fatalf("expected %d orders, got %d", HistoryLimit, len(orders))
		}
		if orders[0].ID != makeOrder(HistoryLimit+3).ID {
			t.Errorf("newest order missing, head is %s", orders[0].ID)
		}
		if orders[HistoryLimit-1].ID != makeOrder(4).ID {
			t.Errorf("oldest retained order is %s, want %s", orders[HistoryLimit-1].ID, makeOrder(4).ID)
		}
	})

	t.Run("Snapshot Round Trip", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "orders.json")

		history := NewMemoryHistory().WithSnapshot(path)
		if err := history.AddOrder(makeOrder(1)); err != nil {
			t.Fatalf("add failed: %v", err)
		}

		reloaded := NewMemoryHistory().WithSnapshot(path)
		orders := reloaded.Orders()
		if len(orders) != 1 || orders[0].ID != "PZ-TEST-0001" {
			t.Fatalf("snapshot did not survive reload: %+v", orders)
		}
	})

	t.Run("Failed Persist Rolls Back", func(t *testing.T) {
		missing := filepath.Join(t.TempDir(), "no-such-dir", "orders.json")
		history := NewMemoryHistory().WithSnapshot(missing)

		err := history.AddOrder(makeOrder(1))
		if err == nil {
			t.Fatal("expected snapshot write error")
		}
		if !strings.Contains(err.Error(), "order snapshot") {
			t.Errorf("unexpected error: %v", err)
		}
		if len(history.Orders()) != 0 {
			t.Error("failed write left the order in memory")
		}
	})

	t.Run("Clear Orders", func(t *testing.T) {
		history := NewMemoryHistory()
		_ = history.AddOrder(makeOrder(1))
		_ = history.AddOrder(makeOrder(2))

		history.ClearOrders()
		if len(history.Orders()) != 0 {
			t.Error("history not emptied")
		}
	})

	t.Run("Orders Returns Copies", func(t *testing.T) {
		history := NewMemoryHistory()
		order := makeOrder(1)
		order.Items = []LineItem{{ID: "x", PizzaID: "margherita", Size: SizeSmall, Quantity: 1}}
		if err := history.AddOrder(order); err != nil {
			t.Fatal(err)
		}

		snapshot := history.Orders()
		snapshot[0].Items[0].Quantity = 99

		if history.Orders()[0].Items[0].Quantity != 1 {
			t.Error("mutating a returned order leaked into the history")
		}
	})
}
