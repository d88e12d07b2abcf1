package ovenflow

import (
	"reflect"
	"testing"
)

func TestSanitizeRunInput(t *testing.T) {
	t.Run("Trims Rounds And Dedupes", func(t *testing.T) {
		in := OrderRunInput{
			Customer:     "  Ada  ",
			Contact:      " ada@example.com ",
			Instructions: "  ring twice \n",
			CartTotal:    16.004,
			CartDetails: []LineItem{{
				ID:        " pepperoni-classic-medium ",
				PizzaID:   " pepperoni-classic ",
				Size:      SizeMedium,
				Name:      " Pepperoni Classic ",
				SizeLabel: " Medium 12″ ",
				Quantity:  1,
				UnitPrice: 15.999,
				LineTotal: 15.999,
				Customization: &Customization{
					RemovedIngredients: []string{"basil", " basil ", "", "red-onion"},
					AddedIngredients: []Ingredient{
						{ID: " gorgonzola ", Name: " Gorgonzola ", Price: 2.249},
						{ID: "gorgonzola", Name: "Gorgonzola", Price: 2.25},
					},
				},
			}},
		}

		out, errs := SanitizeRunInput(in)
		if len(errs) != 0 {
			t.Fatalf("unexpected field errors: %v", errs)
		}

		if out.Customer != "Ada" || out.Contact != "ada@example.com" || out.Instructions != "ring twice" {
			t.Errorf("strings not trimmed: %+v", out)
		}
		if out.CartTotal != 16.00 {
			t.Errorf("cart total not rounded: %v", out.CartTotal)
		}

		item := out.CartDetails[0]
		if item.UnitPrice != 16.00 || item.LineTotal != 16.00 {
			t.Errorf("money not rounded to cents: %+v", item)
		}
		custom := item.Customization
		if custom == nil {
			t.Fatal("customization dropped")
		}
		if !reflect.DeepEqual(custom.RemovedIngredients, []string{"basil", "red-onion"}) {
			t.Errorf("removed ingredients not deduped: %v", custom.RemovedIngredients)
		}
		if len(custom.AddedIngredients) != 1 || custom.AddedIngredients[0].ID != "gorgonzola" {
			t.Errorf("added ingredients not deduped: %v", custom.AddedIngredients)
		}
	})

	t.Run("Sanitization Is Idempotent", func(t *testing.T) {
		in := OrderRunInput{
			Customer:  " Ada ",
			Contact:   "a@x.com",
			CartTotal: 31.503,
			CartDetails: []LineItem{{
				PizzaID:   "margherita",
				Size:      SizeSmall,
				Quantity:  2,
				UnitPrice: 10.799,
				LineTotal: 21.599,
				Customization: &Customization{
					RemovedIngredients: []string{"basil", "basil"},
				},
			}},
		}

		first, errs := SanitizeRunInput(in)
		if len(errs) != 0 {
			t.Fatalf("unexpected field errors: %v", errs)
		}
		second, errs := SanitizeRunInput(first)
		if len(errs) != 0 {
			t.Fatalf("re-sanitizing reported errors: %v", errs)
		}
		if !reflect.DeepEqual(first, second) {
			t.Errorf("sanitization not idempotent:\nfirst:  %+v\nsecond: %+v", first, second)
		}
	})

	t.Run("Empty Customization Normalizes To Nil", func(t *testing.T) {
		out, _ := SanitizeRunInput(OrderRunInput{
			Customer: "A", Contact: "b",
			CartDetails: []LineItem{{
				PizzaID: "margherita", Size: SizeSmall, Quantity: 1,
				Customization: &Customization{RemovedIngredients: []string{"  "}},
			}},
		})
		if out.CartDetails[0].Customization != nil {
			t.Errorf("expected nil customization, got %+v", out.CartDetails[0].Customization)
		}
	})

	t.Run("Schema Violations Reported Per Field", func(t *testing.T) {
		_, errs := SanitizeRunInput(OrderRunInput{
			Customer:  "Ada",
			Contact:   "a@x.com",
			CartTotal: -1,
			CartDetails: []LineItem{{
				PizzaID:   "",
				Size:      Size("extra-huge"),
				Quantity:  0,
				UnitPrice: -5,
				LineTotal: -5,
			}},
		})

		wantFields := []string{
			"cartTotal",
			"cartDetails[0].pizzaId",
			"cartDetails[0].size",
			"cartDetails[0].quantity",
			"cartDetails[0].unitPrice",
			"cartDetails[0].lineTotal",
		}
		if len(errs) != len(wantFields) {
			t.Fatalf("expected %d errors, got %d: %v", len(wantFields), len(errs), errs)
		}
		for i, want := range wantFields {
			if errs[i].Field != want {
				t.Errorf("errs[%d].Field = %s, want %s", i, errs[i].Field, want)
			}
		}
	})

	t.Run("Input Is Not Mutated", func(t *testing.T) {
		in := OrderRunInput{
			Customer: " Ada ",
			Contact:  "a@x.com",
			CartDetails: []LineItem{{
				PizzaID: "margherita", Size: SizeSmall, Quantity: 1,
				Customization: &Customization{RemovedIngredients: []string{"basil", "basil"}},
			}},
		}

		_, _ = SanitizeRunInput(in)

		if in.Customer != " Ada " {
			t.Error("caller input was mutated")
		}
		if len(in.CartDetails[0].Customization.RemovedIngredients) != 2 {
			t.Error("caller customization was mutated")
		}
	})
}
