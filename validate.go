package ovenflow

import (
	"fmt"
	"strings"
)

// FieldError reports one schema violation found during input sanitation.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// SanitizeRunInput validates and normalizes a caller-supplied input without
// mutating it. It trims strings, rounds every monetary field to cents,
// normalizes absent instructions to the empty string, and deduplicates
// customization lists. Display metadata (name, size label) may legitimately
// be missing here; cart validation heals it later from the catalog.
//
// Sanitation is idempotent: running it on its own output returns an
// identical value and no field errors.
func SanitizeRunInput(in OrderRunInput) (OrderRunInput, []FieldError) {
	var errs []FieldError

	out := OrderRunInput{
		Customer:     strings.TrimSpace(in.Customer),
		Contact:      strings.TrimSpace(in.Contact),
		Instructions: strings.TrimSpace(in.Instructions),
		CartTotal:    roundCents(in.CartTotal),
	}
	if out.CartTotal < 0 {
		errs = append(errs, FieldError{Field: "cartTotal", Message: "must not be negative"})
	}

	out.CartDetails = make([]LineItem, 0, len(in.CartDetails))
	for i, item := range in.CartDetails {
		clean, itemErrs := sanitizeLineItem(item, fmt.Sprintf("cartDetails[%d]", i))
		out.CartDetails = append(out.CartDetails, clean)
		errs = append(errs, itemErrs...)
	}

	return out, errs
}

func sanitizeLineItem(item LineItem, field string) (LineItem, []FieldError) {
	var errs []FieldError

	out := item.Clone()
	out.ID = strings.TrimSpace(out.ID)
	out.PizzaID = strings.TrimSpace(out.PizzaID)
	out.Name = strings.TrimSpace(out.Name)
	out.SizeLabel = strings.TrimSpace(out.SizeLabel)
	out.UnitPrice = roundCents(out.UnitPrice)
	out.LineTotal = roundCents(out.LineTotal)

	if out.PizzaID == "" {
		errs = append(errs, FieldError{Field: field + ".pizzaId", Message: "is required"})
	}
	if !out.Size.Valid() {
		errs = append(errs, FieldError{Field: field + ".size", Message: fmt.Sprintf("unknown size %q", out.Size)})
	}
	if out.Quantity < 1 {
		errs = append(errs, FieldError{Field: field + ".quantity", Message: "must be a positive integer"})
	}
	if out.UnitPrice < 0 {
		errs = append(errs, FieldError{Field: field + ".unitPrice", Message: "must not be negative"})
	}
	if out.LineTotal < 0 {
		errs = append(errs, FieldError{Field: field + ".lineTotal", Message: "must not be negative"})
	}

	out.Customization = sanitizeCustomization(out.Customization)
	return out, errs
}

// sanitizeCustomization dedupes and cleans both ingredient lists. A
// customization with nothing left in either list normalizes to nil so that
// sanitized values compare canonically.
func sanitizeCustomization(c *Customization) *Customization {
	if c == nil {
		return nil
	}

	removed := make([]string, 0, len(c.RemovedIngredients))
	seenRemoved := make(map[string]bool, len(c.RemovedIngredients))
	for _, id := range c.RemovedIngredients {
		id = strings.TrimSpace(id)
		if id == "" || seenRemoved[id] {
			continue
		}
		seenRemoved[id] = true
		removed = append(removed, id)
	}

	added := make([]Ingredient, 0, len(c.AddedIngredients))
	seenAdded := make(map[string]bool, len(c.AddedIngredients))
	for _, ing := range c.AddedIngredients {
		ing.ID = strings.TrimSpace(ing.ID)
		ing.Name = strings.TrimSpace(ing.Name)
		ing.Price = roundCents(ing.Price)
		if ing.ID == "" || seenAdded[ing.ID] {
			continue
		}
		seenAdded[ing.ID] = true
		added = append(added, ing)
	}

	if len(removed) == 0 && len(added) == 0 {
		return nil
	}
	return &Customization{RemovedIngredients: removed, AddedIngredients: added}
}
