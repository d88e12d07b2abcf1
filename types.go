package ovenflow

import "time"

// Size identifies one of the three pizza sizes.
type Size string

const (
	SizeSmall  Size = "small"
	SizeMedium Size = "medium"
	SizeLarge  Size = "large"
)

// Valid reports whether s is one of the known sizes.
func (s Size) Valid() bool {
	switch s {
	case SizeSmall, SizeMedium, SizeLarge:
		return true
	}
	return false
}

// Ingredient is one catalog ingredient that can be added to a pizza.
type Ingredient struct {
	ID    string  `yaml:"id" json:"id"`
	Name  string  `yaml:"name" json:"name"`
	Price float64 `yaml:"price" json:"price"`
}

// Customization records how a line item deviates from the catalog pizza.
// Removed ingredients are referenced by ingredient ID and do not discount
// the price; added ingredients are priced individually.
type Customization struct {
	RemovedIngredients []string     `json:"removedIngredients"`
	AddedIngredients   []Ingredient `json:"addedIngredients"`
}

// Clone returns a deep copy.
func (c *Customization) Clone() *Customization {
	if c == nil {
		return nil
	}
	out := &Customization{
		RemovedIngredients: make([]string, len(c.RemovedIngredients)),
		AddedIngredients:   make([]Ingredient, len(c.AddedIngredients)),
	}
	copy(out.RemovedIngredients, c.RemovedIngredients)
	copy(out.AddedIngredients, c.AddedIngredients)
	return out
}

// LineItem is one cart entry: a pizza in a given size with optional
// customization, priced independently. Monetary fields are rounded to cents
// during input sanitation.
type LineItem struct {
	ID            string         `json:"id"`
	PizzaID       string         `json:"pizzaId"`
	Size          Size           `json:"size"`
	Name          string         `json:"name"`
	SizeLabel     string         `json:"sizeLabel"`
	Quantity      int            `json:"quantity"`
	UnitPrice     float64        `json:"unitPrice"`
	LineTotal     float64        `json:"lineTotal"`
	Customization *Customization `json:"customization,omitempty"`
}

// Clone returns a deep copy.
func (li LineItem) Clone() LineItem {
	out := li
	out.Customization = li.Customization.Clone()
	return out
}

func cloneLineItems(items []LineItem) []LineItem {
	out := make([]LineItem, len(items))
	for i, li := range items {
		out[i] = li.Clone()
	}
	return out
}

// OrderRunInput is the caller-supplied payload for one submission. It is
// treated as immutable: sanitation works on a copy.
type OrderRunInput struct {
	Customer     string
	Contact      string
	Instructions string
	CartDetails  []LineItem
	CartTotal    float64
}

// RunContext is the state threaded through one pipeline run. It is owned
// exclusively by that run; each step returns an updated copy and the
// pipeline merges it forward (last write wins).
type RunContext struct {
	OrderRunInput
	CorrelationID string
	OrderID       string
	Order         *OrderRecord
}

// KitchenReceipt is the acceptance payload from the mock kitchen endpoint.
// ReceivedAt is stamped from the local clock, independent of the server.
type KitchenReceipt struct {
	Status               string    `json:"status"`
	Message              string    `json:"message"`
	KitchenReference     string    `json:"kitchenReference"`
	EstimatedPrepMinutes int       `json:"estimatedPrepMinutes"`
	ReceivedAt           time.Time `json:"receivedAt"`
}

// OrderRecord is the persisted artifact of a successful run. It is created
// once and never mutated after creation; Submission stays nil when the
// kitchen never acknowledged the order.
type OrderRecord struct {
	ID           string          `json:"id"`
	Customer     string          `json:"customer"`
	Contact      string          `json:"contact"`
	Instructions string          `json:"instructions"`
	Total        float64         `json:"total"`
	CreatedAt    time.Time       `json:"createdAt"`
	Items        []LineItem      `json:"items"`
	Submission   *KitchenReceipt `json:"submission,omitempty"`
}

// Clone returns a deep copy so history snapshots cannot be mutated through
// shared slices.
func (o OrderRecord) Clone() OrderRecord {
	out := o
	out.Items = cloneLineItems(o.Items)
	if o.Submission != nil {
		sub := *o.Submission
		out.Submission = &sub
	}
	return out
}
