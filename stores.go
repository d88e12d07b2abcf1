package ovenflow

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"os"
	"strings"
	"sync"
)

// Stable storage keys for persisted client state. Only the items and orders
// collections are persisted, nothing else from the stores.
const (
	CartStorageKey   = "ovenflow.cart"
	OrdersStorageKey = "ovenflow.orders"
)

// HistoryLimit bounds the order history to the most recent entries; the
// oldest entry is evicted first.
const HistoryLimit = 8

// CartStore is the cart contract the pipeline depends on. Mutations are
// atomic single calls; implementations must not expose raw mutable
// collections.
type CartStore interface {
	AddItem(pizzaID string, size Size, custom *Customization) (LineItem, error)
	RemoveItem(id string)
	DecrementItem(id string)
	Clear() error
	TotalItems() int
	TotalPrice() float64
	Items() []LineItem
	HydrateFromOrder(order OrderRecord) error
}

// OrderHistory is the order-history contract the pipeline depends on.
// AddOrder prepends, so Orders is ordered newest first.
type OrderHistory interface {
	AddOrder(order OrderRecord) error
	ClearOrders()
	Orders() []OrderRecord
}

// lineItemID derives a stable cart entry ID from the configuration. Two
// identical configurations always collapse onto the same ID.
func lineItemID(pizzaID string, size Size, custom *Customization) string {
	id := pizzaID + "-" + string(size)
	if custom == nil {
		return id
	}

	h := fnv.New32a()
	h.Write([]byte(strings.Join(custom.RemovedIngredients, ",")))
	h.Write([]byte{0})
	for _, ing := range custom.AddedIngredients {
		h.Write([]byte(ing.ID))
		h.Write([]byte{','})
	}
	return fmt.Sprintf("%s-%08x", id, h.Sum32())
}

// MemoryCart is a mutex-guarded CartStore pricing items through a menu
// catalog, with optional JSON snapshot persistence.
type MemoryCart struct {
	menu     *Menu
	mu       sync.Mutex
	items    []LineItem
	snapshot string
}

// NewMemoryCart creates an empty cart pricing against menu.
func NewMemoryCart(menu *Menu) *MemoryCart {
	return &MemoryCart{menu: menu}
}

type cartSnapshot struct {
	Key   string     `json:"key"`
	Items []LineItem `json:"items"`
}

// WithSnapshot enables JSON persistence at path and loads any existing
// snapshot. A missing or unreadable snapshot leaves the cart empty.
func (c *MemoryCart) WithSnapshot(path string) *MemoryCart {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot = path

	data, err := os.ReadFile(path)
	if err != nil {
		return c
	}
	var snap cartSnapshot
	if err := json.Unmarshal(data, &snap); err == nil {
		c.items = snap.Items
	}
	return c
}

// persistLocked writes the snapshot. Callers hold the mutex.
func (c *MemoryCart) persistLocked() error {
	if c.snapshot == "" {
		return nil
	}
	data, err := json.Marshal(cartSnapshot{Key: CartStorageKey, Items: c.items})
	if err != nil {
		return fmt.Errorf("encode cart snapshot: %w", err)
	}
	if err := os.WriteFile(c.snapshot, data, 0o644); err != nil {
		return fmt.Errorf("write cart snapshot: %w", err)
	}
	return nil
}

// AddItem puts one unit of the given configuration in the cart, merging
// onto an existing line when the configuration already exists.
func (c *MemoryCart) AddItem(pizzaID string, size Size, custom *Customization) (LineItem, error) {
	pizza, err := c.menu.PizzaByID(pizzaID)
	if err != nil {
		return LineItem{}, err
	}
	if !size.Valid() {
		return LineItem{}, fmt.Errorf("unknown size %q", size)
	}

	custom = sanitizeCustomization(custom.Clone())
	unit := c.menu.PriceForConfiguration(pizza, size, custom)
	id := lineItemID(pizzaID, size, custom)

	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.items {
		if c.items[i].ID == id {
			c.items[i].Quantity++
			c.items[i].LineTotal = roundCents(float64(c.items[i].Quantity) * c.items[i].UnitPrice)
			item := c.items[i].Clone()
			return item, c.persistLocked()
		}
	}

	item := LineItem{
		ID:            id,
		PizzaID:       pizzaID,
		Size:          size,
		Name:          pizza.Name,
		SizeLabel:     c.menu.SizeLabel(size),
		Quantity:      1,
		UnitPrice:     unit,
		LineTotal:     unit,
		Customization: custom,
	}
	c.items = append(c.items, item)
	return item.Clone(), c.persistLocked()
}

// RemoveItem drops an entire line from the cart.
func (c *MemoryCart) RemoveItem(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.items {
		if c.items[i].ID == id {
			c.items = append(c.items[:i], c.items[i+1:]...)
			break
		}
	}
	_ = c.persistLocked() //nolint:errcheck // removal stays applied in memory
}

// DecrementItem lowers a line's quantity by one, removing the line when it
// reaches zero.
func (c *MemoryCart) DecrementItem(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.items {
		if c.items[i].ID != id {
			continue
		}
		c.items[i].Quantity--
		if c.items[i].Quantity < 1 {
			c.items = append(c.items[:i], c.items[i+1:]...)
		} else {
			c.items[i].LineTotal = roundCents(float64(c.items[i].Quantity) * c.items[i].UnitPrice)
		}
		break
	}
	_ = c.persistLocked() //nolint:errcheck // decrement stays applied in memory
}

// Clear empties the cart. A snapshot write failure is reported so the
// pipeline can record the degraded outcome.
func (c *MemoryCart) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
	return c.persistLocked()
}

// TotalItems sums the quantities of all lines.
func (c *MemoryCart) TotalItems() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := 0
	for _, item := range c.items {
		total += item.Quantity
	}
	return total
}

// TotalPrice sums the line totals, rounded to cents.
func (c *MemoryCart) TotalPrice() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	var total float64
	for _, item := range c.items {
		total += item.LineTotal
	}
	return roundCents(total)
}

// Items returns deep copies of the cart lines in insertion order.
func (c *MemoryCart) Items() []LineItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneLineItems(c.items)
}

// HydrateFromOrder replaces the cart contents with the items of a past
// order, for "order again" flows.
func (c *MemoryCart) HydrateFromOrder(order OrderRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = cloneLineItems(order.Items)
	return c.persistLocked()
}

// MemoryHistory is a mutex-guarded OrderHistory bounded to HistoryLimit
// entries, newest first, with optional JSON snapshot persistence.
type MemoryHistory struct {
	mu       sync.Mutex
	orders   []OrderRecord
	snapshot string
}

// NewMemoryHistory creates an empty history.
func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{}
}

type historySnapshot struct {
	Key    string        `json:"key"`
	Orders []OrderRecord `json:"orders"`
}

// WithSnapshot enables JSON persistence at path and loads any existing
// snapshot.
func (h *MemoryHistory) WithSnapshot(path string) *MemoryHistory {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.snapshot = path

	data, err := os.ReadFile(path)
	if err != nil {
		return h
	}
	var snap historySnapshot
	if err := json.Unmarshal(data, &snap); err == nil {
		h.orders = snap.Orders
	}
	return h
}

func (h *MemoryHistory) persistLocked() error {
	if h.snapshot == "" {
		return nil
	}
	data, err := json.Marshal(historySnapshot{Key: OrdersStorageKey, Orders: h.orders})
	if err != nil {
		return fmt.Errorf("encode order snapshot: %w", err)
	}
	if err := os.WriteFile(h.snapshot, data, 0o644); err != nil {
		return fmt.Errorf("write order snapshot: %w", err)
	}
	return nil
}

// AddOrder prepends the order and evicts beyond HistoryLimit. The write is
// the one store mutation whose failure is fatal to a run, so a snapshot
// error rolls the in-memory prepend back and is returned.
func (h *MemoryHistory) AddOrder(order OrderRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	prev := h.orders
	next := make([]OrderRecord, 0, len(prev)+1)
	next = append(next, order.Clone())
	next = append(next, prev...)
	if len(next) > HistoryLimit {
		next = next[:HistoryLimit]
	}
	h.orders = next

	if err := h.persistLocked(); err != nil {
		h.orders = prev
		return err
	}
	return nil
}

// ClearOrders empties the history.
func (h *MemoryHistory) ClearOrders() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.orders = nil
	_ = h.persistLocked() //nolint:errcheck // clearing stays applied in memory
}

// Orders returns deep copies, newest first.
func (h *MemoryHistory) Orders() []OrderRecord {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]OrderRecord, len(h.orders))
	for i, o := range h.orders {
		out[i] = o.Clone()
	}
	return out
}
