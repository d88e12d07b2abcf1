package ovenflow

import (
	_ "embed"
	"fmt"
	"math"

	"gopkg.in/yaml.v3"
)

//go:embed menu.yaml
var menuYAML []byte

// Pizza is one catalog entry. BasePrice is the medium price; other sizes
// scale by a fixed multiplier.
type Pizza struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	BasePrice   float64  `yaml:"basePrice"`
	Ingredients []string `yaml:"ingredients"`
}

var sizeMultipliers = map[Size]float64{
	SizeSmall:  0.8,
	SizeMedium: 1.0,
	SizeLarge:  1.25,
}

var sizeLabels = map[Size]string{
	SizeSmall:  "Small 9″",
	SizeMedium: "Medium 12″",
	SizeLarge:  "Large 15″",
}

// Menu is the storefront catalog: pizzas and add-on ingredients, loaded from
// YAML and validated on load. Lookups are read-only after construction, so
// a Menu is safe for concurrent use.
type Menu struct {
	pizzas      []Pizza
	ingredients []Ingredient
	pizzaIndex  map[string]int
	ingIndex    map[string]int
}

type menuFile struct {
	Ingredients []Ingredient `yaml:"ingredients"`
	Pizzas      []Pizza      `yaml:"pizzas"`
}

// LoadMenu parses and validates a YAML catalog.
func LoadMenu(data []byte) (*Menu, error) {
	var file menuFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse menu: %w", err)
	}

	m := &Menu{
		pizzas:      file.Pizzas,
		ingredients: file.Ingredients,
		pizzaIndex:  make(map[string]int, len(file.Pizzas)),
		ingIndex:    make(map[string]int, len(file.Ingredients)),
	}

	for i, ing := range file.Ingredients {
		if ing.ID == "" || ing.Name == "" {
			return nil, fmt.Errorf("ingredient %d: id and name are required", i)
		}
		if ing.Price < 0 {
			return nil, fmt.Errorf("ingredient %q: negative price", ing.ID)
		}
		if _, dup := m.ingIndex[ing.ID]; dup {
			return nil, fmt.Errorf("duplicate ingredient id %q", ing.ID)
		}
		m.ingIndex[ing.ID] = i
	}

	for i, p := range file.Pizzas {
		if p.ID == "" || p.Name == "" {
			return nil, fmt.Errorf("pizza %d: id and name are required", i)
		}
		if p.BasePrice <= 0 {
			return nil, fmt.Errorf("pizza %q: base price must be positive", p.ID)
		}
		if _, dup := m.pizzaIndex[p.ID]; dup {
			return nil, fmt.Errorf("duplicate pizza id %q", p.ID)
		}
		for _, ref := range p.Ingredients {
			if _, ok := m.ingIndex[ref]; !ok {
				return nil, fmt.Errorf("pizza %q: unknown ingredient %q", p.ID, ref)
			}
		}
		m.pizzaIndex[p.ID] = i
	}

	return m, nil
}

// DefaultMenu returns the embedded catalog. The embedded file is validated
// by tests, so a parse failure here is a build defect.
func DefaultMenu() *Menu {
	m, err := LoadMenu(menuYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded menu invalid: %v", err))
	}
	return m
}

// Pizzas returns the catalog entries in file order.
func (m *Menu) Pizzas() []Pizza {
	out := make([]Pizza, len(m.pizzas))
	copy(out, m.pizzas)
	return out
}

// PizzaByID looks up a pizza by its catalog ID.
func (m *Menu) PizzaByID(id string) (Pizza, error) {
	i, ok := m.pizzaIndex[id]
	if !ok {
		return Pizza{}, fmt.Errorf("unknown pizza %q", id)
	}
	return m.pizzas[i], nil
}

// IngredientByID looks up an ingredient by its catalog ID.
func (m *Menu) IngredientByID(id string) (Ingredient, error) {
	i, ok := m.ingIndex[id]
	if !ok {
		return Ingredient{}, fmt.Errorf("unknown ingredient %q", id)
	}
	return m.ingredients[i], nil
}

// SizeLabel returns the human-readable label for a size, e.g. "Medium 12″".
func (m *Menu) SizeLabel(size Size) string {
	return sizeLabels[size]
}

// PriceForConfiguration prices one unit of a pizza in the given size with
// the given customization: base price scaled by the size multiplier plus
// every added ingredient. Removed ingredients do not discount. The result
// is rounded to cents.
func (m *Menu) PriceForConfiguration(pizza Pizza, size Size, custom *Customization) float64 {
	price := pizza.BasePrice * sizeMultipliers[size]
	if custom != nil {
		for _, add := range custom.AddedIngredients {
			if cat, err := m.IngredientByID(add.ID); err == nil {
				price += cat.Price
			} else {
				price += add.Price
			}
		}
	}
	return roundCents(price)
}

// roundCents rounds a monetary amount to two decimal places.
func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
