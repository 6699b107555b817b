package pos

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"tpvrestaurante/internal/money"
)

type LineInput struct {
	ItemID     string            `json:"itemId"`
	Quantity   int               `json:"quantity"`
	Selections map[string]string `json:"selections,omitempty"`
	Dish       *DishDetails      `json:"dish,omitempty"`
	Drink      *DrinkDetails     `json:"drink,omitempty"`
}

// ResolvePrice returns the frozen unit price for tier. An empty tier means the full price.
func (c *CatalogItem) ResolvePrice(tier Tier) (decimal.Decimal, error) {
	if tier == "" {
		tier = TierFull
	}
	if !tierAllowed(c.Kind, tier) {
		return decimal.Zero, invalid("malformed price data: %s %q has no %q tier", c.Kind, c.Name, tier)
	}
	price, ok := c.Prices[tier]
	if !ok {
		return decimal.Zero, invalid("malformed price data: %s %q has no %q price", c.Kind, c.Name, tier)
	}
	if price.IsNegative() {
		return decimal.Zero, invalid("malformed price data: %s %q has negative %q price", c.Kind, c.Name, tier)
	}
	return money.Round2(price), nil
}

func tierAllowed(kind Kind, tier Tier) bool {
	for _, t := range Tiers[kind] {
		if t == tier {
			return true
		}
	}
	return false
}

// Validate checks an item before it is written to the catalog.
func (c *CatalogItem) Validate() error {
	if !c.Kind.Valid() {
		return invalid("unknown item kind %q", c.Kind)
	}
	if strings.TrimSpace(c.ID) == "" {
		return invalid("item id is required")
	}
	if strings.TrimSpace(c.Name) == "" {
		return invalid("item name is required")
	}
	if len(c.Prices) == 0 {
		return invalid("%s %q needs at least one price", c.Kind, c.Name)
	}
	for tier, price := range c.Prices {
		if !tierAllowed(c.Kind, tier) {
			return invalid("%s %q cannot carry a %q price", c.Kind, c.Name, tier)
		}
		if price.IsNegative() {
			return invalid("%s %q has negative %q price", c.Kind, c.Name, tier)
		}
	}
	for _, g := range c.Options {
		if strings.TrimSpace(g.Name) == "" || len(g.Choices) == 0 {
			return invalid("%s %q has an option group without name or choices", c.Kind, c.Name)
		}
	}
	return nil
}

// ValidateSelections checks chosen options against the item's option schema.
func (c *CatalogItem) ValidateSelections(sel map[string]string) error {
	groups := make(map[string]OptionGroup, len(c.Options))
	for _, g := range c.Options {
		groups[g.Name] = g
	}
	keys := make([]string, 0, len(sel))
	for k := range sel {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, name := range keys {
		g, ok := groups[name]
		if !ok {
			return invalid("unknown option %q for %q", name, c.Name)
		}
		if !containsFold(g.Choices, sel[name]) {
			return invalid("invalid choice %q for option %q", sel[name], name)
		}
	}
	for _, g := range c.Options {
		if g.Required && strings.TrimSpace(sel[g.Name]) == "" {
			return invalid("option %q is required for %q", g.Name, c.Name)
		}
	}
	return nil
}

func containsFold(list []string, v string) bool {
	for _, s := range list {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}

// NewLine snapshots a catalog item into an order line. The unit price is resolved now
// and never re-read from the catalog.
func NewLine(item *CatalogItem, in LineInput, id string) (Line, error) {
	if item == nil {
		return Line{}, invalid("catalog item is required")
	}
	if !item.Active {
		return Line{}, invalid("%s %q is not available", item.Kind, item.Name)
	}
	if in.Quantity < 1 {
		return Line{}, invalid("quantity must be at least 1")
	}

	line := Line{
		ID:         id,
		Kind:       item.Kind,
		ItemID:     item.ID,
		Name:       item.Name,
		Quantity:   in.Quantity,
		Status:     LinePending,
		Selections: in.Selections,
	}

	var tier Tier
	switch item.Kind {
	case KindDish:
		if in.Drink != nil {
			return Line{}, invalid("dish %q cannot carry drink details", item.Name)
		}
		details := DishDetails{}
		if in.Dish != nil {
			details = *in.Dish
			details.Without = append([]string(nil), in.Dish.Without...)
		}
		tier = details.Portion
		line.Dish = &details
	case KindDrink:
		if in.Dish != nil {
			return Line{}, invalid("drink %q cannot carry dish details", item.Name)
		}
		details := DrinkDetails{}
		if in.Drink != nil {
			details = *in.Drink
		}
		tier = details.Serving
		line.Drink = &details
	default:
		return Line{}, invalid("unknown item kind %q", item.Kind)
	}

	price, err := item.ResolvePrice(tier)
	if err != nil {
		return Line{}, err
	}
	line.UnitPrice = price

	if err := item.ValidateSelections(in.Selections); err != nil {
		return Line{}, err
	}
	return line, nil
}

// Total is the line's contribution to its order.
func (l Line) Total() decimal.Decimal {
	return money.LineTotal(l.UnitPrice, l.Quantity)
}

// Validate enforces the dish/drink variant shape.
func (l Line) Validate() error {
	switch l.Kind {
	case KindDish:
		if l.Dish == nil || l.Drink != nil {
			return invalid("line %s: dish line must carry only dish details", l.ID)
		}
	case KindDrink:
		if l.Drink == nil || l.Dish != nil {
			return invalid("line %s: drink line must carry only drink details", l.ID)
		}
	default:
		return invalid("line %s: unknown kind %q", l.ID, l.Kind)
	}
	if l.Quantity < 1 {
		return invalid("line %s: quantity must be at least 1", l.ID)
	}
	return nil
}

func (l Line) clone() Line {
	out := l
	if l.Selections != nil {
		out.Selections = make(map[string]string, len(l.Selections))
		for k, v := range l.Selections {
			out.Selections[k] = v
		}
	}
	out.SaleIDs = append([]string(nil), l.SaleIDs...)
	if l.Dish != nil {
		d := *l.Dish
		d.Without = append([]string(nil), l.Dish.Without...)
		out.Dish = &d
	}
	if l.Drink != nil {
		d := *l.Drink
		out.Drink = &d
	}
	return out
}
