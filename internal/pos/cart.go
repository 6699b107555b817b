package pos

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"tpvrestaurante/internal/money"
)

// Cart holds lines a waiter is composing for a table before they are sent as orders.
type Cart struct {
	TableNumber int             `json:"tableNumber"`
	Lines       []Line          `json:"lines"`
	Total       decimal.Decimal `json:"total"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func NewCart(number int) *Cart {
	return &Cart{TableNumber: number, Lines: []Line{}, Total: money.Zero}
}

// Add merges the line into an identical one already in the cart, or appends it.
func (c *Cart) Add(line Line, now time.Time) Line {
	key := lineKey(line)
	for i := range c.Lines {
		if lineKey(c.Lines[i]) == key {
			c.Lines[i].Quantity += line.Quantity
			c.Total = money.ApplyDelta(c.Total, line.Total())
			c.UpdatedAt = now
			return c.Lines[i]
		}
	}
	c.Lines = append(c.Lines, line)
	c.Total = money.ApplyDelta(c.Total, line.Total())
	c.UpdatedAt = now
	return line
}

// Remove takes one unit off a cart line and reports whether the cart is now empty.
func (c *Cart) Remove(lineID string, now time.Time) (bool, error) {
	for i := range c.Lines {
		if c.Lines[i].ID != lineID {
			continue
		}
		c.Total = money.ApplyDelta(c.Total, c.Lines[i].UnitPrice.Neg())
		c.Lines[i].Quantity--
		if c.Lines[i].Quantity <= 0 {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
		}
		c.UpdatedAt = now
		return len(c.Lines) == 0, nil
	}
	return false, notFound("cart line", lineID)
}

// Split separates dish and drink lines.
func (c *Cart) Split() (dishes, drinks []Line) {
	for _, l := range c.Lines {
		switch l.Kind {
		case KindDish:
			dishes = append(dishes, l.clone())
		case KindDrink:
			drinks = append(drinks, l.clone())
		}
	}
	return dishes, drinks
}

func lineKey(l Line) string {
	raw, _ := json.Marshal(struct {
		Kind       Kind
		ItemID     string
		Unit       string
		Selections map[string]string
		Dish       *DishDetails
		Drink      *DrinkDetails
	}{l.Kind, l.ItemID, l.UnitPrice.StringFixed(2), l.Selections, l.Dish, l.Drink})
	return string(raw)
}
