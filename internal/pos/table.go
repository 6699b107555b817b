package pos

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"tpvrestaurante/internal/money"
)

func NewTable(id string, number int, now time.Time) (*Table, error) {
	if number < 1 {
		return nil, invalid("table number must be positive")
	}
	return &Table{
		ID:            id,
		Number:        number,
		Status:        TableOpen,
		DishOrderIDs:  []string{},
		DrinkOrderIDs: []string{},
		Total:         money.Zero,
		OpenedAt:      now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// OrderIDs returns dish then drink order ids.
func (t *Table) OrderIDs() []string {
	out := make([]string, 0, len(t.DishOrderIDs)+len(t.DrinkOrderIDs))
	out = append(out, t.DishOrderIDs...)
	return append(out, t.DrinkOrderIDs...)
}

func (t *Table) HasOrders() bool {
	return len(t.DishOrderIDs)+len(t.DrinkOrderIDs) > 0
}

// ApplyDelta is the only way the table total changes outside of reopen.
func (t *Table) ApplyDelta(delta decimal.Decimal, now time.Time) {
	t.Total = money.ApplyDelta(t.Total, delta)
	t.UpdatedAt = now
}

// AssignOrder links the order to the table and adds its total.
func (t *Table) AssignOrder(o *Order, now time.Time) error {
	if t.Status != TableOpen {
		return invalid("table %d is closed", t.Number)
	}
	if o.Attached() && o.TableID != t.ID {
		return invalid("order %s already belongs to another table", o.ID)
	}
	refs := t.refs(o.Kind)
	if refs == nil {
		return invalid("unknown order kind %q", o.Kind)
	}
	for _, id := range *refs {
		if id == o.ID {
			return nil
		}
	}
	*refs = append(*refs, o.ID)
	o.TableID = t.ID
	o.ArchivedTableNumber = 0
	t.ApplyDelta(o.Total, now)
	return nil
}

// DetachOrder unlinks the order and subtracts its current total.
func (t *Table) DetachOrder(o *Order, now time.Time) {
	refs := t.refs(o.Kind)
	if refs == nil {
		return
	}
	for i, id := range *refs {
		if id == o.ID {
			*refs = append((*refs)[:i], (*refs)[i+1:]...)
			t.ApplyDelta(o.Total.Neg(), now)
			break
		}
	}
	if o.TableID == t.ID {
		o.TableID = ""
	}
}

func (t *Table) refs(kind Kind) *[]string {
	switch kind {
	case KindDish:
		return &t.DishOrderIDs
	case KindDrink:
		return &t.DrinkOrderIDs
	}
	return nil
}

// Close resets the table after its orders were archived.
func (t *Table) Close(now time.Time) {
	t.Status = TableClosed
	t.DishOrderIDs = []string{}
	t.DrinkOrderIDs = []string{}
	t.Total = money.Zero
	t.OpenDurationSeconds = 0
	t.UpdatedAt = now
}

// Open starts a fresh session on a closed table.
func (t *Table) Open(now time.Time) error {
	if t.Status == TableOpen {
		return invalid("table %d is already open", t.Number)
	}
	t.Status = TableOpen
	t.DishOrderIDs = []string{}
	t.DrinkOrderIDs = []string{}
	t.Total = money.Zero
	t.OpenedAt = now
	t.OpenDurationSeconds = 0
	t.UpdatedAt = now
	return nil
}

// Reopen rebuilds the table from the orders that could be reattached. The total is
// recomputed from those orders, never copied from an archive.
func (t *Table) Reopen(orders []*Order, now time.Time) {
	t.Status = TableOpen
	t.DishOrderIDs = []string{}
	t.DrinkOrderIDs = []string{}
	t.Total = money.Zero
	for _, o := range orders {
		if refs := t.refs(o.Kind); refs != nil {
			*refs = append(*refs, o.ID)
		}
		t.Total = money.ApplyDelta(t.Total, o.Total)
	}
	t.OpenedAt = now
	t.OpenDurationSeconds = 0
	t.UpdatedAt = now
}

// Refresh fills OpenDurationSeconds for reads.
func (t *Table) Refresh(now time.Time) {
	if t.Status != TableOpen || t.OpenedAt.IsZero() {
		t.OpenDurationSeconds = 0
		return
	}
	d := now.Sub(t.OpenedAt)
	if d < 0 {
		d = 0
	}
	t.OpenDurationSeconds = int64(d / time.Second)
}

// SessionKey identifies one open period of a table.
func (t *Table) SessionKey() string {
	return fmt.Sprintf("%s:%d", t.ID, t.OpenedAt.UnixMilli())
}

func (t *Table) Clone() Table {
	out := *t
	out.DishOrderIDs = append([]string{}, t.DishOrderIDs...)
	out.DrinkOrderIDs = append([]string{}, t.DrinkOrderIDs...)
	return out
}

// PendingOrderIDs lists orders that block closing.
func PendingOrderIDs(orders []*Order) []string {
	var out []string
	for _, o := range orders {
		if !o.Status.Terminal() {
			out = append(out, o.ID)
		}
	}
	return out
}

// ValidatePayment requires cash+card to match total exactly.
func ValidatePayment(total decimal.Decimal, p Payment) error {
	if p.Cash.IsNegative() || p.Card.IsNegative() {
		return invalid("payment amounts cannot be negative")
	}
	paid := money.Sum(p.Cash, p.Card)
	if !money.Equal(paid, total) {
		return invalid("payment %s does not match table total %s", paid.StringFixed(2), money.Round2(total).StringFixed(2))
	}
	return nil
}

// NewArchive deep copies the table and its orders.
func NewArchive(id string, t *Table, orders []*Order, p Payment, now time.Time) *Archive {
	snap := TableSnapshot{Table: t.Clone(), Orders: make([]Order, 0, len(orders))}
	snap.Table.Refresh(now)
	for _, o := range orders {
		snap.Orders = append(snap.Orders, o.Clone())
	}
	return &Archive{
		ID:            id,
		TableNumber:   t.Number,
		SessionKey:    t.SessionKey(),
		Snapshot:      snap,
		DishOrderIDs:  append([]string{}, t.DishOrderIDs...),
		DrinkOrderIDs: append([]string{}, t.DrinkOrderIDs...),
		Payment:       Payment{Cash: money.Round2(p.Cash), Card: money.Round2(p.Card)},
		Total:         money.Round2(t.Total),
		CreatedAt:     now,
	}
}
