package pos

import (
	"time"

	"github.com/shopspring/decimal"

	"tpvrestaurante/internal/money"
)

// Removal describes what removeLine took out of an order.
type Removal struct {
	Line        Line            // line as it was before the removal
	Quantity    int             // units removed
	Delta       decimal.Decimal // change applied to the order total, never positive
	LineDeleted bool
	Exhausted   bool // order has no lines left
}

// AddLine appends line to the order and returns the delta applied to its total.
func (o *Order) AddLine(line Line) (decimal.Decimal, error) {
	if o.Status.Terminal() {
		return decimal.Zero, invalid("order %s is %s", o.ID, o.Status)
	}
	if line.Kind != o.Kind {
		return decimal.Zero, invalid("cannot add a %s line to a %s order", line.Kind, o.Kind)
	}
	if err := line.Validate(); err != nil {
		return decimal.Zero, err
	}
	delta := line.Total()
	o.Lines = append(o.Lines, line)
	o.Total = money.ApplyDelta(o.Total, delta)
	return delta, nil
}

// RemoveLine takes one unit off the line, or the whole line when full is set or only
// one unit is left.
func (o *Order) RemoveLine(lineID string, full bool) (Removal, error) {
	idx := o.lineIndex(lineID)
	if idx < 0 {
		return Removal{}, notFound("line", lineID)
	}
	line := o.Lines[idx]
	rm := Removal{Line: line.clone()}

	if !full && line.Quantity > 1 {
		o.Lines[idx].Quantity--
		rm.Quantity = 1
		rm.Delta = line.UnitPrice.Neg()
	} else {
		o.Lines = append(o.Lines[:idx], o.Lines[idx+1:]...)
		rm.Quantity = line.Quantity
		rm.Delta = line.Total().Neg()
		rm.LineDeleted = true
	}
	o.Total = money.ApplyDelta(o.Total, rm.Delta)
	rm.Exhausted = len(o.Lines) == 0
	return rm, nil
}

func (o *Order) lineIndex(lineID string) int {
	for i := range o.Lines {
		if o.Lines[i].ID == lineID {
			return i
		}
	}
	return -1
}

// Line returns a pointer into the order's lines.
func (o *Order) Line(lineID string) (*Line, error) {
	idx := o.lineIndex(lineID)
	if idx < 0 {
		return nil, notFound("line", lineID)
	}
	return &o.Lines[idx], nil
}

// LinesTotal recomputes Σ unitPrice*quantity.
func (o *Order) LinesTotal() decimal.Decimal {
	total := money.Zero
	for _, l := range o.Lines {
		total = money.ApplyDelta(total, l.Total())
	}
	return total
}

// SetStatus applies a status transition. Cancellation has side effects on lines and is
// handled by the service.
func (o *Order) SetStatus(next OrderStatus) error {
	if !next.Valid() {
		return invalid("unknown order status %q", next)
	}
	if o.Status == next {
		return nil
	}
	if o.Status.Terminal() {
		return invalid("order %s is already %s", o.ID, o.Status)
	}
	if o.Status == OrderInProgress && next == OrderPending {
		return invalid("order %s cannot go back to %s", o.ID, next)
	}
	o.Status = next
	return nil
}

// Attached reports whether the order currently belongs to a live table.
func (o *Order) Attached() bool {
	return o.TableID != ""
}

// DetachForArchive clears the table reference and stamps the table number.
func (o *Order) DetachForArchive(tableNumber int, now time.Time) {
	o.TableID = ""
	o.ArchivedTableNumber = tableNumber
	o.UpdatedAt = now
}

// Reattach undoes DetachForArchive.
func (o *Order) Reattach(tableID string, now time.Time) {
	o.TableID = tableID
	o.ArchivedTableNumber = 0
	o.UpdatedAt = now
}

// Clone returns a deep copy.
func (o *Order) Clone() Order {
	out := *o
	out.Lines = make([]Line, len(o.Lines))
	for i, l := range o.Lines {
		out.Lines[i] = l.clone()
	}
	return out
}
