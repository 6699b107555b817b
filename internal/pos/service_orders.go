package pos

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"tpvrestaurante/internal/audit"
	"tpvrestaurante/internal/money"
)

type OrderInput struct {
	Kind  Kind        `json:"kind"`
	Note  string      `json:"note,omitempty"`
	Lines []LineInput `json:"lines"`
}

type RemoveInput struct {
	Full    bool   `json:"full"`
	Cancel  bool   `json:"cancel"`
	StaffID string `json:"staffId"`
	Reason  string `json:"reason"`
}

// OrderChange is what mutating order operations return: the order and the table total
// after the change, when the order is attached.
type OrderChange struct {
	Order *Order `json:"order"`
	Table *Table `json:"table,omitempty"`
}

// CreateOrder prices every line against the catalog, records one sale per line and
// assigns the order to the open table.
func (s *Service) CreateOrder(ctx context.Context, number int, in OrderInput) (*OrderChange, error) {
	if !in.Kind.Valid() {
		return nil, invalid("unknown order kind %q", in.Kind)
	}
	if len(in.Lines) == 0 {
		return nil, invalid("an order needs at least one line")
	}
	t, err := s.tableByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if t.Status != TableOpen {
		return nil, invalid("table %d is closed", number)
	}

	now := s.now()
	o := &Order{
		ID:        s.newID(),
		Kind:      in.Kind,
		Lines:     []Line{},
		Total:     money.Zero,
		Status:    OrderPending,
		Note:      strings.TrimSpace(in.Note),
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, li := range in.Lines {
		line, err := s.buildLine(ctx, in.Kind, li)
		if err != nil {
			return nil, err
		}
		if _, err := o.AddLine(line); err != nil {
			return nil, err
		}
	}
	sales := s.salesFor(o, o.Lines)

	if err := t.AssignOrder(o, now); err != nil {
		return nil, err
	}
	if err := s.store.CreateOrder(ctx, o); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	op := "create order " + o.ID
	for _, sale := range sales {
		if err := s.store.CreateSale(ctx, sale); err != nil {
			return nil, &PartialFailureError{Op: op, Step: "record sale for line " + sale.LineID, Err: err}
		}
	}
	if err := s.store.UpdateTable(ctx, t); err != nil {
		return nil, &PartialFailureError{Op: op, Step: "assign order to table", Err: err}
	}

	s.publish(EventOrderUpdated, o)
	s.publish(EventTableUpdated, t)
	return &OrderChange{Order: o, Table: t}, nil
}

func (s *Service) buildLine(ctx context.Context, kind Kind, in LineInput) (Line, error) {
	if strings.TrimSpace(in.ItemID) == "" {
		return Line{}, invalid("itemId is required")
	}
	item, err := s.catalog.GetItem(ctx, kind, in.ItemID)
	if err != nil {
		return Line{}, err
	}
	return NewLine(item, in, s.newID())
}

// salesFor creates one sale record per line and links it from the line.
func (s *Service) salesFor(o *Order, lines []Line) []*Sale {
	now := s.now()
	out := make([]*Sale, 0, len(lines))
	for i := range o.Lines {
		l := &o.Lines[i]
		if !containsLine(lines, l.ID) {
			continue
		}
		sale := &Sale{
			ID:        s.newID(),
			ItemID:    l.ItemID,
			Kind:      l.Kind,
			Name:      l.Name,
			OrderID:   o.ID,
			LineID:    l.ID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			CreatedAt: now,
		}
		l.SaleIDs = append(l.SaleIDs, sale.ID)
		out = append(out, sale)
	}
	return out
}

func containsLine(lines []Line, id string) bool {
	for _, l := range lines {
		if l.ID == id {
			return true
		}
	}
	return false
}

func (s *Service) GetOrder(ctx context.Context, id string) (*Order, error) {
	return s.store.GetOrder(ctx, id)
}

// ListOrders resolves a table number to its id when filtering by table.
func (s *Service) ListOrders(ctx context.Context, f OrderFilter, tableNumber int) ([]*Order, error) {
	if tableNumber > 0 {
		t, err := s.store.GetTableByNumber(ctx, tableNumber)
		if err != nil {
			return nil, err
		}
		f.TableID = t.ID
	}
	return s.store.ListOrders(ctx, f)
}

// AddLine adds a priced line to an order attached to an open table.
func (s *Service) AddLine(ctx context.Context, orderID string, in LineInput) (*OrderChange, error) {
	o, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	t, err := s.attachedTable(ctx, o)
	if err != nil {
		return nil, err
	}
	if t == nil || t.Status != TableOpen {
		return nil, invalid("order %s is not attached to an open table", o.ID)
	}
	line, err := s.buildLine(ctx, o.Kind, in)
	if err != nil {
		return nil, err
	}
	delta, err := o.AddLine(line)
	if err != nil {
		return nil, err
	}
	sales := s.salesFor(o, []Line{line})
	now := s.now()
	o.UpdatedAt = now

	if err := s.store.UpdateOrder(ctx, o); err != nil {
		return nil, fmt.Errorf("update order %s: %w", o.ID, err)
	}
	op := "add line to order " + o.ID
	for _, sale := range sales {
		if err := s.store.CreateSale(ctx, sale); err != nil {
			return nil, &PartialFailureError{Op: op, Step: "record sale", Err: err}
		}
	}
	t.ApplyDelta(delta, now)
	if err := s.store.UpdateTable(ctx, t); err != nil {
		return nil, &PartialFailureError{Op: op, Step: "update table total", Err: err}
	}

	s.publish(EventOrderUpdated, o)
	s.publish(EventTableUpdated, t)
	return &OrderChange{Order: o, Table: t}, nil
}

// RemoveLine removes one unit, or the whole line when in.Full is set. Sale records follow
// the line. A staff cancellation also writes a deletion entry. An order left without
// lines is detached from its table and marked CANCELLED.
func (s *Service) RemoveLine(ctx context.Context, orderID, lineID string, in RemoveInput) (*OrderChange, error) {
	o, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if in.Cancel && strings.TrimSpace(in.StaffID) == "" {
		return nil, invalid("staffId is required to cancel a line")
	}
	t, err := s.attachedTable(ctx, o)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	rm, err := o.RemoveLine(lineID, in.Full)
	if err != nil {
		return nil, err
	}
	now := s.now()
	o.UpdatedAt = now
	if rm.Exhausted {
		o.Status = OrderCancelled
		if t != nil {
			t.DetachOrder(o, now)
		}
		o.TableID = ""
	}

	op := "remove line " + lineID + " from order " + o.ID
	if err := s.store.UpdateOrder(ctx, o); err != nil {
		return nil, fmt.Errorf("update order %s: %w", o.ID, err)
	}
	if err := s.adjustSales(ctx, rm); err != nil {
		return nil, &PartialFailureError{Op: op, Step: "adjust sale records", Err: err}
	}
	if t != nil {
		// An exhausted order was detached with a zero total, so the removed units are
		// still to be taken off the table.
		t.ApplyDelta(rm.Delta, now)
		if err := s.store.UpdateTable(ctx, t); err != nil {
			return nil, &PartialFailureError{Op: op, Step: "update table total", Err: err}
		}
	}
	if in.Cancel {
		if err := s.recordDeletion(ctx, o, t, rm, in); err != nil {
			return nil, &PartialFailureError{Op: op, Step: "record deletion", Err: err}
		}
	}

	s.publish(EventOrderUpdated, o)
	if t != nil {
		s.publish(EventTableUpdated, t)
	}
	return &OrderChange{Order: o, Table: t}, nil
}

func (s *Service) adjustSales(ctx context.Context, rm Removal) error {
	if rm.LineDeleted {
		for _, id := range rm.Line.SaleIDs {
			if err := s.store.DeleteSale(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
				return err
			}
		}
		return nil
	}
	remaining := rm.Line.Quantity - rm.Quantity
	for _, id := range rm.Line.SaleIDs {
		if err := s.store.UpdateSaleQuantity(ctx, id, remaining); err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
	}
	return nil
}

func (s *Service) recordDeletion(ctx context.Context, o *Order, t *Table, rm Removal, in RemoveInput) error {
	d := &Deletion{
		ID:          s.newID(),
		OrderID:     o.ID,
		TableNumber: o.ArchivedTableNumber,
		ItemID:      rm.Line.ItemID,
		Kind:        rm.Line.Kind,
		Name:        rm.Line.Name,
		Quantity:    rm.Quantity,
		UnitPrice:   rm.Line.UnitPrice,
		StaffID:     strings.TrimSpace(in.StaffID),
		Reason:      strings.TrimSpace(in.Reason),
		CreatedAt:   s.now(),
	}
	if t != nil {
		d.TableNumber = t.Number
	}
	if err := s.store.CreateDeletion(ctx, d); err != nil {
		return err
	}
	s.recordAudit(audit.Entry{
		Action:   audit.ActionLineCancelled,
		EntityID: o.ID,
		Data: map[string]any{
			"deletionId":  d.ID,
			"tableNumber": d.TableNumber,
			"item":        d.Name,
			"quantity":    d.Quantity,
			"unitPrice":   d.UnitPrice.StringFixed(2),
			"staffId":     d.StaffID,
			"reason":      d.Reason,
		},
	})
	return nil
}

func (s *Service) SetLineStatus(ctx context.Context, orderID, lineID string, status LineStatus) (*Order, error) {
	if !status.Valid() {
		return nil, invalid("unknown line status %q", status)
	}
	o, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	line, err := o.Line(lineID)
	if err != nil {
		return nil, err
	}
	line.Status = status
	o.UpdatedAt = s.now()
	if err := s.store.UpdateOrder(ctx, o); err != nil {
		return nil, fmt.Errorf("update order %s: %w", o.ID, err)
	}
	s.publish(EventOrderUpdated, o)
	return o, nil
}

// SetOrderStatus moves an order through PENDING, IN_PROGRESS and COMPLETED.
// CANCELLED is routed through CancelOrder.
func (s *Service) SetOrderStatus(ctx context.Context, orderID string, status OrderStatus, staffID string) (*OrderChange, error) {
	if status == OrderCancelled {
		return s.CancelOrder(ctx, orderID, staffID, "")
	}
	o, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := o.SetStatus(status); err != nil {
		return nil, err
	}
	if status == OrderCompleted {
		for i := range o.Lines {
			o.Lines[i].Status = LineReady
		}
	}
	o.UpdatedAt = s.now()
	if err := s.store.UpdateOrder(ctx, o); err != nil {
		return nil, fmt.Errorf("update order %s: %w", o.ID, err)
	}
	if status == OrderCompleted {
		s.publish(EventOrderCompleted, o)
	} else {
		s.publish(EventOrderUpdated, o)
	}
	return &OrderChange{Order: o}, nil
}

// CancelOrder removes every line as a staff cancellation. Completed orders have been
// served and possibly paid, so they cannot be cancelled.
func (s *Service) CancelOrder(ctx context.Context, orderID, staffID, reason string) (*OrderChange, error) {
	o, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status.Terminal() {
		return nil, invalid("order %s is already %s", o.ID, o.Status)
	}
	if strings.TrimSpace(staffID) == "" {
		return nil, invalid("staffId is required to cancel an order")
	}
	if reason == "" {
		reason = "order cancelled"
	}
	var change *OrderChange
	ids := make([]string, 0, len(o.Lines))
	for _, l := range o.Lines {
		ids = append(ids, l.ID)
	}
	for _, id := range ids {
		change, err = s.RemoveLine(ctx, orderID, id, RemoveInput{Full: true, Cancel: true, StaffID: staffID, Reason: reason})
		if err != nil {
			return nil, err
		}
	}
	if change == nil {
		// Order had no lines; only the status changes.
		o.Status = OrderCancelled
		o.UpdatedAt = s.now()
		if err := s.store.UpdateOrder(ctx, o); err != nil {
			return nil, fmt.Errorf("update order %s: %w", o.ID, err)
		}
		s.publish(EventOrderUpdated, o)
		change = &OrderChange{Order: o}
	}
	return change, nil
}

// DeleteOrder removes the order document, its sale records and its table reference.
func (s *Service) DeleteOrder(ctx context.Context, orderID string) error {
	o, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	t, err := s.attachedTable(ctx, o)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	op := "delete order " + o.ID
	now := s.now()
	tableID := o.TableID
	if t != nil {
		t.DetachOrder(o, now)
		if err := s.store.UpdateTable(ctx, t); err != nil {
			return fmt.Errorf("%s: update table: %w", op, err)
		}
	}
	if err := s.store.DeleteOrder(ctx, o.ID); err != nil {
		if t != nil {
			return &PartialFailureError{Op: op, Step: "delete order document", Err: err}
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	for _, l := range o.Lines {
		for _, id := range l.SaleIDs {
			if err := s.store.DeleteSale(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
				return &PartialFailureError{Op: op, Step: "delete sale " + id, Err: err}
			}
		}
	}

	s.log.Info("order deleted", zap.String("order", o.ID), zap.String("total", o.Total.StringFixed(2)))
	s.publish(EventOrderDeleted, map[string]any{"id": o.ID, "kind": o.Kind, "tableId": tableID})
	if t != nil {
		s.publish(EventTableUpdated, t)
	}
	return nil
}
