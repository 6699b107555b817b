package pos

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"tpvrestaurante/internal/audit"
	"tpvrestaurante/internal/guard"
	"tpvrestaurante/internal/money"
)

func (s *Service) CreateTable(ctx context.Context, number int) (*Table, error) {
	t, err := NewTable(s.newID(), number, s.now())
	if err != nil {
		return nil, err
	}
	if _, err := s.store.GetTableByNumber(ctx, number); err == nil {
		return nil, &ConflictError{Reason: fmt.Sprintf("table %d already exists", number)}
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if err := s.store.CreateTable(ctx, t); err != nil {
		return nil, fmt.Errorf("create table %d: %w", number, err)
	}
	s.publish(EventTableUpdated, t)
	return t, nil
}

func (s *Service) GetTable(ctx context.Context, number int) (*Table, error) {
	return s.tableByNumber(ctx, number)
}

func (s *Service) ListTables(ctx context.Context) ([]*Table, error) {
	tables, err := s.store.ListTables(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	for _, t := range tables {
		t.Refresh(now)
	}
	return tables, nil
}

// DeleteTable removes the table row only. Its orders are left in place.
func (s *Service) DeleteTable(ctx context.Context, number int) error {
	t, err := s.store.GetTableByNumber(ctx, number)
	if err != nil {
		return err
	}
	if err := s.store.DeleteTable(ctx, t.ID); err != nil {
		return fmt.Errorf("delete table %d: %w", number, err)
	}
	t.Close(s.now())
	s.publish(EventTableUpdated, map[string]any{"id": t.ID, "number": t.Number, "deleted": true})
	return nil
}

// OpenTable starts a new session on a closed table.
func (s *Service) OpenTable(ctx context.Context, number int) (*Table, error) {
	t, err := s.store.GetTableByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if err := t.Open(s.now()); err != nil {
		return nil, err
	}
	if err := s.store.UpdateTable(ctx, t); err != nil {
		return nil, fmt.Errorf("open table %d: %w", number, err)
	}
	s.publish(EventTableUpdated, t)
	return t, nil
}

// TableOrders returns the live orders referenced by the table, skipping dangling refs.
func (s *Service) TableOrders(ctx context.Context, number int) ([]*Order, error) {
	t, err := s.store.GetTableByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	orders, _, err := s.loadOrders(ctx, t.OrderIDs())
	return orders, err
}

func (s *Service) loadOrders(ctx context.Context, ids []string) ([]*Order, []string, error) {
	var (
		orders  []*Order
		missing []string
	)
	for _, id := range ids {
		o, err := s.store.GetOrder(ctx, id)
		if errors.Is(err, ErrNotFound) {
			missing = append(missing, id)
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("load order %s: %w", id, err)
		}
		orders = append(orders, o)
	}
	return orders, missing, nil
}

func closeGuardKey(number int) string {
	return "table:" + strconv.Itoa(number)
}

func (s *Service) acquire(ctx context.Context, number int) (func(), error) {
	release, err := s.guard.Acquire(ctx, closeGuardKey(number), s.guardTTL)
	if errors.Is(err, guard.ErrHeld) {
		return nil, &ConflictError{Reason: fmt.Sprintf("table %d is being closed or reopened", number)}
	}
	if err != nil {
		return nil, fmt.Errorf("acquire table guard: %w", err)
	}
	return release, nil
}

// CloseTable archives the table with its orders, detaches the orders and resets the
// table. A retry after a partial failure reuses the archive written for the same
// session instead of writing a second one.
func (s *Service) CloseTable(ctx context.Context, number int, p Payment) (*Archive, error) {
	release, err := s.acquire(ctx, number)
	if err != nil {
		return nil, err
	}
	defer release()

	t, err := s.tableByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if t.Status != TableOpen {
		return nil, invalid("table %d is not open", number)
	}

	orders, missing, err := s.loadOrders(ctx, t.OrderIDs())
	if err != nil {
		return nil, err
	}
	for _, id := range missing {
		s.log.Warn("close: table references a missing order", zap.Int("table", number), zap.String("order", id))
	}
	if pending := PendingOrderIDs(orders); len(pending) > 0 {
		return nil, &ValidationError{Reason: fmt.Sprintf("table %d has orders that are not completed or cancelled", number), IDs: pending}
	}
	if err := ValidatePayment(t.Total, p); err != nil {
		return nil, err
	}

	now := s.now()
	archive, err := s.store.GetArchiveBySession(ctx, t.SessionKey())
	switch {
	case err == nil:
		s.log.Info("close: resuming from existing archive", zap.Int("table", number), zap.String("archive", archive.ID))
		// The table stayed open after the failed attempt and may have taken more orders.
		if fresh := NewArchive(archive.ID, t, orders, p, now); !sameArchive(archive, fresh) {
			if err := s.store.UpdateArchive(ctx, fresh); err != nil {
				return nil, fmt.Errorf("refresh archive %s for table %d: %w", archive.ID, number, err)
			}
			s.log.Info("close: archive refreshed",
				zap.Int("table", number),
				zap.String("archive", archive.ID),
				zap.String("was", archive.Total.StringFixed(2)),
				zap.String("total", fresh.Total.StringFixed(2)),
			)
			archive = fresh
		}
	case errors.Is(err, ErrNotFound):
		archive = NewArchive(s.newID(), t, orders, p, now)
		if err := s.store.CreateArchive(ctx, archive); err != nil {
			return nil, fmt.Errorf("create archive for table %d: %w", number, err)
		}
	default:
		return nil, fmt.Errorf("look up archive for table %d: %w", number, err)
	}

	for _, o := range orders {
		o.DetachForArchive(t.Number, now)
		if err := s.store.UpdateOrder(ctx, o); err != nil {
			return nil, &PartialFailureError{Op: "close table " + strconv.Itoa(number), Step: "detach order " + o.ID, Err: err}
		}
	}

	t.Close(now)
	if err := s.store.UpdateTable(ctx, t); err != nil {
		return nil, &PartialFailureError{Op: "close table " + strconv.Itoa(number), Step: "reset table", Err: err}
	}

	s.log.Info("table closed",
		zap.Int("table", number),
		zap.String("archive", archive.ID),
		zap.String("total", archive.Total.StringFixed(2)),
		zap.String("cash", archive.Payment.Cash.StringFixed(2)),
		zap.String("card", archive.Payment.Card.StringFixed(2)),
	)
	s.publish(EventTableClosed, map[string]any{"table": t, "archive": archive})
	s.recordAudit(audit.Entry{
		Action:   audit.ActionTableClosed,
		EntityID: archive.ID,
		Data: map[string]any{
			"tableNumber": number,
			"total":       archive.Total.StringFixed(2),
			"cash":        archive.Payment.Cash.StringFixed(2),
			"card":        archive.Payment.Card.StringFixed(2),
			"orders":      archive.OrderIDs(),
		},
	})
	return archive, nil
}

// sameArchive reports whether two archives of one session record the same close.
func sameArchive(a, b *Archive) bool {
	if !money.Equal(a.Total, b.Total) || !money.Equal(a.Payment.Cash, b.Payment.Cash) || !money.Equal(a.Payment.Card, b.Payment.Card) {
		return false
	}
	ids, other := a.OrderIDs(), b.OrderIDs()
	if len(ids) != len(other) {
		return false
	}
	for i := range ids {
		if ids[i] != other[i] {
			return false
		}
	}
	return true
}

type ReopenResult struct {
	Table   *Table   `json:"table"`
	Orders  []*Order `json:"orders"`
	Skipped []string `json:"skipped,omitempty"`
}

// ReopenTable rebuilds the live table from the orders an archive references. Orders that
// no longer resolve, or that now belong to another table, are skipped and logged.
func (s *Service) ReopenTable(ctx context.Context, archiveID string) (*ReopenResult, error) {
	a, err := s.store.GetArchive(ctx, archiveID)
	if err != nil {
		return nil, err
	}
	release, err := s.acquire(ctx, a.TableNumber)
	if err != nil {
		return nil, err
	}
	defer release()

	t, err := s.store.GetTableByNumber(ctx, a.TableNumber)
	if err != nil {
		return nil, err
	}
	if t.HasOrders() {
		return nil, invalid("table %d has live orders; close it before reopening an archive", t.Number)
	}

	op := "reopen archive " + a.ID
	now := s.now()
	res := &ReopenResult{}
	for _, id := range a.OrderIDs() {
		o, err := s.store.GetOrder(ctx, id)
		if errors.Is(err, ErrNotFound) {
			s.log.Warn("reopen: skipping missing order", zap.String("archive", a.ID), zap.String("order", id))
			res.Skipped = append(res.Skipped, id)
			continue
		}
		if err != nil {
			if len(res.Orders) > 0 {
				return nil, &PartialFailureError{Op: op, Step: "load order " + id, Err: err}
			}
			return nil, fmt.Errorf("load order %s: %w", id, err)
		}
		if o.Attached() && o.TableID != t.ID {
			s.log.Warn("reopen: skipping order attached elsewhere", zap.String("archive", a.ID), zap.String("order", id), zap.String("tableId", o.TableID))
			res.Skipped = append(res.Skipped, id)
			continue
		}
		if len(o.Lines) == 0 {
			s.log.Warn("reopen: skipping exhausted order", zap.String("archive", a.ID), zap.String("order", id))
			res.Skipped = append(res.Skipped, id)
			continue
		}
		o.Reattach(t.ID, now)
		if err := s.store.UpdateOrder(ctx, o); err != nil {
			return nil, &PartialFailureError{Op: op, Step: "reattach order " + id, Err: err}
		}
		res.Orders = append(res.Orders, o)
	}

	t.Reopen(res.Orders, now)
	if err := s.store.UpdateTable(ctx, t); err != nil {
		return nil, &PartialFailureError{Op: op, Step: "reopen table", Err: err}
	}
	if err := s.store.DeleteArchive(ctx, a.ID); err != nil {
		return nil, &PartialFailureError{Op: op, Step: "delete archive", Err: err}
	}
	res.Table = t

	s.log.Info("table reopened",
		zap.Int("table", t.Number),
		zap.String("archive", a.ID),
		zap.Int("orders", len(res.Orders)),
		zap.Int("skipped", len(res.Skipped)),
		zap.String("total", t.Total.StringFixed(2)),
	)
	s.publish(EventTableReopened, res)
	s.recordAudit(audit.Entry{
		Action:   audit.ActionTableReopened,
		EntityID: a.ID,
		Data: map[string]any{
			"tableNumber":   t.Number,
			"archivedTotal": a.Total.StringFixed(2),
			"total":         t.Total.StringFixed(2),
			"skipped":       res.Skipped,
		},
	})
	return res, nil
}

func (s *Service) GetArchive(ctx context.Context, id string) (*Archive, error) {
	return s.store.GetArchive(ctx, id)
}

// ListArchives returns archives newest first. With latestOnly, only the newest archive
// of each table number is kept.
func (s *Service) ListArchives(ctx context.Context, f ArchiveFilter, latestOnly bool) ([]*Archive, error) {
	archives, err := s.store.ListArchives(ctx, f)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(archives, func(i, j int) bool {
		return archives[i].CreatedAt.After(archives[j].CreatedAt)
	})
	if !latestOnly {
		return archives, nil
	}
	seen := map[int]bool{}
	out := archives[:0]
	for _, a := range archives {
		if seen[a.TableNumber] {
			continue
		}
		seen[a.TableNumber] = true
		out = append(out, a)
	}
	return out, nil
}
