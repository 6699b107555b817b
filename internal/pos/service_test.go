package pos_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tpvrestaurante/internal/db"
	"tpvrestaurante/internal/pos"
	"tpvrestaurante/internal/store/sqlstore"
)

var base = time.Date(2026, 5, 2, 12, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// clock advances one second per reading so every write gets its own timestamp.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type eventLog struct {
	mu       sync.Mutex
	events   []string
	payloads []any
}

func (e *eventLog) Publish(event string, payload any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
	e.payloads = append(e.payloads, payload)
}

// last returns the payload of the most recent event with that name.
func (e *eventLog) last(event string) any {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := len(e.events) - 1; i >= 0; i-- {
		if e.events[i] == event {
			return e.payloads[i]
		}
	}
	return nil
}

func (e *eventLog) count(event string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, ev := range e.events {
		if ev == event {
			n++
		}
	}
	return n
}

// flakyStore fails the next UpdateTable call when failTableUpdate is set.
type flakyStore struct {
	*sqlstore.Store
	failTableUpdate bool
}

func (f *flakyStore) UpdateTable(ctx context.Context, t *pos.Table) error {
	if f.failTableUpdate {
		f.failTableUpdate = false
		return errors.New("connection reset by peer")
	}
	return f.Store.UpdateTable(ctx, t)
}

type fixture struct {
	svc    *pos.Service
	store  *flakyStore
	events *eventLog
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn, err := db.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	st := sqlstore.New(conn)
	ctx := context.Background()
	if err := st.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	items := []*pos.CatalogItem{
		{ID: "burger", Kind: pos.KindDish, Name: "Burger", Active: true, Prices: map[pos.Tier]decimal.Decimal{pos.TierFull: d("8.50")}},
		{ID: "croquetas", Kind: pos.KindDish, Name: "Croquetas", Active: true,
			Prices:  map[pos.Tier]decimal.Decimal{pos.TierFull: d("9.50"), pos.TierTapa: d("3.25")},
			Options: []pos.OptionGroup{{Name: "salsa", Choices: []string{"brava", "alioli"}}}},
		{ID: "cola", Kind: pos.KindDrink, Name: "Cola", Active: true, Prices: map[pos.Tier]decimal.Decimal{pos.TierFull: d("2.00")}},
	}
	for _, it := range items {
		it.CreatedAt, it.UpdatedAt = base, base
		if err := st.SaveItem(ctx, it); err != nil {
			t.Fatalf("seed %s: %v", it.ID, err)
		}
	}

	fs := &flakyStore{Store: st}
	ev := &eventLog{}
	clk := &clock{now: base}
	svc := pos.NewService(fs, st, pos.WithNotifier(ev), pos.WithClock(clk.Now))
	return &fixture{svc: svc, store: fs, events: ev}
}

func (f *fixture) table(t *testing.T, number int) *pos.Table {
	t.Helper()
	tbl, err := f.svc.CreateTable(context.Background(), number)
	if err != nil {
		t.Fatalf("CreateTable(%d): %v", number, err)
	}
	return tbl
}

func (f *fixture) order(t *testing.T, number int, kind pos.Kind, itemID string, qty int) *pos.Order {
	t.Helper()
	change, err := f.svc.CreateOrder(context.Background(), number, pos.OrderInput{
		Kind:  kind,
		Lines: []pos.LineInput{{ItemID: itemID, Quantity: qty}},
	})
	if err != nil {
		t.Fatalf("CreateOrder(%d, %s): %v", number, itemID, err)
	}
	return change.Order
}

func (f *fixture) complete(t *testing.T, orders ...*pos.Order) {
	t.Helper()
	for _, o := range orders {
		if _, err := f.svc.SetOrderStatus(context.Background(), o.ID, pos.OrderCompleted, "staff-1"); err != nil {
			t.Fatalf("complete %s: %v", o.ID, err)
		}
	}
}

// assertTotals checks that the table total is the sum of its orders and every order
// total is the sum of its lines.
func (f *fixture) assertTotals(t *testing.T, number int, want string) {
	t.Helper()
	ctx := context.Background()
	tbl, err := f.svc.GetTable(ctx, number)
	if err != nil {
		t.Fatalf("GetTable: %v", err)
	}
	orders, err := f.svc.TableOrders(ctx, number)
	if err != nil {
		t.Fatalf("TableOrders: %v", err)
	}
	sum := decimal.Zero
	for _, o := range orders {
		if !o.Total.Equal(o.LinesTotal()) {
			t.Errorf("order %s total %s != lines %s", o.ID, o.Total, o.LinesTotal())
		}
		sum = sum.Add(o.Total)
	}
	if !tbl.Total.Equal(sum) {
		t.Errorf("table %d total %s != orders %s", number, tbl.Total, sum)
	}
	if !tbl.Total.Equal(d(want)) {
		t.Errorf("table %d total = %s, want %s", number, tbl.Total, want)
	}
}

func TestTableLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.table(t, 5)
	f.assertTotals(t, 5, "0")

	// Two burgers, then a cola on a separate drink order.
	burgers := f.order(t, 5, pos.KindDish, "burger", 2)
	if !burgers.Total.Equal(d("17.00")) {
		t.Fatalf("order total = %s, want 17.00", burgers.Total)
	}
	f.assertTotals(t, 5, "17.00")
	cola := f.order(t, 5, pos.KindDrink, "cola", 1)
	f.assertTotals(t, 5, "19.00")

	// One burger sent back.
	change, err := f.svc.RemoveLine(ctx, burgers.ID, burgers.Lines[0].ID, pos.RemoveInput{})
	if err != nil {
		t.Fatalf("RemoveLine: %v", err)
	}
	if !change.Order.Total.Equal(d("8.50")) || !change.Table.Total.Equal(d("10.50")) {
		t.Fatalf("after removal order %s table %s", change.Order.Total, change.Table.Total)
	}
	f.assertTotals(t, 5, "10.50")
	f.complete(t, burgers, cola)

	// Short payment is rejected and changes nothing.
	_, err = f.svc.CloseTable(ctx, 5, pos.Payment{Cash: d("5"), Card: d("5")})
	if !pos.IsValidation(err) {
		t.Fatalf("short payment error = %v, want validation", err)
	}
	f.assertTotals(t, 5, "10.50")

	archive, err := f.svc.CloseTable(ctx, 5, pos.Payment{Cash: d("10.50"), Card: d("0")})
	if err != nil {
		t.Fatalf("CloseTable: %v", err)
	}
	if !archive.Total.Equal(d("10.50")) || len(archive.OrderIDs()) != 2 || len(archive.Snapshot.Orders) != 2 {
		t.Fatalf("archive = %+v", archive)
	}
	tbl, err := f.svc.GetTable(ctx, 5)
	if err != nil {
		t.Fatal(err)
	}
	if tbl.Status != pos.TableClosed || !tbl.Total.IsZero() || tbl.HasOrders() {
		t.Fatalf("closed table = %+v", tbl)
	}
	archived, err := f.svc.GetOrder(ctx, burgers.ID)
	if err != nil {
		t.Fatal(err)
	}
	if archived.Attached() || archived.ArchivedTableNumber != 5 {
		t.Fatalf("archived order = %+v", archived)
	}

	res, err := f.svc.ReopenTable(ctx, archive.ID)
	if err != nil {
		t.Fatalf("ReopenTable: %v", err)
	}
	if res.Table.Status != pos.TableOpen || len(res.Orders) != 2 || len(res.Skipped) != 0 {
		t.Fatalf("reopen = %+v", res)
	}
	f.assertTotals(t, 5, "10.50")
	if _, err := f.svc.GetArchive(ctx, archive.ID); !errors.Is(err, pos.ErrNotFound) {
		t.Fatalf("archive after reopen: %v, want not found", err)
	}

	if f.events.count(pos.EventTableClosed) != 1 || f.events.count(pos.EventTableReopened) != 1 {
		t.Fatalf("events = %v", f.events.events)
	}
}

func TestCloseTableRejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.table(t, 1)
	pending := f.order(t, 1, pos.KindDish, "burger", 1)

	f.table(t, 2)
	if _, err := f.svc.CloseTable(ctx, 2, pos.Payment{}); err != nil {
		t.Fatalf("close empty table: %v", err)
	}

	tests := []struct {
		name    string
		number  int
		payment pos.Payment
		check   func(error) bool
	}{
		{"pending order blocks close", 1, pos.Payment{Cash: d("8.50")}, pos.IsValidation},
		{"already closed", 2, pos.Payment{}, pos.IsValidation},
		{"unknown table", 99, pos.Payment{}, func(err error) bool { return errors.Is(err, pos.ErrNotFound) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.CloseTable(ctx, tt.number, tt.payment); !tt.check(err) {
				t.Fatalf("CloseTable error = %v", err)
			}
		})
	}

	_, err := f.svc.CloseTable(ctx, 1, pos.Payment{Cash: d("8.50")})
	var verr *pos.ValidationError
	if !errors.As(err, &verr) || len(verr.IDs) != 1 || verr.IDs[0] != pending.ID {
		t.Fatalf("pending ids = %v", err)
	}
	f.assertTotals(t, 1, "8.50")
}

func TestCloseTableResumesAfterPartialFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.table(t, 3)
	o := f.order(t, 3, pos.KindDish, "burger", 1)
	f.complete(t, o)

	f.store.failTableUpdate = true
	_, err := f.svc.CloseTable(ctx, 3, pos.Payment{Card: d("8.50")})
	if !pos.IsPartialFailure(err) {
		t.Fatalf("first close error = %v, want partial failure", err)
	}

	archive, err := f.svc.CloseTable(ctx, 3, pos.Payment{Card: d("8.50")})
	if err != nil {
		t.Fatalf("retry close: %v", err)
	}
	archives, err := f.svc.ListArchives(ctx, pos.ArchiveFilter{TableNumber: 3}, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(archives) != 1 || archives[0].ID != archive.ID {
		t.Fatalf("archives = %d, want exactly the resumed one", len(archives))
	}
	tbl, _ := f.svc.GetTable(ctx, 3)
	if tbl.Status != pos.TableClosed {
		t.Fatalf("table status = %s", tbl.Status)
	}
}

func TestCloseRetryArchivesOrdersTakenAfterFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.table(t, 21)
	first := f.order(t, 21, pos.KindDish, "burger", 1)
	f.complete(t, first)

	f.store.failTableUpdate = true
	if _, err := f.svc.CloseTable(ctx, 21, pos.Payment{Cash: d("8.50")}); !pos.IsPartialFailure(err) {
		t.Fatalf("first close error = %v, want partial failure", err)
	}
	late := f.order(t, 21, pos.KindDrink, "cola", 1)
	f.complete(t, late)

	if _, err := f.svc.CloseTable(ctx, 21, pos.Payment{Cash: d("8.50")}); !pos.IsValidation(err) {
		t.Fatalf("stale payment error = %v, want validation", err)
	}
	archive, err := f.svc.CloseTable(ctx, 21, pos.Payment{Cash: d("10.50")})
	if err != nil {
		t.Fatalf("retry close: %v", err)
	}

	stored, err := f.svc.GetArchive(ctx, archive.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !stored.Total.Equal(d("10.50")) || !stored.Payment.Cash.Equal(d("10.50")) || len(stored.OrderIDs()) != 2 {
		t.Fatalf("archive total %s cash %s orders %v", stored.Total, stored.Payment.Cash, stored.OrderIDs())
	}
	archives, _ := f.svc.ListArchives(ctx, pos.ArchiveFilter{TableNumber: 21}, false)
	if len(archives) != 1 {
		t.Fatalf("archives = %d, want 1", len(archives))
	}

	res, err := f.svc.ReopenTable(ctx, archive.ID)
	if err != nil {
		t.Fatalf("ReopenTable: %v", err)
	}
	if len(res.Orders) != 2 || len(res.Skipped) != 0 {
		t.Fatalf("reopen = %d orders, skipped %v", len(res.Orders), res.Skipped)
	}
	f.assertTotals(t, 21, "10.50")
}

func TestReopenSkipsMissingOrders(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.table(t, 4)
	keep := f.order(t, 4, pos.KindDish, "burger", 1)
	gone := f.order(t, 4, pos.KindDrink, "cola", 2)
	f.complete(t, keep, gone)
	archive, err := f.svc.CloseTable(ctx, 4, pos.Payment{Cash: d("12.50")})
	if err != nil {
		t.Fatal(err)
	}
	if err := f.svc.DeleteOrder(ctx, gone.ID); err != nil {
		t.Fatalf("DeleteOrder: %v", err)
	}

	res, err := f.svc.ReopenTable(ctx, archive.ID)
	if err != nil {
		t.Fatalf("ReopenTable: %v", err)
	}
	if len(res.Orders) != 1 || len(res.Skipped) != 1 || res.Skipped[0] != gone.ID {
		t.Fatalf("reopen = %+v", res)
	}
	// The total comes from live orders, not the archive's 12.50.
	f.assertTotals(t, 4, "8.50")
}

func TestReopenRejectsTableWithLiveOrders(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.table(t, 6)
	o := f.order(t, 6, pos.KindDish, "burger", 1)
	f.complete(t, o)
	archive, err := f.svc.CloseTable(ctx, 6, pos.Payment{Cash: d("8.50")})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.OpenTable(ctx, 6); err != nil {
		t.Fatalf("OpenTable: %v", err)
	}
	f.order(t, 6, pos.KindDrink, "cola", 1)

	if _, err := f.svc.ReopenTable(ctx, archive.ID); !pos.IsValidation(err) {
		t.Fatalf("ReopenTable error = %v, want validation", err)
	}
	if _, err := f.svc.GetArchive(ctx, archive.ID); err != nil {
		t.Fatalf("archive must survive a rejected reopen: %v", err)
	}
}

func TestOrdersOnClosedTable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.table(t, 8)
	o := f.order(t, 8, pos.KindDish, "burger", 1)
	f.complete(t, o)
	if _, err := f.svc.CloseTable(ctx, 8, pos.Payment{Cash: d("8.50")}); err != nil {
		t.Fatal(err)
	}

	_, err := f.svc.CreateOrder(ctx, 8, pos.OrderInput{Kind: pos.KindDish, Lines: []pos.LineInput{{ItemID: "burger", Quantity: 1}}})
	if !pos.IsValidation(err) {
		t.Fatalf("order on closed table error = %v, want validation", err)
	}
	if _, err := f.svc.AddLine(ctx, o.ID, pos.LineInput{ItemID: "burger", Quantity: 1}); !pos.IsValidation(err) {
		t.Fatalf("add line to archived order error = %v, want validation", err)
	}

	if _, err := f.svc.OpenTable(ctx, 8); err != nil {
		t.Fatalf("OpenTable: %v", err)
	}
	f.order(t, 8, pos.KindDish, "burger", 1)
	f.assertTotals(t, 8, "8.50")
}

func TestRemoveLastLineCancelsOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.table(t, 9)
	keep := f.order(t, 9, pos.KindDrink, "cola", 1)
	o := f.order(t, 9, pos.KindDish, "burger", 1)
	lineID := o.Lines[0].ID

	change, err := f.svc.RemoveLine(ctx, o.ID, lineID, pos.RemoveInput{})
	if err != nil {
		t.Fatalf("RemoveLine: %v", err)
	}
	if change.Order.Status != pos.OrderCancelled || change.Order.Attached() {
		t.Fatalf("exhausted order = %+v", change.Order)
	}
	f.assertTotals(t, 9, "2.00")
	tbl, _ := f.svc.GetTable(ctx, 9)
	if len(tbl.DishOrderIDs) != 0 || len(tbl.DrinkOrderIDs) != 1 || tbl.DrinkOrderIDs[0] != keep.ID {
		t.Fatalf("table refs = %+v", tbl)
	}

	if _, err := f.svc.RemoveLine(ctx, o.ID, lineID, pos.RemoveInput{}); !errors.Is(err, pos.ErrNotFound) {
		t.Fatalf("second removal error = %v, want not found", err)
	}
	f.assertTotals(t, 9, "2.00")
}

func TestCancelLineKeepsSalesInStep(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.table(t, 10)
	o := f.order(t, 10, pos.KindDish, "burger", 3)
	lineID := o.Lines[0].ID

	if _, err := f.svc.RemoveLine(ctx, o.ID, lineID, pos.RemoveInput{Cancel: true}); !pos.IsValidation(err) {
		t.Fatalf("cancel without staff error = %v, want validation", err)
	}
	if _, err := f.svc.RemoveLine(ctx, o.ID, lineID, pos.RemoveInput{Cancel: true, StaffID: "ana", Reason: "wrong table"}); err != nil {
		t.Fatalf("RemoveLine: %v", err)
	}

	from, to := base.Add(-time.Hour), base.Add(24*time.Hour)
	sales, err := f.store.ListSales(ctx, from, to)
	if err != nil {
		t.Fatal(err)
	}
	if len(sales) != 1 || sales[0].Quantity != 2 {
		t.Fatalf("sales = %+v", sales)
	}
	deletions, err := f.store.ListDeletions(ctx, from, to)
	if err != nil {
		t.Fatal(err)
	}
	if len(deletions) != 1 || deletions[0].Quantity != 1 || deletions[0].StaffID != "ana" || deletions[0].TableNumber != 10 {
		t.Fatalf("deletions = %+v", deletions)
	}

	change, err := f.svc.CancelOrder(ctx, o.ID, "ana", "")
	if err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}
	if change.Order.Status != pos.OrderCancelled {
		t.Fatalf("status = %s", change.Order.Status)
	}
	sales, _ = f.store.ListSales(ctx, from, to)
	if len(sales) != 0 {
		t.Fatalf("sales after cancel = %d, want 0", len(sales))
	}
	f.assertTotals(t, 10, "0")
	if _, err := f.svc.CancelOrder(ctx, o.ID, "ana", ""); !pos.IsValidation(err) {
		t.Fatalf("second cancel error = %v, want validation", err)
	}
}

func TestCancelRejectsCompletedOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.table(t, 22)
	o := f.order(t, 22, pos.KindDish, "burger", 2)
	f.complete(t, o)
	archive, err := f.svc.CloseTable(ctx, 22, pos.Payment{Cash: d("17.00")})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		cancel func() error
	}{
		{"cancel order", func() error {
			_, err := f.svc.CancelOrder(ctx, o.ID, "ana", "customer left")
			return err
		}},
		{"status cancelled", func() error {
			_, err := f.svc.SetOrderStatus(ctx, o.ID, pos.OrderCancelled, "ana")
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cancel(); !pos.IsValidation(err) {
				t.Fatalf("error = %v, want validation", err)
			}
		})
	}

	got, err := f.svc.GetOrder(ctx, o.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != pos.OrderCompleted || !got.Total.Equal(d("17.00")) || len(got.Lines) != 1 {
		t.Fatalf("order after rejected cancel = %s total %s lines %d", got.Status, got.Total, len(got.Lines))
	}
	sales, err := f.store.ListSales(ctx, base.Add(-time.Hour), base.Add(24*time.Hour))
	if err != nil || len(sales) != 1 || sales[0].Quantity != 2 {
		t.Fatalf("sales = %+v, %v", sales, err)
	}

	res, err := f.svc.ReopenTable(ctx, archive.ID)
	if err != nil || len(res.Orders) != 1 {
		t.Fatalf("reopen = %+v, %v", res, err)
	}
	f.assertTotals(t, 22, "17.00")
}

func TestDeleteOrderDetachesFromTable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tbl := f.table(t, 11)
	o := f.order(t, 11, pos.KindDish, "burger", 2)
	f.order(t, 11, pos.KindDrink, "cola", 1)

	if err := f.svc.DeleteOrder(ctx, o.ID); err != nil {
		t.Fatalf("DeleteOrder: %v", err)
	}
	f.assertTotals(t, 11, "2.00")
	payload, _ := f.events.last(pos.EventOrderDeleted).(map[string]any)
	if payload["id"] != o.ID || payload["tableId"] != tbl.ID {
		t.Fatalf("order-deleted payload = %v, want table %s", payload, tbl.ID)
	}
	if _, err := f.svc.GetOrder(ctx, o.ID); !errors.Is(err, pos.ErrNotFound) {
		t.Fatalf("GetOrder after delete: %v", err)
	}
	if err := f.svc.DeleteOrder(ctx, o.ID); !errors.Is(err, pos.ErrNotFound) {
		t.Fatalf("second delete error = %v, want not found", err)
	}
}

func TestOrderStatusFlow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.table(t, 12)
	o := f.order(t, 12, pos.KindDish, "burger", 1)

	if _, err := f.svc.SetLineStatus(ctx, o.ID, o.Lines[0].ID, pos.LineReady); err != nil {
		t.Fatalf("SetLineStatus: %v", err)
	}
	if _, err := f.svc.SetLineStatus(ctx, o.ID, "nope", pos.LineReady); !errors.Is(err, pos.ErrNotFound) {
		t.Fatalf("unknown line error = %v", err)
	}
	if _, err := f.svc.SetOrderStatus(ctx, o.ID, pos.OrderInProgress, "cook"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.SetOrderStatus(ctx, o.ID, pos.OrderPending, "cook"); !pos.IsValidation(err) {
		t.Fatalf("backwards transition error = %v", err)
	}
	change, err := f.svc.SetOrderStatus(ctx, o.ID, pos.OrderCompleted, "cook")
	if err != nil {
		t.Fatal(err)
	}
	if change.Order.Lines[0].Status != pos.LineReady {
		t.Fatalf("completed order line status = %s", change.Order.Lines[0].Status)
	}
	if f.events.count(pos.EventOrderCompleted) != 1 {
		t.Fatalf("order-completed events = %d", f.events.count(pos.EventOrderCompleted))
	}

	done, err := f.svc.ListOrders(ctx, pos.OrderFilter{Status: pos.OrderCompleted}, 12)
	if err != nil || len(done) != 1 {
		t.Fatalf("ListOrders = %d, %v", len(done), err)
	}
}

func TestCartSubmitCreatesOrderPerKind(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.table(t, 14)

	adds := []struct {
		kind pos.Kind
		in   pos.LineInput
	}{
		{pos.KindDish, pos.LineInput{ItemID: "croquetas", Quantity: 1, Dish: &pos.DishDetails{Portion: pos.TierTapa}, Selections: map[string]string{"salsa": "brava"}}},
		{pos.KindDish, pos.LineInput{ItemID: "croquetas", Quantity: 1, Dish: &pos.DishDetails{Portion: pos.TierTapa}, Selections: map[string]string{"salsa": "brava"}}},
		{pos.KindDish, pos.LineInput{ItemID: "burger", Quantity: 1}},
		{pos.KindDrink, pos.LineInput{ItemID: "cola", Quantity: 2}},
	}
	var cart *pos.Cart
	for _, a := range adds {
		var err error
		if cart, err = f.svc.AddCartLine(ctx, 14, a.kind, a.in); err != nil {
			t.Fatalf("AddCartLine: %v", err)
		}
	}
	if len(cart.Lines) != 3 || !cart.Total.Equal(d("19.00")) {
		t.Fatalf("cart = %d lines, total %s", len(cart.Lines), cart.Total)
	}
	if _, err := f.svc.AddCartLine(ctx, 14, pos.KindDrink, pos.LineInput{ItemID: "burger", Quantity: 1}); !errors.Is(err, pos.ErrNotFound) {
		t.Fatalf("dish id as drink error = %v, want not found", err)
	}

	orders, err := f.svc.SubmitCart(ctx, 14)
	if err != nil {
		t.Fatalf("SubmitCart: %v", err)
	}
	if len(orders) != 2 || orders[0].Kind != pos.KindDish || orders[1].Kind != pos.KindDrink {
		t.Fatalf("orders = %+v", orders)
	}
	f.assertTotals(t, 14, "19.00")

	empty, err := f.svc.GetCart(ctx, 14)
	if err != nil || len(empty.Lines) != 0 {
		t.Fatalf("cart after submit = %+v, %v", empty, err)
	}
	if _, err := f.svc.SubmitCart(ctx, 14); !errors.Is(err, pos.ErrNotFound) {
		t.Fatalf("submit empty cart error = %v, want not found", err)
	}
}

func TestListArchivesLatestOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for _, n := range []int{20, 21} {
		f.table(t, n)
	}
	var last *pos.Archive
	for i := 0; i < 2; i++ {
		o := f.order(t, 20, pos.KindDrink, "cola", 1)
		f.complete(t, o)
		a, err := f.svc.CloseTable(ctx, 20, pos.Payment{Cash: d("2")})
		if err != nil {
			t.Fatal(err)
		}
		last = a
		if _, err := f.svc.OpenTable(ctx, 20); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := f.svc.CloseTable(ctx, 21, pos.Payment{}); err != nil {
		t.Fatal(err)
	}

	all, err := f.svc.ListArchives(ctx, pos.ArchiveFilter{}, false)
	if err != nil || len(all) != 3 {
		t.Fatalf("all archives = %d, %v", len(all), err)
	}
	latest, err := f.svc.ListArchives(ctx, pos.ArchiveFilter{}, true)
	if err != nil || len(latest) != 2 {
		t.Fatalf("latest archives = %d, %v", len(latest), err)
	}
	for _, a := range latest {
		if a.TableNumber == 20 && a.ID != last.ID {
			t.Fatalf("latest for table 20 = %s, want %s", a.ID, last.ID)
		}
	}
}
