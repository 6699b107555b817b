package report

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tpvrestaurante/internal/pos"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var (
	dayStart = time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)
	dayEnd   = dayStart.AddDate(0, 0, 1)
)

func sale(item string, qty int, unit string, at time.Time) *pos.Sale {
	return &pos.Sale{ID: item + at.String(), ItemID: item, Kind: pos.KindDish, Name: item, Quantity: qty, UnitPrice: d(unit), CreatedAt: at}
}

func TestSummarize(t *testing.T) {
	noon := dayStart.Add(12 * time.Hour)
	sales := []*pos.Sale{
		sale("burger", 2, "8.50", noon),
		sale("burger", 1, "8.50", noon.Add(time.Hour)),
		sale("flan", 1, "4.25", noon),
		// Fully cancelled, then outside the day on either side.
		sale("flan", 0, "4.25", noon),
		sale("burger", 5, "8.50", dayEnd),
		sale("burger", 5, "8.50", dayStart.Add(-time.Nanosecond)),
		nil,
	}
	archives := []*pos.Archive{
		{ID: "a1", Total: d("21.25"), Payment: pos.Payment{Cash: d("21.25"), Card: d("0")}, CreatedAt: noon},
		{ID: "a2", Total: d("10.00"), Payment: pos.Payment{Cash: d("4"), Card: d("6")}, CreatedAt: noon.Add(2 * time.Hour)},
		{ID: "a3", Total: d("99.00"), Payment: pos.Payment{Cash: d("99"), Card: d("0")}, CreatedAt: dayEnd},
	}
	deletions := []*pos.Deletion{
		{ID: "x1", Quantity: 2, UnitPrice: d("3.10"), CreatedAt: noon},
		{ID: "x2", Quantity: 1, UnitPrice: d("3.10"), CreatedAt: dayEnd.Add(time.Hour)},
	}

	sum := Summarize(dayStart, dayEnd, sales, archives, deletions)

	checks := []struct {
		name string
		got  decimal.Decimal
		want string
	}{
		{"cash", sum.Cash, "25.25"},
		{"card", sum.Card, "6.00"},
		{"archived", sum.Archived, "31.25"},
		{"sales total", sum.SalesTotal, "29.75"},
		{"deleted amount", sum.DeletedAmount, "6.20"},
	}
	for _, c := range checks {
		if !c.got.Equal(d(c.want)) {
			t.Errorf("%s = %s, want %s", c.name, c.got, c.want)
		}
	}
	if sum.TablesClosed != 2 || sum.UnitsSold != 4 || sum.UnitsDeleted != 2 {
		t.Errorf("counts = tables %d units %d deleted %d", sum.TablesClosed, sum.UnitsSold, sum.UnitsDeleted)
	}
	if len(sum.Items) != 2 || sum.Items[0].ItemID != "burger" || sum.Items[0].Quantity != 3 || !sum.Items[0].Amount.Equal(d("25.50")) {
		t.Errorf("items = %+v", sum.Items)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	sum := Summarize(dayStart, dayEnd, nil, nil, nil)
	if !sum.Cash.IsZero() || sum.Items == nil || len(sum.Items) != 0 {
		t.Fatalf("empty summary = %+v", sum)
	}
}

type fakeSource struct {
	sales     []*pos.Sale
	archives  []*pos.Archive
	deletions []*pos.Deletion
	err       error
}

func (f *fakeSource) ListSales(context.Context, time.Time, time.Time) ([]*pos.Sale, error) {
	return f.sales, f.err
}

func (f *fakeSource) ListArchives(context.Context, pos.ArchiveFilter) ([]*pos.Archive, error) {
	return f.archives, f.err
}

func (f *fakeSource) ListDeletions(context.Context, time.Time, time.Time) ([]*pos.Deletion, error) {
	return f.deletions, f.err
}

type memRegisters struct {
	mu     sync.Mutex
	closes map[string]*RegisterClose
	writes int
}

func (m *memRegisters) CreateRegisterClose(_ context.Context, rc *RegisterClose) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.closes[rc.BusinessDate]; ok {
		return &pos.ConflictError{Reason: "already closed"}
	}
	m.closes[rc.BusinessDate] = rc
	m.writes++
	return nil
}

func (m *memRegisters) GetRegisterClose(_ context.Context, date string) (*RegisterClose, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rc, ok := m.closes[date]
	if !ok {
		return nil, &pos.NotFoundError{Entity: "register close", Key: date}
	}
	return rc, nil
}

func (m *memRegisters) ListRegisterCloses(_ context.Context, limit int) ([]*RegisterClose, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*RegisterClose
	for _, rc := range m.closes {
		out = append(out, rc)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func newTestRegistrar(src Source, now time.Time) (*Registrar, *memRegisters) {
	store := &memRegisters{closes: map[string]*RegisterClose{}}
	r := NewRegistrar(src, store, time.UTC, 4, nil)
	r.now = func() time.Time { return now }
	return r, store
}

func TestCloseDay(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{
		archives: []*pos.Archive{{ID: "a1", Total: d("12"), Payment: pos.Payment{Cash: d("12"), Card: d("0")}, CreatedAt: dayStart.Add(20 * time.Hour)}},
	}
	r, store := newTestRegistrar(src, dayEnd.Add(5*time.Hour))

	rc, created, err := r.CloseDay(ctx, "2026-05-02")
	if err != nil || !created {
		t.Fatalf("CloseDay = %v, created %v", err, created)
	}
	if !rc.Summary.Cash.Equal(d("12")) || rc.BusinessDate != "2026-05-02" {
		t.Fatalf("close = %+v", rc)
	}

	again, created, err := r.CloseDay(ctx, "2026-05-02")
	if err != nil || created || again.ID != rc.ID {
		t.Fatalf("second CloseDay = %+v, created %v, %v", again, created, err)
	}
	if store.writes != 1 {
		t.Fatalf("writes = %d, want 1", store.writes)
	}

	tests := []struct {
		name string
		date string
	}{
		{"malformed date", "02/05/2026"},
		{"day not over", "2026-05-03"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := r.CloseDay(ctx, tt.date); !pos.IsValidation(err) {
				t.Fatalf("CloseDay(%s) error = %v, want validation", tt.date, err)
			}
		})
	}
}

func TestCloseDaySourceFailure(t *testing.T) {
	r, store := newTestRegistrar(&fakeSource{err: errors.New("db down")}, dayEnd.Add(5*time.Hour))
	if _, _, err := r.CloseDay(context.Background(), "2026-05-02"); err == nil {
		t.Fatal("expected error")
	}
	if store.writes != 0 {
		t.Fatal("a failed summary must not be stored")
	}
}

func TestTickClosesYesterdayAfterHour(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name  string
		now   time.Time
		wantN int
	}{
		{"before close hour", dayEnd.Add(3 * time.Hour), 0},
		{"after close hour", dayEnd.Add(4 * time.Hour), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, store := newTestRegistrar(&fakeSource{}, tt.now)
			if err := r.tick(ctx); err != nil {
				t.Fatalf("tick: %v", err)
			}
			if err := r.tick(ctx); err != nil {
				t.Fatalf("second tick: %v", err)
			}
			if store.writes != tt.wantN {
				t.Fatalf("writes = %d, want %d", store.writes, tt.wantN)
			}
			if tt.wantN == 1 {
				if _, err := store.GetRegisterClose(ctx, "2026-05-02"); err != nil {
					t.Fatalf("yesterday not closed: %v", err)
				}
			}
		})
	}
}

func TestDayBoundsUsesBusinessTimezone(t *testing.T) {
	madrid, err := time.LoadLocation("Europe/Madrid")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	r := NewRegistrar(&fakeSource{}, &memRegisters{closes: map[string]*RegisterClose{}}, madrid, 0, nil)
	from, to, err := r.DayBounds("2026-05-02")
	if err != nil {
		t.Fatal(err)
	}
	if got := from.UTC(); !got.Equal(time.Date(2026, 5, 1, 22, 0, 0, 0, time.UTC)) {
		t.Fatalf("from = %s", got)
	}
	if to.Sub(from) != 24*time.Hour {
		t.Fatalf("day length = %s", to.Sub(from))
	}
}
