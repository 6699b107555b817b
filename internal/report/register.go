package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tpvrestaurante/internal/pos"
)

const dateLayout = "2006-01-02"

// RegisterClose is the stored total of one business day.
type RegisterClose struct {
	ID           string    `json:"id"`
	BusinessDate string    `json:"businessDate"`
	Summary      Summary   `json:"summary"`
	CreatedAt    time.Time `json:"createdAt"`
}

type Source interface {
	ListSales(ctx context.Context, from, to time.Time) ([]*pos.Sale, error)
	ListArchives(ctx context.Context, f pos.ArchiveFilter) ([]*pos.Archive, error)
	ListDeletions(ctx context.Context, from, to time.Time) ([]*pos.Deletion, error)
}

// RegisterStore persists day closes. CreateRegisterClose fails with a *pos.ConflictError
// when the date is already closed.
type RegisterStore interface {
	CreateRegisterClose(ctx context.Context, rc *RegisterClose) error
	GetRegisterClose(ctx context.Context, businessDate string) (*RegisterClose, error)
	ListRegisterCloses(ctx context.Context, limit int) ([]*RegisterClose, error)
}

type Registrar struct {
	src   Source
	store RegisterStore
	loc   *time.Location
	hour  int
	log   *zap.Logger
	now   func() time.Time
	newID func() string
}

func NewRegistrar(src Source, store RegisterStore, loc *time.Location, closeHour int, log *zap.Logger) *Registrar {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Registrar{
		src:   src,
		store: store,
		loc:   loc,
		hour:  closeHour,
		log:   log,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// DayBounds returns [start of date, start of next date) in the business timezone.
func (r *Registrar) DayBounds(date string) (time.Time, time.Time, error) {
	day, err := time.ParseInLocation(dateLayout, date, r.loc)
	if err != nil {
		return time.Time{}, time.Time{}, &pos.ValidationError{Reason: fmt.Sprintf("invalid date %q, want YYYY-MM-DD", date)}
	}
	return day, day.AddDate(0, 0, 1), nil
}

func (r *Registrar) Summary(ctx context.Context, from, to time.Time) (Summary, error) {
	if !to.After(from) {
		return Summary{}, &pos.ValidationError{Reason: "report range end must be after its start"}
	}
	sales, err := r.src.ListSales(ctx, from, to)
	if err != nil {
		return Summary{}, fmt.Errorf("list sales: %w", err)
	}
	archives, err := r.src.ListArchives(ctx, pos.ArchiveFilter{From: from, To: to})
	if err != nil {
		return Summary{}, fmt.Errorf("list archives: %w", err)
	}
	deletions, err := r.src.ListDeletions(ctx, from, to)
	if err != nil {
		return Summary{}, fmt.Errorf("list deletions: %w", err)
	}
	return Summarize(from, to, sales, archives, deletions), nil
}

// CloseDay stores the summary of date once. A second call returns the stored close and
// false.
func (r *Registrar) CloseDay(ctx context.Context, date string) (*RegisterClose, bool, error) {
	from, to, err := r.DayBounds(date)
	if err != nil {
		return nil, false, err
	}
	if existing, err := r.store.GetRegisterClose(ctx, date); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, pos.ErrNotFound) {
		return nil, false, err
	}
	if !r.now().After(to) {
		return nil, false, &pos.ValidationError{Reason: fmt.Sprintf("business day %s has not ended", date)}
	}

	sum, err := r.Summary(ctx, from, to)
	if err != nil {
		return nil, false, err
	}
	rc := &RegisterClose{
		ID:           r.newID(),
		BusinessDate: date,
		Summary:      sum,
		CreatedAt:    r.now(),
	}
	if err := r.store.CreateRegisterClose(ctx, rc); err != nil {
		if pos.IsConflict(err) {
			existing, getErr := r.store.GetRegisterClose(ctx, date)
			if getErr == nil {
				return existing, false, nil
			}
		}
		return nil, false, fmt.Errorf("store register close %s: %w", date, err)
	}
	r.log.Info("register closed",
		zap.String("date", date),
		zap.String("cash", sum.Cash.StringFixed(2)),
		zap.String("card", sum.Card.StringFixed(2)),
		zap.Int("tables", sum.TablesClosed),
	)
	return rc, true, nil
}

// Today returns the current business date.
func (r *Registrar) Today() string {
	return r.now().In(r.loc).Format(dateLayout)
}

func (r *Registrar) Sales(ctx context.Context, from, to time.Time) ([]*pos.Sale, error) {
	return r.src.ListSales(ctx, from, to)
}

func (r *Registrar) Deletions(ctx context.Context, from, to time.Time) ([]*pos.Deletion, error) {
	return r.src.ListDeletions(ctx, from, to)
}

func (r *Registrar) List(ctx context.Context, limit int) ([]*RegisterClose, error) {
	if limit <= 0 || limit > 366 {
		limit = 31
	}
	return r.store.ListRegisterCloses(ctx, limit)
}

// Run closes the previous business day once the configured hour has passed. It checks
// once a minute until ctx is done.
func (r *Registrar) Run(ctx context.Context) error {
	ticker := time.NewTicker(60 * time.Second)
	defer ticker.Stop()

	for {
		tickCtx, cancel := context.WithTimeout(ctx, 12*time.Second)
		if err := r.tick(tickCtx); err != nil {
			r.log.Warn("automatic register close failed", zap.Error(err))
		}
		cancel()

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (r *Registrar) tick(ctx context.Context) error {
	now := r.now().In(r.loc)
	if now.Hour() < r.hour {
		return nil
	}
	yesterday := now.AddDate(0, 0, -1).Format(dateLayout)
	_, _, err := r.CloseDay(ctx, yesterday)
	return err
}
