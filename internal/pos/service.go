package pos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tpvrestaurante/internal/audit"
	"tpvrestaurante/internal/guard"
)

const defaultGuardTTL = 30 * time.Second

// Service runs the table and order lifecycle on top of a Store.
type Service struct {
	store    Store
	catalog  Catalog
	notifier Notifier
	guard    guard.Guard
	guardTTL time.Duration
	audit    audit.Recorder
	log      *zap.Logger
	now      func() time.Time
	newID    func() string
}

type Option func(*Service)

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithGuard(g guard.Guard, ttl time.Duration) Option {
	return func(s *Service) {
		s.guard = g
		if ttl > 0 {
			s.guardTTL = ttl
		}
	}
}

func WithAudit(r audit.Recorder) Option {
	return func(s *Service) { s.audit = r }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithIDs(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

func NewService(store Store, catalog Catalog, opts ...Option) *Service {
	s := &Service{
		store:    store,
		catalog:  catalog,
		notifier: nopNotifier{},
		guard:    guard.NewMemory(),
		guardTTL: defaultGuardTTL,
		audit:    audit.Nop{},
		log:      zap.NewNop(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) publish(event string, payload any) {
	s.notifier.Publish(event, payload)
}

// recordAudit writes to the mirror in the background. Failures are logged only.
func (s *Service) recordAudit(e audit.Entry) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.audit.Record(ctx, e); err != nil {
			s.log.Warn("audit mirror write failed", zap.String("action", e.Action), zap.String("entity", e.EntityID), zap.Error(err))
		}
	}()
}

func (s *Service) tableByNumber(ctx context.Context, number int) (*Table, error) {
	t, err := s.store.GetTableByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	t.Refresh(s.now())
	return t, nil
}

// attachedTable loads the live table an order belongs to, or nil for detached orders.
func (s *Service) attachedTable(ctx context.Context, o *Order) (*Table, error) {
	if !o.Attached() {
		return nil, nil
	}
	t, err := s.store.GetTable(ctx, o.TableID)
	if err != nil {
		return nil, err
	}
	return t, nil
}
