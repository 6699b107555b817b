package pos

import (
	"context"
	"time"
)

type TableStore interface {
	CreateTable(ctx context.Context, t *Table) error
	GetTable(ctx context.Context, id string) (*Table, error)
	GetTableByNumber(ctx context.Context, number int) (*Table, error)
	ListTables(ctx context.Context) ([]*Table, error)
	UpdateTable(ctx context.Context, t *Table) error
	DeleteTable(ctx context.Context, id string) error
}

type OrderStore interface {
	CreateOrder(ctx context.Context, o *Order) error
	GetOrder(ctx context.Context, id string) (*Order, error)
	ListOrders(ctx context.Context, f OrderFilter) ([]*Order, error)
	UpdateOrder(ctx context.Context, o *Order) error
	DeleteOrder(ctx context.Context, id string) error
}

type ArchiveStore interface {
	CreateArchive(ctx context.Context, a *Archive) error
	GetArchive(ctx context.Context, id string) (*Archive, error)
	GetArchiveBySession(ctx context.Context, sessionKey string) (*Archive, error)
	ListArchives(ctx context.Context, f ArchiveFilter) ([]*Archive, error)
	UpdateArchive(ctx context.Context, a *Archive) error
	DeleteArchive(ctx context.Context, id string) error
}

type SaleStore interface {
	CreateSale(ctx context.Context, s *Sale) error
	UpdateSaleQuantity(ctx context.Context, id string, quantity int) error
	DeleteSale(ctx context.Context, id string) error
	ListSales(ctx context.Context, from, to time.Time) ([]*Sale, error)
}

type DeletionStore interface {
	CreateDeletion(ctx context.Context, d *Deletion) error
	ListDeletions(ctx context.Context, from, to time.Time) ([]*Deletion, error)
}

type CartStore interface {
	GetCart(ctx context.Context, tableNumber int) (*Cart, error)
	SaveCart(ctx context.Context, c *Cart) error
	DeleteCart(ctx context.Context, tableNumber int) error
}

// Store is the persistence contract. Every method is a single-document write or read;
// lookups that miss return an error matching ErrNotFound.
type Store interface {
	TableStore
	OrderStore
	ArchiveStore
	SaleStore
	DeletionStore
	CartStore
}

// Catalog resolves dishes and drinks at line-creation time.
type Catalog interface {
	GetItem(ctx context.Context, kind Kind, id string) (*CatalogItem, error)
}

// Notifier receives state-change events. Publish must not block.
type Notifier interface {
	Publish(event string, payload any)
}

const (
	EventTableUpdated   = "table-updated"
	EventTableClosed    = "table-closed"
	EventTableReopened  = "table-reopened"
	EventOrderUpdated   = "order-updated"
	EventOrderCompleted = "order-completed"
	EventOrderDeleted   = "order-deleted"
	EventCartUpdated    = "cart-updated"
)

type nopNotifier struct{}

func (nopNotifier) Publish(string, any) {}
