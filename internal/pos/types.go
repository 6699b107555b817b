package pos

import (
	"time"

	"github.com/shopspring/decimal"
)

type Kind string

const (
	KindDish  Kind = "dish"
	KindDrink Kind = "drink"
)

func (k Kind) Valid() bool {
	return k == KindDish || k == KindDrink
}

type TableStatus string

const (
	TableOpen   TableStatus = "OPEN"
	TableClosed TableStatus = "CLOSED"
)

type OrderStatus string

const (
	OrderPending    OrderStatus = "PENDING"
	OrderInProgress OrderStatus = "IN_PROGRESS"
	OrderCompleted  OrderStatus = "COMPLETED"
	OrderCancelled  OrderStatus = "CANCELLED"
)

// Terminal reports whether a table holding an order in this status may be closed.
func (s OrderStatus) Terminal() bool {
	return s == OrderCompleted || s == OrderCancelled
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderInProgress, OrderCompleted, OrderCancelled:
		return true
	}
	return false
}

type LineStatus string

const (
	LinePending LineStatus = "PENDING"
	LineReady   LineStatus = "READY"
)

func (s LineStatus) Valid() bool {
	return s == LinePending || s == LineReady
}

// Tier names one price of a catalog item.
type Tier string

const (
	TierFull    Tier = "full"
	TierRacion  Tier = "racion"
	TierTapa    Tier = "tapa"
	TierCopa    Tier = "copa"
	TierBotella Tier = "botella"
)

// Tiers lists the price tiers each kind may carry.
var Tiers = map[Kind][]Tier{
	KindDish:  {TierFull, TierRacion, TierTapa},
	KindDrink: {TierFull, TierCopa, TierBotella},
}

type Table struct {
	ID                  string          `json:"id"`
	Number              int             `json:"number"`
	Status              TableStatus     `json:"status"`
	DishOrderIDs        []string        `json:"orderRefs"`
	DrinkOrderIDs       []string        `json:"drinkOrderRefs"`
	Total               decimal.Decimal `json:"total"`
	OpenedAt            time.Time       `json:"openedAt"`
	OpenDurationSeconds int64           `json:"openDurationSeconds"`
	CreatedAt           time.Time       `json:"createdAt"`
	UpdatedAt           time.Time       `json:"updatedAt"`
}

type Order struct {
	ID                  string          `json:"id"`
	Kind                Kind            `json:"kind"`
	TableID             string          `json:"tableId,omitempty"`
	ArchivedTableNumber int             `json:"archivedTableNumber,omitempty"`
	Lines               []Line          `json:"lines"`
	Total               decimal.Decimal `json:"total"`
	Status              OrderStatus     `json:"status"`
	Note                string          `json:"note,omitempty"`
	CreatedAt           time.Time       `json:"createdAt"`
	UpdatedAt           time.Time       `json:"updatedAt"`
}

// Line is a tagged variant: Dish is set for KindDish lines and Drink for KindDrink lines.
type Line struct {
	ID         string            `json:"id"`
	Kind       Kind              `json:"kind"`
	ItemID     string            `json:"itemId"`
	Name       string            `json:"name"`
	Quantity   int               `json:"quantity"`
	UnitPrice  decimal.Decimal   `json:"unitPrice"`
	Status     LineStatus        `json:"status"`
	Selections map[string]string `json:"selections,omitempty"`
	SaleIDs    []string          `json:"saleIds,omitempty"`
	Dish       *DishDetails      `json:"dish,omitempty"`
	Drink      *DrinkDetails     `json:"drink,omitempty"`
}

type DishDetails struct {
	Portion      Tier     `json:"portion,omitempty"`
	CookingPoint string   `json:"cookingPoint,omitempty"`
	Without      []string `json:"without,omitempty"`
}

type DrinkDetails struct {
	Serving Tier   `json:"serving,omitempty"`
	Ice     bool   `json:"ice,omitempty"`
	Lemon   bool   `json:"lemon,omitempty"`
	Mixer   string `json:"mixer,omitempty"`
}

type OptionGroup struct {
	Name     string   `json:"name"`
	Choices  []string `json:"choices"`
	Required bool     `json:"required,omitempty"`
}

type CatalogItem struct {
	ID        string                   `json:"id"`
	Kind      Kind                     `json:"kind"`
	Name      string                   `json:"name"`
	Category  string                   `json:"category,omitempty"`
	Prices    map[Tier]decimal.Decimal `json:"prices"`
	Options   []OptionGroup            `json:"options,omitempty"`
	Active    bool                     `json:"active"`
	CreatedAt time.Time                `json:"createdAt"`
	UpdatedAt time.Time                `json:"updatedAt"`
}

type Payment struct {
	Cash decimal.Decimal `json:"cash"`
	Card decimal.Decimal `json:"card"`
}

// TableSnapshot is the deep copy stored inside an archive.
type TableSnapshot struct {
	Table  Table   `json:"table"`
	Orders []Order `json:"orders"`
}

type Archive struct {
	ID            string          `json:"id"`
	TableNumber   int             `json:"tableNumber"`
	SessionKey    string          `json:"sessionKey"`
	Snapshot      TableSnapshot   `json:"snapshot"`
	DishOrderIDs  []string        `json:"orderIds"`
	DrinkOrderIDs []string        `json:"drinkOrderIds"`
	Payment       Payment         `json:"payment"`
	Total         decimal.Decimal `json:"total"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// OrderIDs returns the dish then drink order ids referenced by the archived table.
func (a *Archive) OrderIDs() []string {
	out := make([]string, 0, len(a.DishOrderIDs)+len(a.DrinkOrderIDs))
	out = append(out, a.DishOrderIDs...)
	return append(out, a.DrinkOrderIDs...)
}

type Sale struct {
	ID        string          `json:"id"`
	ItemID    string          `json:"itemId"`
	Kind      Kind            `json:"kind"`
	Name      string          `json:"name"`
	OrderID   string          `json:"orderId"`
	LineID    string          `json:"lineId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Deletion is the audit entry written when staff cancel a line or part of it.
type Deletion struct {
	ID          string          `json:"id"`
	OrderID     string          `json:"orderId"`
	TableNumber int             `json:"tableNumber,omitempty"`
	ItemID      string          `json:"itemId"`
	Kind        Kind            `json:"kind"`
	Name        string          `json:"name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	StaffID     string          `json:"staffId"`
	Reason      string          `json:"reason"`
	CreatedAt   time.Time       `json:"createdAt"`
}

type OrderFilter struct {
	Kind                Kind
	Status              OrderStatus
	TableID             string
	ArchivedTableNumber int
}

type ArchiveFilter struct {
	TableNumber int
	From        time.Time
	To          time.Time
}
