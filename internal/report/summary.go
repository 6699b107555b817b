// Package report folds sale records and archives into register totals. Nothing here
// writes to the order or table stores.
package report

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"tpvrestaurante/internal/money"
	"tpvrestaurante/internal/pos"
)

type ItemCount struct {
	Kind     pos.Kind        `json:"kind"`
	ItemID   string          `json:"itemId"`
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Amount   decimal.Decimal `json:"amount"`
}

type Summary struct {
	From          time.Time       `json:"from"`
	To            time.Time       `json:"to"`
	Cash          decimal.Decimal `json:"cash"`
	Card          decimal.Decimal `json:"card"`
	Archived      decimal.Decimal `json:"archived"`
	TablesClosed  int             `json:"tablesClosed"`
	SalesTotal    decimal.Decimal `json:"salesTotal"`
	UnitsSold     int             `json:"unitsSold"`
	Items         []ItemCount     `json:"items"`
	UnitsDeleted  int             `json:"unitsDeleted"`
	DeletedAmount decimal.Decimal `json:"deletedAmount"`
}

func inRange(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}

// Summarize is a pure fold over [from, to). Records outside the range are ignored and
// records whose order or table no longer exists still count.
func Summarize(from, to time.Time, sales []*pos.Sale, archives []*pos.Archive, deletions []*pos.Deletion) Summary {
	sum := Summary{
		From:          from,
		To:            to,
		Cash:          money.Zero,
		Card:          money.Zero,
		Archived:      money.Zero,
		SalesTotal:    money.Zero,
		Items:         []ItemCount{},
		DeletedAmount: money.Zero,
	}

	for _, a := range archives {
		if a == nil || !inRange(a.CreatedAt, from, to) {
			continue
		}
		sum.TablesClosed++
		sum.Cash = money.ApplyDelta(sum.Cash, a.Payment.Cash)
		sum.Card = money.ApplyDelta(sum.Card, a.Payment.Card)
		sum.Archived = money.ApplyDelta(sum.Archived, a.Total)
	}

	byItem := map[string]*ItemCount{}
	for _, s := range sales {
		if s == nil || s.Quantity <= 0 || !inRange(s.CreatedAt, from, to) {
			continue
		}
		amount := money.LineTotal(s.UnitPrice, s.Quantity)
		sum.UnitsSold += s.Quantity
		sum.SalesTotal = money.ApplyDelta(sum.SalesTotal, amount)

		key := string(s.Kind) + "/" + s.ItemID
		ic, ok := byItem[key]
		if !ok {
			ic = &ItemCount{Kind: s.Kind, ItemID: s.ItemID, Name: s.Name, Amount: money.Zero}
			byItem[key] = ic
		}
		ic.Quantity += s.Quantity
		ic.Amount = money.ApplyDelta(ic.Amount, amount)
	}
	for _, ic := range byItem {
		sum.Items = append(sum.Items, *ic)
	}
	sort.Slice(sum.Items, func(i, j int) bool {
		if sum.Items[i].Quantity != sum.Items[j].Quantity {
			return sum.Items[i].Quantity > sum.Items[j].Quantity
		}
		return sum.Items[i].Name < sum.Items[j].Name
	})

	for _, d := range deletions {
		if d == nil || !inRange(d.CreatedAt, from, to) {
			continue
		}
		sum.UnitsDeleted += d.Quantity
		sum.DeletedAmount = money.ApplyDelta(sum.DeletedAmount, money.LineTotal(d.UnitPrice, d.Quantity))
	}
	return sum
}
