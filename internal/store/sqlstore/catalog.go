package sqlstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"tpvrestaurante/internal/money"
	"tpvrestaurante/internal/pos"
)

const catalogColumns = `id, kind, name, category, price_full, price_racion, price_tapa, price_copa, price_botella, options_json, active, created_at, updated_at`

// priceTiers is the column order of the price_* columns.
var priceTiers = []pos.Tier{pos.TierFull, pos.TierRacion, pos.TierTapa, pos.TierCopa, pos.TierBotella}

func scanItem(row rowScanner) (*pos.CatalogItem, error) {
	var (
		it               pos.CatalogItem
		kind             string
		prices           [5]decimal.NullDecimal
		options          string
		active           int
		created, updated int64
	)
	if err := row.Scan(&it.ID, &kind, &it.Name, &it.Category,
		&prices[0], &prices[1], &prices[2], &prices[3], &prices[4],
		&options, &active, &created, &updated); err != nil {
		return nil, err
	}
	it.Kind = pos.Kind(kind)
	it.Prices = map[pos.Tier]decimal.Decimal{}
	for i, p := range prices {
		if p.Valid {
			it.Prices[priceTiers[i]] = money.Round2(p.Decimal)
		}
	}
	if err := decodeJSON(options, &it.Options); err != nil {
		return nil, fmt.Errorf("decode item %s options: %w", it.ID, err)
	}
	it.Active = active != 0
	it.CreatedAt = fromMillis(created)
	it.UpdatedAt = fromMillis(updated)
	return &it, nil
}

func priceArgs(prices map[pos.Tier]decimal.Decimal) []any {
	out := make([]any, len(priceTiers))
	for i, tier := range priceTiers {
		p, ok := prices[tier]
		out[i] = decimal.NullDecimal{Decimal: money.Round2(p), Valid: ok}
	}
	return out
}

// GetItem implements pos.Catalog. Inactive items are returned; the caller decides.
func (s *Store) GetItem(ctx context.Context, kind pos.Kind, id string) (*pos.CatalogItem, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+catalogColumns+` FROM catalog_items WHERE id = ? AND kind = ?`, id, string(kind))
	it, err := scanItem(row)
	if err != nil {
		return nil, notFoundOr(err, string(kind), id)
	}
	return it, nil
}

// SaveItem inserts the item or replaces every column of an existing one.
func (s *Store) SaveItem(ctx context.Context, it *pos.CatalogItem) error {
	options, err := encodeJSON(it.Options)
	if err != nil {
		return err
	}
	active := 0
	if it.Active {
		active = 1
	}
	prices := priceArgs(it.Prices)

	res, err := s.db.ExecContext(ctx, `
		UPDATE catalog_items
		SET kind = ?, name = ?, category = ?, price_full = ?, price_racion = ?, price_tapa = ?,
			price_copa = ?, price_botella = ?, options_json = ?, active = ?, updated_at = ?
		WHERE id = ?
	`, append(append([]any{string(it.Kind), it.Name, it.Category}, prices...),
		options, active, toMillis(it.UpdatedAt), it.ID)...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n > 0 {
		return nil
	}

	args := append([]any{it.ID, string(it.Kind), it.Name, it.Category}, prices...)
	args = append(args, options, active, toMillis(it.CreatedAt), toMillis(it.UpdatedAt))
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO catalog_items (`+catalogColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		args...,
	)
	if isUniqueViolation(err) {
		return &pos.ConflictError{Reason: fmt.Sprintf("item id %s is already used", it.ID)}
	}
	return err
}

func (s *Store) ListItems(ctx context.Context, kind pos.Kind, category string) ([]*pos.CatalogItem, error) {
	var (
		where []string
		args  []any
	)
	if kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(kind))
	}
	if category = strings.TrimSpace(category); category != "" {
		where = append(where, "category = ?")
		args = append(args, category)
	}
	q := `SELECT ` + catalogColumns + ` FROM catalog_items`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY category ASC, name ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []*pos.CatalogItem{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *Store) DeleteItem(ctx context.Context, kind pos.Kind, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM catalog_items WHERE id = ? AND kind = ?`, id, string(kind))
	if err != nil {
		return err
	}
	return mustAffect(res, string(kind), id)
}

// Categories lists the distinct non-empty categories of a kind.
func (s *Store) Categories(ctx context.Context, kind pos.Kind) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT category FROM catalog_items WHERE kind = ? AND category <> '' ORDER BY category ASC`,
		string(kind),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
