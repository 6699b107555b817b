package sqlstore

import (
	"context"
	"time"

	"tpvrestaurante/internal/money"
	"tpvrestaurante/internal/pos"
)

const saleColumns = `id, item_id, kind, name, order_id, line_id, quantity, unit_price, created_at`

func (s *Store) CreateSale(ctx context.Context, sale *pos.Sale) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pos_sales (`+saleColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sale.ID, sale.ItemID, string(sale.Kind), sale.Name, sale.OrderID, sale.LineID,
		sale.Quantity, money.Round2(sale.UnitPrice), toMillis(sale.CreatedAt),
	)
	return err
}

func (s *Store) UpdateSaleQuantity(ctx context.Context, id string, quantity int) error {
	res, err := s.db.ExecContext(ctx, `UPDATE pos_sales SET quantity = ? WHERE id = ?`, quantity, id)
	if err != nil {
		return err
	}
	return mustAffect(res, "sale", id)
}

func (s *Store) DeleteSale(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM pos_sales WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return mustAffect(res, "sale", id)
}

func (s *Store) ListSales(ctx context.Context, from, to time.Time) ([]*pos.Sale, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+saleColumns+` FROM pos_sales WHERE created_at >= ? AND created_at < ? ORDER BY created_at ASC, id ASC`,
		toMillis(from), toMillis(to),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := []*pos.Sale{}
	for rows.Next() {
		var (
			sale    pos.Sale
			kind    string
			created int64
		)
		if err := rows.Scan(&sale.ID, &sale.ItemID, &kind, &sale.Name, &sale.OrderID, &sale.LineID, &sale.Quantity, &sale.UnitPrice, &created); err != nil {
			return nil, err
		}
		sale.Kind = pos.Kind(kind)
		sale.UnitPrice = money.Round2(sale.UnitPrice)
		sale.CreatedAt = fromMillis(created)
		sales = append(sales, &sale)
	}
	return sales, rows.Err()
}

const deletionColumns = `id, order_id, table_number, item_id, kind, name, quantity, unit_price, staff_id, reason, created_at`

func (s *Store) CreateDeletion(ctx context.Context, d *pos.Deletion) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pos_line_deletions (`+deletionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.OrderID, d.TableNumber, d.ItemID, string(d.Kind), d.Name, d.Quantity,
		money.Round2(d.UnitPrice), d.StaffID, d.Reason, toMillis(d.CreatedAt),
	)
	return err
}

func (s *Store) ListDeletions(ctx context.Context, from, to time.Time) ([]*pos.Deletion, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+deletionColumns+` FROM pos_line_deletions WHERE created_at >= ? AND created_at < ? ORDER BY created_at ASC, id ASC`,
		toMillis(from), toMillis(to),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*pos.Deletion{}
	for rows.Next() {
		var (
			d       pos.Deletion
			kind    string
			created int64
		)
		if err := rows.Scan(&d.ID, &d.OrderID, &d.TableNumber, &d.ItemID, &kind, &d.Name, &d.Quantity, &d.UnitPrice, &d.StaffID, &d.Reason, &created); err != nil {
			return nil, err
		}
		d.Kind = pos.Kind(kind)
		d.UnitPrice = money.Round2(d.UnitPrice)
		d.CreatedAt = fromMillis(created)
		out = append(out, &d)
	}
	return out, rows.Err()
}
