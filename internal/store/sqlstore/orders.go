package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"tpvrestaurante/internal/money"
	"tpvrestaurante/internal/pos"
)

const orderColumns = `id, kind, table_id, archived_table_number, lines_json, total, status, note, created_at, updated_at`

func scanOrder(row rowScanner) (*pos.Order, error) {
	var (
		o                pos.Order
		kind, status     string
		tableID          sql.NullString
		archivedNumber   sql.NullInt64
		linesJSON        string
		created, updated int64
	)
	if err := row.Scan(&o.ID, &kind, &tableID, &archivedNumber, &linesJSON, &o.Total, &status, &o.Note, &created, &updated); err != nil {
		return nil, err
	}
	o.Lines = []pos.Line{}
	if err := decodeJSON(linesJSON, &o.Lines); err != nil {
		return nil, fmt.Errorf("decode order %s lines: %w", o.ID, err)
	}
	if o.Lines == nil {
		o.Lines = []pos.Line{}
	}
	o.Kind = pos.Kind(kind)
	o.Status = pos.OrderStatus(status)
	o.TableID = tableID.String
	o.ArchivedTableNumber = int(archivedNumber.Int64)
	o.Total = money.Round2(o.Total)
	o.CreatedAt = fromMillis(created)
	o.UpdatedAt = fromMillis(updated)
	return &o, nil
}

func orderArgs(o *pos.Order) (tableID sql.NullString, archived sql.NullInt64, lines string, err error) {
	if o.TableID != "" {
		tableID = sql.NullString{String: o.TableID, Valid: true}
	}
	if o.ArchivedTableNumber > 0 {
		archived = sql.NullInt64{Int64: int64(o.ArchivedTableNumber), Valid: true}
	}
	ls := o.Lines
	if ls == nil {
		ls = []pos.Line{}
	}
	lines, err = encodeJSON(ls)
	return tableID, archived, lines, err
}

func (s *Store) CreateOrder(ctx context.Context, o *pos.Order) error {
	tableID, archived, lines, err := orderArgs(o)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO pos_orders (`+orderColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, string(o.Kind), tableID, archived, lines, money.Round2(o.Total), string(o.Status), o.Note,
		toMillis(o.CreatedAt), toMillis(o.UpdatedAt),
	)
	return err
}

func (s *Store) GetOrder(ctx context.Context, id string) (*pos.Order, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM pos_orders WHERE id = ?`, id)
	o, err := scanOrder(row)
	if err != nil {
		return nil, notFoundOr(err, "order", id)
	}
	return o, nil
}

func (s *Store) ListOrders(ctx context.Context, f pos.OrderFilter) ([]*pos.Order, error) {
	var (
		where []string
		args  []any
	)
	if f.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(f.Kind))
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.TableID != "" {
		where = append(where, "table_id = ?")
		args = append(args, f.TableID)
	}
	if f.ArchivedTableNumber > 0 {
		where = append(where, "archived_table_number = ?")
		args = append(args, f.ArchivedTableNumber)
	}

	q := `SELECT ` + orderColumns + ` FROM pos_orders`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := []*pos.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (s *Store) UpdateOrder(ctx context.Context, o *pos.Order) error {
	tableID, archived, lines, err := orderArgs(o)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE pos_orders
		SET table_id = ?, archived_table_number = ?, lines_json = ?, total = ?, status = ?, note = ?, updated_at = ?
		WHERE id = ?
	`, tableID, archived, lines, money.Round2(o.Total), string(o.Status), o.Note, toMillis(o.UpdatedAt), o.ID)
	if err != nil {
		return err
	}
	return mustAffect(res, "order", o.ID)
}

func (s *Store) DeleteOrder(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM pos_orders WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return mustAffect(res, "order", id)
}
