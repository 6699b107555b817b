package sqlstore

import (
	"context"
	"fmt"

	"tpvrestaurante/internal/money"
	"tpvrestaurante/internal/pos"
)

const tableColumns = `id, table_number, status, dish_order_ids, drink_order_ids, total, opened_at, created_at, updated_at`

func scanTable(row rowScanner) (*pos.Table, error) {
	var (
		t                 pos.Table
		status            string
		dishIDs, drinkIDs string
		opened, created   int64
		updated           int64
	)
	if err := row.Scan(&t.ID, &t.Number, &status, &dishIDs, &drinkIDs, &t.Total, &opened, &created, &updated); err != nil {
		return nil, err
	}
	var err error
	if t.DishOrderIDs, err = decodeIDs(dishIDs); err != nil {
		return nil, fmt.Errorf("decode table %s dish order ids: %w", t.ID, err)
	}
	if t.DrinkOrderIDs, err = decodeIDs(drinkIDs); err != nil {
		return nil, fmt.Errorf("decode table %s drink order ids: %w", t.ID, err)
	}
	t.Status = pos.TableStatus(status)
	t.Total = money.Round2(t.Total)
	t.OpenedAt = fromMillis(opened)
	t.CreatedAt = fromMillis(created)
	t.UpdatedAt = fromMillis(updated)
	return &t, nil
}

func (s *Store) CreateTable(ctx context.Context, t *pos.Table) error {
	dishIDs, err := encodeIDs(t.DishOrderIDs)
	if err != nil {
		return err
	}
	drinkIDs, err := encodeIDs(t.DrinkOrderIDs)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO pos_tables (`+tableColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Number, string(t.Status), dishIDs, drinkIDs, money.Round2(t.Total),
		toMillis(t.OpenedAt), toMillis(t.CreatedAt), toMillis(t.UpdatedAt),
	)
	if isUniqueViolation(err) {
		return &pos.ConflictError{Reason: fmt.Sprintf("table %d already exists", t.Number)}
	}
	return err
}

func (s *Store) GetTable(ctx context.Context, id string) (*pos.Table, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+tableColumns+` FROM pos_tables WHERE id = ?`, id)
	t, err := scanTable(row)
	if err != nil {
		return nil, notFoundOr(err, "table", id)
	}
	return t, nil
}

func (s *Store) GetTableByNumber(ctx context.Context, number int) (*pos.Table, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+tableColumns+` FROM pos_tables WHERE table_number = ?`, number)
	t, err := scanTable(row)
	if err != nil {
		return nil, notFoundOr(err, "table", number)
	}
	return t, nil
}

func (s *Store) ListTables(ctx context.Context) ([]*pos.Table, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+tableColumns+` FROM pos_tables ORDER BY table_number ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tables := []*pos.Table{}
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

func (s *Store) UpdateTable(ctx context.Context, t *pos.Table) error {
	dishIDs, err := encodeIDs(t.DishOrderIDs)
	if err != nil {
		return err
	}
	drinkIDs, err := encodeIDs(t.DrinkOrderIDs)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE pos_tables
		SET table_number = ?, status = ?, dish_order_ids = ?, drink_order_ids = ?, total = ?, opened_at = ?, updated_at = ?
		WHERE id = ?
	`, t.Number, string(t.Status), dishIDs, drinkIDs, money.Round2(t.Total), toMillis(t.OpenedAt), toMillis(t.UpdatedAt), t.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return &pos.ConflictError{Reason: fmt.Sprintf("table %d already exists", t.Number)}
		}
		return err
	}
	return mustAffect(res, "table", t.ID)
}

func (s *Store) DeleteTable(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM pos_tables WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return mustAffect(res, "table", id)
}
