package sqlstore

import (
	"context"
	"fmt"

	"tpvrestaurante/internal/money"
	"tpvrestaurante/internal/pos"
)

func (s *Store) GetCart(ctx context.Context, tableNumber int) (*pos.Cart, error) {
	var (
		c       pos.Cart
		lines   string
		updated int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT table_number, lines_json, total, updated_at FROM pos_carts WHERE table_number = ?`,
		tableNumber,
	).Scan(&c.TableNumber, &lines, &c.Total, &updated)
	if err != nil {
		return nil, notFoundOr(err, "cart", tableNumber)
	}
	c.Lines = []pos.Line{}
	if err := decodeJSON(lines, &c.Lines); err != nil {
		return nil, fmt.Errorf("decode cart %d lines: %w", tableNumber, err)
	}
	c.Total = money.Round2(c.Total)
	c.UpdatedAt = fromMillis(updated)
	return &c, nil
}

// SaveCart replaces the stored cart of the table.
func (s *Store) SaveCart(ctx context.Context, c *pos.Cart) error {
	lines, err := encodeJSON(c.Lines)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var exists bool
	if err := tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM pos_carts WHERE table_number = ?)`, c.TableNumber,
	).Scan(&exists); err != nil {
		return err
	}
	if exists {
		_, err = tx.ExecContext(ctx,
			`UPDATE pos_carts SET lines_json = ?, total = ?, updated_at = ? WHERE table_number = ?`,
			lines, money.Round2(c.Total), toMillis(c.UpdatedAt), c.TableNumber,
		)
	} else {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO pos_carts (table_number, lines_json, total, updated_at) VALUES (?, ?, ?, ?)`,
			c.TableNumber, lines, money.Round2(c.Total), toMillis(c.UpdatedAt),
		)
	}
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) DeleteCart(ctx context.Context, tableNumber int) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM pos_carts WHERE table_number = ?`, tableNumber)
	if err != nil {
		return err
	}
	return mustAffect(res, "cart", tableNumber)
}
