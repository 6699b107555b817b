package sqlstore

import (
	"context"
	"fmt"
	"strings"

	"tpvrestaurante/internal/money"
	"tpvrestaurante/internal/pos"
)

const archiveColumns = `id, table_number, session_key, snapshot_json, dish_order_ids, drink_order_ids, cash, card, total, created_at`

func scanArchive(row rowScanner) (*pos.Archive, error) {
	var (
		a                 pos.Archive
		snapshot          string
		dishIDs, drinkIDs string
		created           int64
	)
	if err := row.Scan(&a.ID, &a.TableNumber, &a.SessionKey, &snapshot, &dishIDs, &drinkIDs, &a.Payment.Cash, &a.Payment.Card, &a.Total, &created); err != nil {
		return nil, err
	}
	if err := decodeJSON(snapshot, &a.Snapshot); err != nil {
		return nil, fmt.Errorf("decode archive %s snapshot: %w", a.ID, err)
	}
	var err error
	if a.DishOrderIDs, err = decodeIDs(dishIDs); err != nil {
		return nil, fmt.Errorf("decode archive %s order ids: %w", a.ID, err)
	}
	if a.DrinkOrderIDs, err = decodeIDs(drinkIDs); err != nil {
		return nil, fmt.Errorf("decode archive %s drink order ids: %w", a.ID, err)
	}
	a.Payment.Cash = money.Round2(a.Payment.Cash)
	a.Payment.Card = money.Round2(a.Payment.Card)
	a.Total = money.Round2(a.Total)
	a.CreatedAt = fromMillis(created)
	return &a, nil
}

func (s *Store) CreateArchive(ctx context.Context, a *pos.Archive) error {
	snapshot, err := encodeJSON(a.Snapshot)
	if err != nil {
		return err
	}
	dishIDs, err := encodeIDs(a.DishOrderIDs)
	if err != nil {
		return err
	}
	drinkIDs, err := encodeIDs(a.DrinkOrderIDs)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO pos_archives (`+archiveColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.TableNumber, a.SessionKey, snapshot, dishIDs, drinkIDs,
		money.Round2(a.Payment.Cash), money.Round2(a.Payment.Card), money.Round2(a.Total), toMillis(a.CreatedAt),
	)
	if isUniqueViolation(err) {
		return &pos.ConflictError{Reason: fmt.Sprintf("table %d session is already archived", a.TableNumber)}
	}
	return err
}

func (s *Store) GetArchive(ctx context.Context, id string) (*pos.Archive, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+archiveColumns+` FROM pos_archives WHERE id = ?`, id)
	a, err := scanArchive(row)
	if err != nil {
		return nil, notFoundOr(err, "archive", id)
	}
	return a, nil
}

func (s *Store) GetArchiveBySession(ctx context.Context, sessionKey string) (*pos.Archive, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+archiveColumns+` FROM pos_archives WHERE session_key = ?`, sessionKey)
	a, err := scanArchive(row)
	if err != nil {
		return nil, notFoundOr(err, "archive session", sessionKey)
	}
	return a, nil
}

func (s *Store) ListArchives(ctx context.Context, f pos.ArchiveFilter) ([]*pos.Archive, error) {
	var (
		where []string
		args  []any
	)
	if f.TableNumber > 0 {
		where = append(where, "table_number = ?")
		args = append(args, f.TableNumber)
	}
	if !f.From.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, toMillis(f.From))
	}
	if !f.To.IsZero() {
		where = append(where, "created_at < ?")
		args = append(args, toMillis(f.To))
	}
	q := `SELECT ` + archiveColumns + ` FROM pos_archives`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY created_at DESC, id ASC`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	archives := []*pos.Archive{}
	for rows.Next() {
		a, err := scanArchive(rows)
		if err != nil {
			return nil, err
		}
		archives = append(archives, a)
	}
	return archives, rows.Err()
}

// UpdateArchive rewrites everything but the id and session key.
func (s *Store) UpdateArchive(ctx context.Context, a *pos.Archive) error {
	snapshot, err := encodeJSON(a.Snapshot)
	if err != nil {
		return err
	}
	dishIDs, err := encodeIDs(a.DishOrderIDs)
	if err != nil {
		return err
	}
	drinkIDs, err := encodeIDs(a.DrinkOrderIDs)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE pos_archives SET table_number = ?, snapshot_json = ?, dish_order_ids = ?, drink_order_ids = ?, cash = ?, card = ?, total = ?, created_at = ? WHERE id = ?`,
		a.TableNumber, snapshot, dishIDs, drinkIDs,
		money.Round2(a.Payment.Cash), money.Round2(a.Payment.Card), money.Round2(a.Total), toMillis(a.CreatedAt),
		a.ID,
	)
	if err != nil {
		return err
	}
	return mustAffect(res, "archive", a.ID)
}

func (s *Store) DeleteArchive(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM pos_archives WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return mustAffect(res, "archive", id)
}
