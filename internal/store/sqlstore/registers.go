package sqlstore

import (
	"context"
	"fmt"

	"tpvrestaurante/internal/money"
	"tpvrestaurante/internal/pos"
	"tpvrestaurante/internal/report"
)

const registerColumns = `id, business_date, cash, card, archived, sales_total, tables_closed, detail_json, created_at`

func scanRegisterClose(row rowScanner) (*report.RegisterClose, error) {
	var (
		rc      report.RegisterClose
		detail  string
		created int64
		sum     report.Summary
	)
	if err := row.Scan(&rc.ID, &rc.BusinessDate, &sum.Cash, &sum.Card, &sum.Archived, &sum.SalesTotal, &sum.TablesClosed, &detail, &created); err != nil {
		return nil, err
	}
	if err := decodeJSON(detail, &rc.Summary); err != nil {
		return nil, fmt.Errorf("decode register close %s: %w", rc.BusinessDate, err)
	}
	// Columns win over the stored detail.
	rc.Summary.Cash = money.Round2(sum.Cash)
	rc.Summary.Card = money.Round2(sum.Card)
	rc.Summary.Archived = money.Round2(sum.Archived)
	rc.Summary.SalesTotal = money.Round2(sum.SalesTotal)
	rc.Summary.TablesClosed = sum.TablesClosed
	rc.CreatedAt = fromMillis(created)
	return &rc, nil
}

func (s *Store) CreateRegisterClose(ctx context.Context, rc *report.RegisterClose) error {
	detail, err := encodeJSON(rc.Summary)
	if err != nil {
		return err
	}
	sum := rc.Summary
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO register_closes (`+registerColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rc.ID, rc.BusinessDate, money.Round2(sum.Cash), money.Round2(sum.Card), money.Round2(sum.Archived),
		money.Round2(sum.SalesTotal), sum.TablesClosed, detail, toMillis(rc.CreatedAt),
	)
	if isUniqueViolation(err) {
		return &pos.ConflictError{Reason: fmt.Sprintf("register for %s is already closed", rc.BusinessDate)}
	}
	return err
}

func (s *Store) GetRegisterClose(ctx context.Context, businessDate string) (*report.RegisterClose, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+registerColumns+` FROM register_closes WHERE business_date = ?`, businessDate)
	rc, err := scanRegisterClose(row)
	if err != nil {
		return nil, notFoundOr(err, "register close", businessDate)
	}
	return rc, nil
}

func (s *Store) ListRegisterCloses(ctx context.Context, limit int) ([]*report.RegisterClose, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+registerColumns+` FROM register_closes ORDER BY business_date DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*report.RegisterClose{}
	for rows.Next() {
		rc, err := scanRegisterClose(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rc)
	}
	return out, rows.Err()
}
