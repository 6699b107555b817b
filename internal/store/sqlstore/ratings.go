package sqlstore

import (
	"context"

	"tpvrestaurante/internal/pos"
)

const ratingColumns = `id, item_id, score, comment, created_at`

func (s *Store) CreateRating(ctx context.Context, r *pos.Rating) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO dish_ratings (`+ratingColumns+`) VALUES (?, ?, ?, ?, ?)`,
		r.ID, r.ItemID, r.Score, r.Comment, toMillis(r.CreatedAt),
	)
	return err
}

// ListRatings returns a dish's ratings, newest first.
func (s *Store) ListRatings(ctx context.Context, itemID string) ([]*pos.Rating, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+ratingColumns+` FROM dish_ratings WHERE item_id = ? ORDER BY created_at DESC, id ASC`,
		itemID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*pos.Rating{}
	for rows.Next() {
		var (
			r       pos.Rating
			created int64
		)
		if err := rows.Scan(&r.ID, &r.ItemID, &r.Score, &r.Comment, &created); err != nil {
			return nil, err
		}
		r.CreatedAt = fromMillis(created)
		out = append(out, &r)
	}
	return out, rows.Err()
}
