package pos

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"tpvrestaurante/internal/money"
)

const (
	MinScore      = 1
	MaxScore      = 5
	maxCommentLen = 500
)

// Rating is a diner's score for a dish.
type Rating struct {
	ID        string    `json:"id"`
	ItemID    string    `json:"itemId"`
	Score     int       `json:"score"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type RatingSummary struct {
	Count   int             `json:"count"`
	Average decimal.Decimal `json:"average"`
}

func NewRating(id, itemID string, score int, comment string, now time.Time) (*Rating, error) {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return nil, invalid("rating needs a dish id")
	}
	if score < MinScore || score > MaxScore {
		return nil, invalid("score must be between %d and %d, got %d", MinScore, MaxScore, score)
	}
	comment = strings.TrimSpace(comment)
	if utf8.RuneCountInString(comment) > maxCommentLen {
		return nil, invalid("comment is longer than %d characters", maxCommentLen)
	}
	return &Rating{ID: id, ItemID: itemID, Score: score, Comment: comment, CreatedAt: now}, nil
}

// SummarizeRatings averages the scores to two decimals. No ratings gives a zero average.
func SummarizeRatings(ratings []*Rating) RatingSummary {
	sum := RatingSummary{Average: money.Zero}
	total := 0
	for _, r := range ratings {
		if r == nil {
			continue
		}
		sum.Count++
		total += r.Score
	}
	if sum.Count > 0 {
		sum.Average = money.Round2(decimal.NewFromInt(int64(total)).Div(decimal.NewFromInt(int64(sum.Count))))
	}
	return sum
}
