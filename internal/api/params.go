package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"tpvrestaurante/internal/money"
	"tpvrestaurante/internal/pos"
)

func isNotFound(err error) bool {
	return errors.Is(err, pos.ErrNotFound)
}

func tableNumberParam(r *http.Request) (int, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "number"))
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, &pos.ValidationError{Reason: "invalid table number " + strconv.Quote(raw)}
	}
	return n, nil
}

func kindParam(r *http.Request) (pos.Kind, error) {
	k := pos.Kind(strings.ToLower(strings.TrimSpace(chi.URLParam(r, "kind"))))
	switch k {
	case "dishes", "dish":
		return pos.KindDish, nil
	case "drinks", "drink":
		return pos.KindDrink, nil
	}
	return "", &pos.ValidationError{Reason: "unknown catalog kind " + strconv.Quote(string(k))}
}

// queryInt returns fallback when the parameter is absent.
func queryInt(r *http.Request, key string, fallback int) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, &pos.ValidationError{Reason: "parameter " + key + " must be a non-negative integer"}
	}
	return n, nil
}

func queryBool(r *http.Request, key string) bool {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

func parseInstant(key, v string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, &pos.ValidationError{Reason: "parameter " + key + " must be RFC 3339"}
	}
	return t, nil
}

// reportRange reads ?date=YYYY-MM-DD or ?from=&to= (RFC 3339). With neither, the current
// business day is used.
func (s *Server) reportRange(r *http.Request) (time.Time, time.Time, error) {
	q := r.URL.Query()
	from, to := strings.TrimSpace(q.Get("from")), strings.TrimSpace(q.Get("to"))
	if from != "" || to != "" {
		if from == "" || to == "" {
			return time.Time{}, time.Time{}, &pos.ValidationError{Reason: "from and to must be given together"}
		}
		f, err := parseInstant("from", from)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		t, err := parseInstant("to", to)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		if !t.After(f) {
			return time.Time{}, time.Time{}, &pos.ValidationError{Reason: "to must be after from"}
		}
		return f, t, nil
	}
	date := strings.TrimSpace(q.Get("date"))
	if date == "" {
		date = s.reports.Today()
	}
	return s.reports.DayBounds(date)
}

// amountParam reads a JSON number or string amount. Tills send "10,50" as often as 10.5.
// An absent value is zero.
func amountParam(key string, raw json.RawMessage) (decimal.Decimal, error) {
	v := strings.TrimSpace(string(raw))
	if v == "" || v == "null" {
		return decimal.Zero, nil
	}
	if strings.HasPrefix(v, `"`) {
		if err := json.Unmarshal(raw, &v); err != nil {
			return decimal.Zero, &pos.ValidationError{Reason: key + " is not a valid amount"}
		}
	}
	d, err := money.Parse(v)
	if err != nil {
		return decimal.Zero, &pos.ValidationError{Reason: key + " is not a valid amount: " + strconv.Quote(v)}
	}
	return d, nil
}
