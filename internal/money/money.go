// Package money holds the decimal arithmetic shared by every running total.
// Totals only ever change through ApplyDelta so that rounding happens in one place.
package money

import "github.com/shopspring/decimal"

// Places is the number of decimal places every stored amount is rounded to.
const Places = 2

var Zero = decimal.Zero

// Round2 rounds half away from zero to two decimal places.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// ApplyDelta adds delta to total and rounds the result.
func ApplyDelta(total, delta decimal.Decimal) decimal.Decimal {
	return Round2(total.Add(delta))
}

// LineTotal is unit * qty, rounded.
func LineTotal(unit decimal.Decimal, qty int) decimal.Decimal {
	return Round2(unit.Mul(decimal.NewFromInt(int64(qty))))
}

// Sum folds values through ApplyDelta starting from zero.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := Zero
	for _, v := range values {
		total = ApplyDelta(total, v)
	}
	return total
}

// Parse accepts "10.5", "10,50" and surrounding spaces.
func Parse(raw string) (decimal.Decimal, error) {
	return decimal.NewFromString(normalize(raw))
}

func normalize(raw string) string {
	out := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case c == ' ' || c == '\t':
			continue
		case c == ',':
			out = append(out, '.')
		default:
			out = append(out, c)
		}
	}
	return string(out)
}

// Equal compares two amounts after rounding both.
func Equal(a, b decimal.Decimal) bool {
	return Round2(a).Equal(Round2(b))
}
