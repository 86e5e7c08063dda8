// Package core provides numeric parsing for values coming from the SGO API.
//
// The API sends amounts either as JSON numbers or as numeric strings. A null
// or absent value is kept as null in the detail view and coalesces to zero
// before any sum. Anything else is rejected with ErrMalformedNumber.
package core

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseDecimal converts a flattened JSON scalar into a nullable decimal.
//
// Accepted inputs:
//   nil                    -> null
//   json.Number, float64   -> value
//   int, int64             -> value
//   "12.5", " 12,5 "       -> value (decimal comma normalized)
//   ""                     -> null
//
// A comma is read as the decimal separator only when one or two digits
// follow it; "1,234" is ambiguous and rejected.
func ParseDecimal(v any) (decimal.NullDecimal, error) {
	switch n := v.(type) {
	case nil:
		return decimal.NullDecimal{}, nil
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		if err != nil {
			return decimal.NullDecimal{}, fmt.Errorf("%w: %q", ErrMalformedNumber, n.String())
		}
		return decimal.NewNullDecimal(d), nil
	case float64:
		return decimal.NewNullDecimal(decimal.NewFromFloat(n)), nil
	case float32:
		return decimal.NewNullDecimal(decimal.NewFromFloat32(n)), nil
	case int:
		return decimal.NewNullDecimal(decimal.NewFromInt(int64(n))), nil
	case int64:
		return decimal.NewNullDecimal(decimal.NewFromInt(n)), nil
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return decimal.NullDecimal{}, nil
		}
		if strings.Contains(s, ",") {
			whole, frac, _ := strings.Cut(s, ",")
			if strings.ContainsAny(frac, ",.") || strings.Contains(whole, ".") || len(frac) == 0 || len(frac) > 2 {
				return decimal.NullDecimal{}, fmt.Errorf("%w: %q", ErrMalformedNumber, n)
			}
			s = whole + "." + frac
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.NullDecimal{}, fmt.Errorf("%w: %q", ErrMalformedNumber, n)
		}
		return decimal.NewNullDecimal(d), nil
	default:
		return decimal.NullDecimal{}, fmt.Errorf("%w: unexpected %T", ErrMalformedNumber, v)
	}
}

// Coalesce returns the value or zero when null.
func Coalesce(d decimal.NullDecimal) decimal.Decimal {
	if !d.Valid {
		return decimal.Zero
	}
	return d.Decimal
}

// SumMonths adds the twelve month values with nulls counted as zero.
func SumMonths(months [MonthsPerYear]decimal.NullDecimal) decimal.Decimal {
	total := decimal.Zero
	for _, m := range months {
		total = total.Add(Coalesce(m))
	}
	return total
}

// FormatText renders a flattened scalar as text; ok is false for null.
func FormatText(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case float64:
		return decimal.NewFromFloat(t).String(), true
	case bool:
		if t {
			return "true", true
		}
		return "false", true
	default:
		return fmt.Sprint(t), true
	}
}
