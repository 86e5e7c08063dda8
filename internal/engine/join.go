// Package engine joins budgets with their apportionment months and derives
// the detail, grouped and per-contract views.
package engine

import (
	"rateios/internal/core"
	"rateios/internal/normalize"

	"github.com/shopspring/decimal"
)

// joinKey canonicalizes an id so that 1, 1.0 and "1" compare equal. Null,
// absent and blank ids report ok=false and never match.
func joinKey(v any) (string, bool) {
	if v == nil {
		return "", false
	}
	if d, err := core.ParseDecimal(v); err == nil {
		if !d.Valid {
			return "", false
		}
		return d.Decimal.String(), true
	}
	s, ok := core.FormatText(v)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// pair is one match of the inner join.
type pair struct {
	budgetIdx int
	monthIdx  int
	key       string
}

// hashJoin matches months against budgets on budgets.id == months.budgetId.
// Budgets form the build side; months are probed in input order so the
// output order follows the months relation.
func hashJoin(budgets, months []normalize.Record) []pair {
	if len(budgets) == 0 || len(months) == 0 {
		return nil
	}
	index := make(map[string][]int, len(budgets))
	for i, b := range budgets {
		v, _ := b.Get(BudgetID)
		key, ok := joinKey(v)
		if !ok {
			continue
		}
		index[key] = append(index[key], i)
	}

	var out []pair
	for j, m := range months {
		v, _ := m.Get(MonthBudgetID)
		key, ok := joinKey(v)
		if !ok {
			continue
		}
		for _, i := range index[key] {
			out = append(out, pair{budgetIdx: i, monthIdx: j, key: key})
		}
	}
	return out
}

// extractor reads typed columns from one record and remembers the first
// data error so projections stay linear.
type extractor struct {
	relation string
	index    int
	rec      normalize.Record
	err      error
}

func (x *extractor) text(field string) core.Text {
	v, ok := x.rec.Get(field)
	if !ok {
		return core.Text{}
	}
	s, valid := core.FormatText(v)
	return core.Text{String: s, Valid: valid}
}

func (x *extractor) number(field string) decimal.NullDecimal {
	v, ok := x.rec.Get(field)
	if !ok {
		return decimal.NullDecimal{}
	}
	d, err := core.ParseDecimal(v)
	if err != nil && x.err == nil {
		x.err = &core.DataError{Relation: x.relation, Index: x.index, Field: field, Err: err}
	}
	return d
}
