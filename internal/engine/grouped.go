package engine

import (
	"sort"

	"rateios/internal/core"
	"rateios/internal/normalize"
)

// BuildGroupedView joins budgets and months and aggregates the result by
// core.GroupKey. Groups are sorted by key.
func BuildGroupedView(budgets, months []normalize.Record) ([]core.GroupedRow, error) {
	detail, err := BuildDetailView(budgets, months)
	if err != nil {
		return nil, err
	}
	return GroupDetailRows(detail), nil
}

// GroupDetailRows sums base, months and total per group and keeps the
// largest adjustment percentage. Null months and bases count as zero; the
// percentage stays null only when every member is null.
func GroupDetailRows(rows []core.DetailRow) []core.GroupedRow {
	acc := make(map[core.GroupKey]*core.GroupedRow)
	for _, r := range rows {
		k := r.Key()
		g, ok := acc[k]
		if !ok {
			g = &core.GroupedRow{GroupKey: k}
			acc[k] = g
		}
		g.Base = g.Base.Add(core.Coalesce(r.Base))
		for i, m := range r.Months {
			g.Months[i] = g.Months[i].Add(core.Coalesce(m))
		}
		g.Total = g.Total.Add(r.AnnualTotal)
		if r.AdjustmentPercentage.Valid {
			if !g.AdjustmentPercentage.Valid || r.AdjustmentPercentage.Decimal.GreaterThan(g.AdjustmentPercentage.Decimal) {
				g.AdjustmentPercentage = r.AdjustmentPercentage
			}
		}
	}

	out := make([]core.GroupedRow, 0, len(acc))
	for _, g := range acc {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].GroupKey.Less(out[j].GroupKey)
	})
	return out
}
