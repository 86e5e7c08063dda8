package engine

import (
	"rateios/internal/core"
	"rateios/internal/normalize"
)

// BuildDetailView inner-joins budgets and months and projects one DetailRow
// per match. Either side being empty yields an empty view. A malformed
// numeric value in any matched record aborts with a *core.DataError.
func BuildDetailView(budgets, months []normalize.Record) ([]core.DetailRow, error) {
	pairs := hashJoin(budgets, months)
	rows := make([]core.DetailRow, 0, len(pairs))
	for _, p := range pairs {
		row, err := project(p, budgets[p.budgetIdx], months[p.monthIdx])
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func project(p pair, budget, month normalize.Record) (core.DetailRow, error) {
	b := &extractor{relation: RelationBudgets, index: p.budgetIdx, rec: budget}
	m := &extractor{relation: RelationMonths, index: p.monthIdx, rec: month}

	row := core.DetailRow{
		BudgetID:             p.key,
		Contract:             b.text(BudgetContract),
		AdjustmentMonth:      b.text(BudgetAdjustmentMonth),
		AdjustmentPercentage: b.number(BudgetAdjustmentPercentage),
		Value:                b.number(BudgetValue),
		SupplierCode:         b.text(BudgetSupplierCode),
		AccountCode:          b.text(BudgetAccountCode),
		AccountDescription:   b.text(BudgetAccountDescription),
		Supplier:             b.text(BudgetSupplierDescription),
		Origin:               b.text(BudgetOrigin),
		SectorCode:           m.text(MonthSectorCode),
		CostCenterCode:       m.text(MonthCostCenterCode),
		SectorName:           m.text(MonthSectorName),
		Base:                 m.number(MonthBase),
		Company:              m.text(MonthCompany),
		Level:                b.text(BudgetLevel),
		Manager:              b.text(BudgetManager),
		Criterion:            b.text(BudgetCriterion),
		CriterionDescription: b.text(BudgetCriterionDescription),
		Year:                 b.text(BudgetYear),
	}
	for i, name := range core.MonthFields {
		row.Months[i] = m.number(name)
	}
	if b.err != nil {
		return core.DetailRow{}, b.err
	}
	if m.err != nil {
		return core.DetailRow{}, m.err
	}
	row.AnnualTotal = core.SumMonths(row.Months)
	return row, nil
}
