package engine

import (
	"rateios/internal/core"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// BuildContractReports splits the detail view by budget id, in order of
// first appearance, and computes each line's share of the contract base.
func BuildContractReports(rows []core.DetailRow) []core.ContractReport {
	var order []string
	byID := make(map[string][]core.DetailRow)
	for _, r := range rows {
		if _, ok := byID[r.BudgetID]; !ok {
			order = append(order, r.BudgetID)
		}
		byID[r.BudgetID] = append(byID[r.BudgetID], r)
	}

	out := make([]core.ContractReport, 0, len(order))
	for _, id := range order {
		if rep, ok := NewContractReport(id, byID[id]); ok {
			out = append(out, rep)
		}
	}
	return out
}

// NewContractReport keeps the rows of budgetID and sets Percentual =
// 100 * BASE / sum(BASE), or zero when the sum is zero. ok is false when no
// row belongs to budgetID.
func NewContractReport(budgetID string, rows []core.DetailRow) (core.ContractReport, bool) {
	rep := core.ContractReport{BudgetID: budgetID, TotalBase: decimal.Zero}
	for _, r := range rows {
		if r.BudgetID != budgetID {
			continue
		}
		rep.Lines = append(rep.Lines, core.ContractLine{DetailRow: r})
		rep.TotalBase = rep.TotalBase.Add(core.Coalesce(r.Base))
	}
	if len(rep.Lines) == 0 {
		return core.ContractReport{}, false
	}
	for i := range rep.Lines {
		if rep.TotalBase.IsZero() {
			rep.Lines[i].Percentual = decimal.Zero
			continue
		}
		rep.Lines[i].Percentual = core.Coalesce(rep.Lines[i].Base).Mul(hundred).Div(rep.TotalBase)
	}
	return rep, true
}
