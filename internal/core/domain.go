package core

import (
	"database/sql"

	"github.com/shopspring/decimal"
)

// MonthsPerYear is the number of month columns carried by every budget month.
const MonthsPerYear = 12

// Month field names as sent by the SGO API, January first.
var MonthFields = [MonthsPerYear]string{
	"january", "february", "march", "april", "may", "june",
	"july", "august", "september", "october", "november", "december",
}

type (
	// Text is a nullable descriptive value copied from a flattened record.
	Text = sql.NullString

	// DetailRow is one joined (budget, budget month) pair.
	DetailRow struct {
		BudgetID             string
		Contract             Text
		AdjustmentMonth      Text
		AdjustmentPercentage decimal.NullDecimal
		Value                decimal.NullDecimal
		SupplierCode         Text
		AccountCode          Text
		AccountDescription   Text
		Supplier             Text
		Origin               Text
		SectorCode           Text
		CostCenterCode       Text
		SectorName           Text
		Base                 decimal.NullDecimal
		Company              Text
		Level                Text
		Manager              Text
		Criterion            Text
		CriterionDescription Text
		Year                 Text
		Months               [MonthsPerYear]decimal.NullDecimal
		AnnualTotal          decimal.Decimal
	}

	// GroupKey identifies one controllership group.
	GroupKey struct {
		Year               Text
		AccountCode        Text
		AccountDescription Text
		SupplierCode       Text
		Supplier           Text
		Level              Text
		Origin             Text
		Contract           Text
		Manager            Text
		SectorCode         Text
		CostCenterCode     Text
		SectorName         Text
	}

	// GroupedRow aggregates every DetailRow sharing a GroupKey.
	GroupedRow struct {
		GroupKey
		Base                 decimal.Decimal
		AdjustmentPercentage decimal.NullDecimal
		Months               [MonthsPerYear]decimal.Decimal
		Total                decimal.Decimal
	}

	// ContractLine is a DetailRow with its share of the contract base.
	ContractLine struct {
		DetailRow
		Percentual decimal.Decimal
	}

	// ContractReport is the per-budget subset of the detail view.
	ContractReport struct {
		BudgetID  string
		TotalBase decimal.Decimal
		Lines     []ContractLine
	}
)

// Key returns the grouping key of the row.
func (r DetailRow) Key() GroupKey {
	return GroupKey{
		Year:               r.Year,
		AccountCode:        r.AccountCode,
		AccountDescription: r.AccountDescription,
		SupplierCode:       r.SupplierCode,
		Supplier:           r.Supplier,
		Level:              r.Level,
		Origin:             r.Origin,
		Contract:           r.Contract,
		Manager:            r.Manager,
		SectorCode:         r.SectorCode,
		CostCenterCode:     r.CostCenterCode,
		SectorName:         r.SectorName,
	}
}

// Fields returns the key components in grouping order.
func (k GroupKey) Fields() [12]Text {
	return [12]Text{
		k.Year, k.AccountCode, k.AccountDescription, k.SupplierCode, k.Supplier, k.Level,
		k.Origin, k.Contract, k.Manager, k.SectorCode, k.CostCenterCode, k.SectorName,
	}
}

// Less orders keys component by component, nulls before values.
func (k GroupKey) Less(other GroupKey) bool {
	a, b := k.Fields(), other.Fields()
	for i := range a {
		if c := compareText(a[i], b[i]); c != 0 {
			return c < 0
		}
	}
	return false
}

func compareText(a, b Text) int {
	switch {
	case !a.Valid && !b.Valid:
		return 0
	case !a.Valid:
		return -1
	case !b.Valid:
		return 1
	case a.String < b.String:
		return -1
	case a.String > b.String:
		return 1
	}
	return 0
}

// Header returns the first line of the report; callers guarantee Lines is non-empty.
func (c ContractReport) Header() DetailRow {
	return c.Lines[0].DetailRow
}

// NewText builds a valid Text.
func NewText(s string) Text {
	return Text{String: s, Valid: true}
}
