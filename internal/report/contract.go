package report

import (
	"fmt"
	"strings"

	"rateios/internal/core"

	"github.com/xuri/excelize/v2"
)

const (
	maxSheetName  = 31
	contractSheet = "Contrato"
	// summaryRow is the first row written after the merged header cells.
	summaryRow = 3
)

var unsafeName = strings.NewReplacer("/", "_", `\`, "_", " ", "_")

// SafeName replaces path separators and spaces with underscores.
func SafeName(s string) string {
	return unsafeName.Replace(s)
}

// ContractFileName is {year}_{supplier}_{budgetId}.xlsx; the year part is
// omitted when the budget has no cycle year.
func ContractFileName(rep core.ContractReport) string {
	h := rep.Header()
	parts := make([]string, 0, 3)
	if h.Year.Valid && h.Year.String != "" {
		parts = append(parts, SafeName(h.Year.String))
	}
	supplier := SafeName(h.Supplier.String)
	if supplier == "" {
		supplier = "sem_fornecedor"
	}
	parts = append(parts, supplier, SafeName(rep.BudgetID))
	return strings.Join(parts, "_") + ".xlsx"
}

// sheetName derives a valid worksheet title from the supplier name.
func sheetName(supplier string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case ':', '*', '?', '[', ']', '/', '\\', '\'':
			return '_'
		}
		return r
	}, SafeName(supplier))
	if r := []rune(name); len(r) > maxSheetName {
		name = string(r[:maxSheetName])
	}
	if name == "" {
		return contractSheet
	}
	return name
}

// contractWorkbook lays out the header block and the apportionment table
// of one contract:
//
//	row 1-2  Critério | Conta Contábil | Descrição de Conta (merged)
//	row 3-4  contract, supplier, adjustment and rule
//	row 5-6  blank
//	row 7    table header
//	row 8+   one line per sector
func contractWorkbook(rep core.ContractReport) (*excelize.File, error) {
	h := rep.Header()
	f := excelize.NewFile()
	sheet := sheetName(h.Supplier.String)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		f.Close()
		return nil, err
	}

	for _, rng := range [][2]string{{"A1", "C1"}, {"A2", "C2"}, {"E1", "F1"}, {"E2", "F2"}} {
		if err := f.MergeCell(sheet, rng[0], rng[1]); err != nil {
			f.Close()
			return nil, err
		}
	}

	adjustment := ""
	if h.AdjustmentPercentage.Valid {
		adjustment = Percent(h.AdjustmentPercentage.Decimal)
	}

	cells := []struct {
		cell  string
		value any
	}{
		{"A1", "Critério"},
		{"A2", text(h.Criterion)},
		{"D1", "Conta Contábil"},
		{"D2", text(h.AccountCode)},
		{"E1", "Descrição de Conta"},
		{"E2", text(h.AccountDescription)},
	}
	for _, c := range cells {
		if err := f.SetCellValue(sheet, c.cell, c.value); err != nil {
			f.Close()
			return nil, err
		}
	}

	rows := [][]any{
		{"NR_CONTRATO", "CD_FORNECEDOR", "NM_FORNECEDOR", "Mês Reajuste", "% de Reajuste", "Regra"},
		{text(h.Contract), text(h.SupplierCode), text(h.Supplier), text(h.AdjustmentMonth), adjustment, text(h.CriterionDescription)},
	}
	rows = append(rows, nil, nil, ContractHeader())
	for _, l := range rep.Lines {
		rows = append(rows, ContractValues(l))
	}

	for i, row := range rows {
		if row == nil {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, summaryRow+i)
		if err != nil {
			f.Close()
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			f.Close()
			return nil, fmt.Errorf("row %d: %w", summaryRow+i, err)
		}
	}
	return f, nil
}
