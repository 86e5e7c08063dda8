// Package report renders the detail, grouped and per-contract views as
// xlsx workbooks.
package report

import (
	"fmt"
	"strconv"

	"rateios/internal/core"

	"github.com/shopspring/decimal"
)

var detailMonths = [core.MonthsPerYear]string{
	"Janeiro", "Fevereiro", "Março", "Abril", "Maio", "Junho",
	"Julho", "Agosto", "Setembro", "Outubro", "Novembro", "Dezembro",
}

var upperMonths = [core.MonthsPerYear]string{
	"JANEIRO", "FEVEREIRO", "MARÇO", "ABRIL", "MAIO", "JUNHO",
	"JULHO", "AGOSTO", "SETEMBRO", "OUTUBRO", "NOVEMBRO", "DEZEMBRO",
}

// DetailHeader is the column row of the validation workbook.
func DetailHeader() []any {
	h := []any{
		"Id_Orçamento", "Contrato", "Mes_Reajuste", "Reajuste_Percentual", "Valor",
		"Cod_Fornecedor", "COD_CONTA_CONTABIL", "DESC_CONTA_CONTABIL", "Fornecedor",
		"Origem", "COD_SETOR", "COD_CCUSTO", "CENTRO_CUSTO", "BASE", "EMPRESA", "Nivel",
		"Gestor", "Criterio", "Descricao_criterio", "Ano",
	}
	for _, m := range detailMonths {
		h = append(h, m)
	}
	return append(h, "Total_Anual")
}

// GroupedHeader is the column row of the controllership workbook.
func GroupedHeader() []any {
	h := []any{
		"ANO", "COD_CODCONTA", "CONTA_N05", "COD_FORNECEDOR", "DES_FORNECEDOR", "NIVEL 6",
		"ORIGEM", "Nº CONTRATO", "GESTOR", "COD_SETOR", "COD_CCUSTO", "CENTRO_CUSTO",
		"BASE", "%",
	}
	for _, m := range upperMonths {
		h = append(h, m)
	}
	return append(h, "TOTAL")
}

// ContractHeader is the column row of the data table in a contract workbook.
func ContractHeader() []any {
	h := []any{"EMPRESA", "COD_SETOR", "COD_CCUSTO", "CENTRO_CUSTO", "BASE", "PERCENTUAL"}
	for _, m := range upperMonths {
		h = append(h, m)
	}
	return append(h, "TOTAL_ANUAL")
}

// DetailValues renders one detail row in DetailHeader order.
func DetailValues(r core.DetailRow) []any {
	v := []any{
		budgetID(r.BudgetID), text(r.Contract), text(r.AdjustmentMonth), nullNumber(r.AdjustmentPercentage),
		nullNumber(r.Value), text(r.SupplierCode), text(r.AccountCode), text(r.AccountDescription),
		text(r.Supplier), text(r.Origin), text(r.SectorCode), text(r.CostCenterCode),
		text(r.SectorName), nullNumber(r.Base), text(r.Company), text(r.Level), text(r.Manager),
		text(r.Criterion), text(r.CriterionDescription), text(r.Year),
	}
	for _, m := range r.Months {
		v = append(v, nullNumber(m))
	}
	return append(v, number(r.AnnualTotal))
}

// GroupedValues renders one grouped row in GroupedHeader order.
func GroupedValues(g core.GroupedRow) []any {
	var v []any
	for _, k := range g.GroupKey.Fields() {
		v = append(v, text(k))
	}
	v = append(v, number(g.Base), nullNumber(g.AdjustmentPercentage))
	for _, m := range g.Months {
		v = append(v, number(m))
	}
	return append(v, number(g.Total))
}

// ContractValues renders one contract line in ContractHeader order.
func ContractValues(l core.ContractLine) []any {
	v := []any{
		text(l.Company), text(l.SectorCode), text(l.CostCenterCode), text(l.SectorName),
		nullNumber(l.Base), Percent(l.Percentual),
	}
	for _, m := range l.Months {
		v = append(v, nullNumber(m))
	}
	return append(v, number(l.AnnualTotal))
}

// GroupedTable returns the grouped view as header plus rows.
func GroupedTable(rows []core.GroupedRow) [][]any {
	out := make([][]any, 0, len(rows)+1)
	out = append(out, GroupedHeader())
	for _, g := range rows {
		out = append(out, GroupedValues(g))
	}
	return out
}

// Percent formats d with two decimals and a trailing percent sign.
func Percent(d decimal.Decimal) string {
	return fmt.Sprintf("%s%%", d.StringFixed(2))
}

// Null cells are written as nil so they stay empty in the workbook.
func text(t core.Text) any {
	if !t.Valid {
		return nil
	}
	return t.String
}

// budgetID writes canonical integer ids as numbers and anything else,
// including zero-padded ids, as text.
func budgetID(id string) any {
	if n, err := strconv.ParseInt(id, 10, 64); err == nil && strconv.FormatInt(n, 10) == id {
		return n
	}
	return id
}

func number(d decimal.Decimal) any {
	return d.InexactFloat64()
}

func nullNumber(d decimal.NullDecimal) any {
	if !d.Valid {
		return nil
	}
	return d.Decimal.InexactFloat64()
}
