package engine

// Flattened field names of a budget record.
const (
	BudgetID                   = "id"
	BudgetContract             = "contractNumber"
	BudgetAdjustmentMonth      = "adjustmentMonth"
	BudgetAdjustmentPercentage = "adjustmentPercentage"
	BudgetValue                = "value"
	BudgetSupplierCode         = "supplier_code"
	BudgetSupplierDescription  = "supplier_description"
	BudgetAccountCode          = "budgetAccount_code"
	BudgetAccountDescription   = "budgetAccount_description"
	BudgetOrigin               = "origin_description"
	BudgetLevel                = "levelSix_description"
	BudgetManager              = "manager_description"
	BudgetCriterion            = "apportionment_name"
	BudgetCriterionDescription = "apportionment_description"
	BudgetYear                 = "cycle_budgetYear"
)

// Flattened field names of a budget month record. Month values use the
// names in core.MonthFields.
const (
	MonthBudgetID       = "budgetId"
	MonthBase           = "budgetApportionmentItem_base"
	MonthSectorCode     = "budgetApportionmentItem_sector_code"
	MonthCostCenterCode = "budgetApportionmentItem_sector_codeCostCenter"
	MonthSectorName     = "budgetApportionmentItem_sector_name"
	MonthCompany        = "budgetApportionmentItem_sector_company_name"
)

// Relation names used in data errors.
const (
	RelationBudgets = "budgets"
	RelationMonths  = "budget_months"
)
