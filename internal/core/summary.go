package core

import "time"

// File kinds produced by a run.
const (
	FileDetail   = "detail"
	FileGrouped  = "grouped"
	FileContract = "contract"
)

// FileResult reports the outcome of one workbook.
type FileResult struct {
	Kind     string
	Path     string
	BudgetID string
	Rows     int
	Err      error
}

// OK reports whether the file was written and found on disk.
func (f FileResult) OK() bool {
	return f.Err == nil
}

// RunSummary is the outcome of one reporting run.
type RunSummary struct {
	RunID           string
	StartedAt       time.Time
	FinishedAt      time.Time
	Budgets         int
	FailedBudgetIDs []string
	SkippedBudgets  int
	DetailRows      int
	GroupedRows     int
	Files           []FileResult
}

// WrittenFiles returns the files that were written successfully.
func (s RunSummary) WrittenFiles() []FileResult {
	out := make([]FileResult, 0, len(s.Files))
	for _, f := range s.Files {
		if f.OK() {
			out = append(out, f)
		}
	}
	return out
}
