package report

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"rateios/internal/core"
	"rateios/internal/engine"
	"rateios/internal/log"

	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"
)

// Observer is notified of every workbook outcome. metrics.Recorder
// satisfies it.
type Observer interface {
	ObserveFile(kind string, ok bool)
}

// Writer writes report workbooks.
type Writer struct {
	workers  int
	logger   *log.Logger
	observer Observer
}

// Option configures a Writer.
type Option func(*Writer)

// WithWorkers bounds how many contract workbooks are written at once.
func WithWorkers(n int) Option {
	return func(w *Writer) {
		if n > 0 {
			w.workers = n
		}
	}
}

// WithObserver reports file outcomes to o.
func WithObserver(o Observer) Option {
	return func(w *Writer) { w.observer = o }
}

// NewWriter returns a Writer that writes one contract workbook at a time
// unless WithWorkers says otherwise.
func NewWriter(logger *log.Logger, opts ...Option) *Writer {
	if logger == nil {
		logger = log.Discard()
	}
	w := &Writer{workers: 1, logger: logger.WithComponent(log.ComponentReport)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WriteDetailAndGroupedReports writes the validation and controllership
// workbooks, one sheet each. Both files are attempted; the returned error
// joins every failure.
func (w *Writer) WriteDetailAndGroupedReports(ctx context.Context, detail []core.DetailRow, grouped []core.GroupedRow, pathDetail, pathGrouped string) ([]core.FileResult, error) {
	detailTable := make([][]any, 0, len(detail)+1)
	detailTable = append(detailTable, DetailHeader())
	for _, r := range detail {
		detailTable = append(detailTable, DetailValues(r))
	}

	results := []core.FileResult{
		w.writeTable(ctx, core.FileDetail, pathDetail, detailTable),
		w.writeTable(ctx, core.FileGrouped, pathGrouped, GroupedTable(grouped)),
	}
	return results, joinErrors(results)
}

// WriteContractReports writes one workbook per distinct budget id in detail
// into outputDir. Workbooks are independent; a failure does not stop the
// others.
func (w *Writer) WriteContractReports(ctx context.Context, detail []core.DetailRow, outputDir string) ([]core.FileResult, error) {
	reports := engine.BuildContractReports(detail)

	results := make([]core.FileResult, len(reports))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.workers)
	for i, rep := range reports {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = w.writeContract(gctx, rep, outputDir)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, joinErrors(results)
}

// WriteContractReport writes the workbook of a single budget id. An id
// without rows is skipped with a warning and ok=false.
func (w *Writer) WriteContractReport(ctx context.Context, detail []core.DetailRow, budgetID, outputDir string) (core.FileResult, bool) {
	rep, ok := engine.NewContractReport(budgetID, detail)
	if !ok {
		w.logger.WarnContext(ctx, "No rows for budget, skipping contract workbook", log.FieldBudgetID, budgetID)
		return core.FileResult{}, false
	}
	return w.writeContract(ctx, rep, outputDir), true
}

func (w *Writer) writeContract(ctx context.Context, rep core.ContractReport, outputDir string) core.FileResult {
	path := filepath.Join(outputDir, ContractFileName(rep))
	res := core.FileResult{Kind: core.FileContract, Path: path, BudgetID: rep.BudgetID, Rows: len(rep.Lines)}

	f, err := contractWorkbook(rep)
	if err != nil {
		res.Err = &core.WriteError{Path: path, Err: fmt.Errorf("build workbook: %w", err)}
	} else {
		res.Err = save(f, path)
		_ = f.Close()
	}
	w.report(ctx, res)
	return res
}

func (w *Writer) writeTable(ctx context.Context, kind, path string, table [][]any) core.FileResult {
	res := core.FileResult{Kind: kind, Path: path, Rows: len(table) - 1}
	res.Err = w.saveTable(path, table)
	w.report(ctx, res)
	return res
}

func (w *Writer) saveTable(path string, table [][]any) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Sheet1"
	for i := range table {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return &core.WriteError{Path: path, Err: err}
		}
		if err := f.SetSheetRow(sheet, cell, &table[i]); err != nil {
			return &core.WriteError{Path: path, Err: fmt.Errorf("row %d: %w", i+1, err)}
		}
	}
	return save(f, path)
}

func (w *Writer) report(ctx context.Context, res core.FileResult) {
	if w.observer != nil {
		w.observer.ObserveFile(res.Kind, res.OK())
	}
	fields := log.NewFields().WithOperation(log.OpWrite).WithFile(res.Kind, res.Path, res.Rows)
	if res.BudgetID != "" {
		fields.WithBudget(res.BudgetID)
	}
	if res.Err != nil {
		fields.WithError(res.Err, core.ErrorCode(res.Err))
		w.logger.ErrorContext(ctx, "Report write failed", fields.ToSlice()...)
		return
	}
	w.logger.InfoContext(ctx, "Report written", fields.ToSlice()...)
}

func joinErrors(results []core.FileResult) error {
	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return errors.Join(errs...)
}
