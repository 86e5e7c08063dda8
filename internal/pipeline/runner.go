// Package pipeline runs one reporting pass: fetch, join, aggregate, write
// and publish.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"rateios/internal/core"
	"rateios/internal/engine"
	"rateios/internal/log"
	"rateios/internal/metrics"
	"rateios/internal/normalize"
	"rateios/internal/publish"

	"github.com/google/uuid"
)

// Fetcher reads budgets and their months. *sgo.Client satisfies it.
type Fetcher interface {
	FetchAllBudgets(ctx context.Context) ([]map[string]any, error)
	FetchBudgetMonths(ctx context.Context, budgetID string) ([]map[string]any, error)
}

// ReportWriter writes the workbooks. *report.Writer satisfies it.
type ReportWriter interface {
	WriteDetailAndGroupedReports(ctx context.Context, detail []core.DetailRow, grouped []core.GroupedRow, pathDetail, pathGrouped string) ([]core.FileResult, error)
	WriteContractReports(ctx context.Context, detail []core.DetailRow, outputDir string) ([]core.FileResult, error)
}

// Publisher distributes the finished run. *publish.Set satisfies it.
type Publisher interface {
	Publish(ctx context.Context, report publish.RunReport) error
}

// Settings are the per-run destinations and switches.
type Settings struct {
	DetailPath    string
	GroupedPath   string
	ContractsDir  string
	SkipContracts bool
	PublishStrict bool
	MetricsFile   string
}

type Runner struct {
	fetcher   Fetcher
	writer    ReportWriter
	publisher Publisher
	metrics   *metrics.Recorder
	settings  Settings
	logger    *log.Logger
	now       func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithPublisher runs p after the workbooks are written.
func WithPublisher(p Publisher) Option {
	return func(r *Runner) { r.publisher = p }
}

// WithMetrics records run metrics into m.
func WithMetrics(m *metrics.Recorder) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

func New(fetcher Fetcher, writer ReportWriter, settings Settings, logger *log.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = log.Discard()
	}
	r := &Runner{
		fetcher:  fetcher,
		writer:   writer,
		settings: settings,
		logger:   logger.WithComponent(log.ComponentPipeline),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.metrics == nil {
		r.metrics = metrics.NewRecorder()
	}
	return r
}

// Run executes one pass. The returned summary is never nil; on a fatal
// error it describes how far the run got. Budget months that stay rate
// limited after every retry are listed in FailedBudgetIDs and do not fail
// the run. Any other fetch error, or malformed numeric data, aborts before
// a file is written.
func (r *Runner) Run(ctx context.Context) (summary *core.RunSummary, err error) {
	summary = &core.RunSummary{RunID: uuid.NewString(), StartedAt: r.now()}
	logger := r.logger.With(log.FieldRunID, summary.RunID)
	ctx = log.IntoContext(ctx, logger)

	defer func() {
		if summary.FinishedAt.IsZero() {
			summary.FinishedAt = r.now()
		}
		r.finish(ctx, logger, summary, err)
	}()

	logger.InfoContext(ctx, "Run started")

	budgets, months, err := r.fetch(ctx, logger, summary)
	if err != nil {
		return summary, err
	}

	detail, err := engine.BuildDetailView(normalize.FlattenAll(budgets), normalize.FlattenAll(months))
	if err != nil {
		return summary, fmt.Errorf("build detail view: %w", err)
	}
	grouped := engine.GroupDetailRows(detail)
	summary.DetailRows, summary.GroupedRows = len(detail), len(grouped)
	r.metrics.SetViewRows("detail", len(detail))
	r.metrics.SetViewRows("grouped", len(grouped))
	logger.InfoContext(ctx, "Views built",
		log.FieldOperation, log.OpAggregate, "detail_rows", len(detail), "grouped_rows", len(grouped))

	files, werr := r.writer.WriteDetailAndGroupedReports(ctx, detail, grouped, r.settings.DetailPath, r.settings.GroupedPath)
	summary.Files = append(summary.Files, files...)
	if werr != nil {
		logger.WarnContext(ctx, "Some reports were not written", log.FieldError, werr.Error())
	}

	if r.settings.SkipContracts {
		logger.InfoContext(ctx, "Contract workbooks skipped")
	} else {
		files, cerr := r.writer.WriteContractReports(ctx, detail, r.settings.ContractsDir)
		summary.Files = append(summary.Files, written(files)...)
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if cerr != nil {
			logger.WarnContext(ctx, "Some contract workbooks were not written", log.FieldError, cerr.Error())
		}
	}

	// Publishers receive a copy, so the run is stamped finished first.
	summary.FinishedAt = r.now()
	if r.publisher != nil {
		perr := r.publisher.Publish(ctx, publish.RunReport{
			Summary:   *summary,
			Grouped:   grouped,
			Locations: make(map[string]string),
		})
		if perr != nil {
			if r.settings.PublishStrict {
				return summary, fmt.Errorf("publish: %w", perr)
			}
			logger.WarnContext(ctx, "Publishing failed, run result unaffected", log.FieldError, perr.Error())
		}
	}
	return summary, nil
}

// fetch lists budgets and collects the months of every distinct budget id,
// one request sequence at a time.
func (r *Runner) fetch(ctx context.Context, logger *log.Logger, summary *core.RunSummary) (budgets, months []map[string]any, err error) {
	budgets, err = r.fetcher.FetchAllBudgets(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch budgets: %w", err)
	}
	summary.Budgets = len(budgets)
	r.metrics.SetBudgets(len(budgets))

	ids := r.budgetIDs(ctx, logger, budgets, summary)
	for i, id := range ids {
		logger.InfoContext(ctx, "Fetching budget months",
			log.FieldBudgetID, id, log.FieldProgress, fmt.Sprintf("%d/%d", i+1, len(ids)))

		batch, err := r.fetcher.FetchBudgetMonths(ctx, id)
		switch {
		case err == nil:
			r.metrics.MonthFetch(metrics.ResultOK)
			months = append(months, batch...)
		case errors.Is(err, core.ErrRateLimitExhausted):
			r.metrics.MonthFetch(metrics.ResultRateLimited)
			summary.FailedBudgetIDs = append(summary.FailedBudgetIDs, id)
			logger.WarnContext(ctx, "Budget months skipped after rate limiting",
				log.NewFields().WithBudget(id).WithError(err, core.ErrorCode(err)).ToSlice()...)
		default:
			r.metrics.MonthFetch(metrics.ResultFailed)
			return nil, nil, fmt.Errorf("fetch months of budget %s: %w", id, err)
		}
	}
	return budgets, months, nil
}

// budgetIDs returns the distinct ids in list order. Budgets without an id
// are counted as skipped.
func (r *Runner) budgetIDs(ctx context.Context, logger *log.Logger, budgets []map[string]any, summary *core.RunSummary) []string {
	seen := make(map[string]bool, len(budgets))
	ids := make([]string, 0, len(budgets))
	for i, b := range budgets {
		id, ok := core.FormatText(b[engine.BudgetID])
		id = strings.TrimSpace(id)
		if !ok || id == "" {
			summary.SkippedBudgets++
			r.metrics.BudgetSkipped()
			logger.WarnContext(ctx, "Budget without id skipped", "index", i)
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

func (r *Runner) finish(ctx context.Context, logger *log.Logger, s *core.RunSummary, err error) {
	r.metrics.RunFinished(s.FinishedAt, err == nil)
	if path := r.settings.MetricsFile; path != "" {
		if werr := r.metrics.WriteTextfile(path); werr != nil {
			logger.ErrorContext(ctx, "Metrics file not written", log.FieldFile, path, log.FieldError, werr.Error())
		}
	}

	elapsed := s.FinishedAt.Sub(s.StartedAt)
	if err != nil {
		logger.ErrorContext(ctx, "Run failed",
			log.NewFields().WithError(err, core.ErrorCode(err)).ToSlice()...)
		return
	}
	logger.InfoContext(ctx, "Run completed",
		"budgets", s.Budgets,
		"failed_budgets", len(s.FailedBudgetIDs),
		"skipped_budgets", s.SkippedBudgets,
		"detail_rows", s.DetailRows,
		"grouped_rows", s.GroupedRows,
		"files", len(s.Files),
		"files_written", len(s.WrittenFiles()),
		log.FieldDuration, elapsed.Milliseconds())
}

// written drops results of workers that never ran.
func written(files []core.FileResult) []core.FileResult {
	out := files[:0:0]
	for _, f := range files {
		if f.Path != "" {
			out = append(out, f)
		}
	}
	return out
}
