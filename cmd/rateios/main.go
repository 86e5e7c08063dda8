package main

import (
	"context"
	"fmt"
	"os"

	"rateios/internal/cli"
	"rateios/internal/config"
	"rateios/internal/log"
	"rateios/internal/metrics"
	"rateios/internal/pipeline"
	"rateios/internal/publish"
	"rateios/internal/report"
	"rateios/internal/sgo"
	"rateios/internal/sheets/memory"

	"github.com/spf13/cobra"
)

type flags struct {
	envFile       string
	outputDir     string
	contractsDir  string
	workers       int
	skipContracts bool
	logLevel      string
	metricsFile   string
	publishStrict bool
	dryRun        bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "rateios:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:   "rateios",
		Short: "Build the SGO budget apportionment workbooks",
		Long: "Fetches every budget and its apportionment months from the SGO API, " +
			"writes the validation, controllership and per-contract workbooks, " +
			"and optionally publishes the run to Google Sheets, Azure Blob and AMQP.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, f)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&f.envFile, "env-file", "", "load environment from this file (default .env when present)")
	fs.StringVar(&f.outputDir, "output-dir", "", "directory of the detail and grouped workbooks (OUTPUT_DIR)")
	fs.StringVar(&f.contractsDir, "contracts-dir", "", "directory of the contract workbooks (CONTRACTS_DIR)")
	fs.IntVar(&f.workers, "workers", 0, "contract workbooks written concurrently (REPORT_WORKERS)")
	fs.BoolVar(&f.skipContracts, "skip-contracts", false, "do not write contract workbooks (SKIP_CONTRACTS)")
	fs.StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error (LOG_LEVEL)")
	fs.StringVar(&f.metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile (METRICS_FILE)")
	fs.BoolVar(&f.publishStrict, "publish-strict", false, "fail the run when a publisher fails (PUBLISH_STRICT)")
	fs.BoolVar(&f.dryRun, "dry-run", false, "write workbooks but keep the grouped table in memory instead of publishing")
	return cmd
}

// applyFlags overrides cfg with the flags the user set explicitly.
func applyFlags(cmd *cobra.Command, f flags, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("output-dir") {
		cfg.OutputDir = f.outputDir
		if !changed("contracts-dir") && os.Getenv("CONTRACTS_DIR") == "" {
			cfg.ContractsDir = ""
		}
	}
	if changed("contracts-dir") {
		cfg.ContractsDir = f.contractsDir
	}
	if changed("workers") {
		cfg.ReportWorkers = f.workers
	}
	if changed("skip-contracts") {
		cfg.SkipContracts = f.skipContracts
	}
	if changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if changed("metrics-file") {
		cfg.MetricsFile = f.metricsFile
	}
	if changed("publish-strict") {
		cfg.PublishStrict = f.publishStrict
	}
}

func run(cmd *cobra.Command, f flags) error {
	if err := cli.LoadEnvFile(f.envFile); err != nil {
		return err
	}
	cfg := config.Load()
	applyFlags(cmd, f, cfg)

	logger := cli.SetupLogger(cfg.LogLevel, cmd.OutOrStdout())
	if err := cli.ValidateConfig(logger, cfg); err != nil {
		return err
	}

	ctx, stop := cli.SignalContext(cmd.Context(), logger)
	defer stop()

	recorder := metrics.NewRecorder()
	client, err := sgo.NewClient(sgo.Options{
		BaseURL:          cfg.SGOBaseURL,
		Token:            cfg.SGOToken,
		BudgetsPath:      cfg.SGOBudgetsPath,
		BudgetMonthsPath: cfg.SGOBudgetMonthsPath,
		Timeout:          cfg.RequestTimeout,
		MaxRetries:       cfg.MaxRetries,
		RetryBaseDelay:   cfg.RetryBaseDelay,
		PaceInterval:     cfg.PaceInterval,
		Observer:         recorder,
		Logger:           logger,
	})
	if err != nil {
		return err
	}

	publishers, cleanup, err := buildPublishers(ctx, cfg, f.dryRun, logger)
	if err != nil {
		logger.Error("Publisher setup failed", log.FieldOperation, log.OpStartup, log.FieldError, err.Error())
		return err
	}
	defer func() {
		if err := cleanup(); err != nil {
			logger.Warn("Publisher cleanup failed", log.FieldError, err.Error())
		}
	}()

	writer := report.NewWriter(logger,
		report.WithWorkers(cfg.ReportWorkers),
		report.WithObserver(recorder))

	runner := pipeline.New(client, writer, pipeline.Settings{
		DetailPath:    cfg.DetailPath(),
		GroupedPath:   cfg.GroupedPath(),
		ContractsDir:  cfg.ContractsDir,
		SkipContracts: cfg.SkipContracts,
		PublishStrict: cfg.PublishStrict,
		MetricsFile:   cfg.MetricsFile,
	}, logger,
		pipeline.WithMetrics(recorder),
		pipeline.WithPublisher(publish.NewSet(publishers, recorder, logger)))

	logger.Info("Starting run",
		log.FieldOperation, log.OpStartup,
		"output_dir", cfg.OutputDir,
		"contracts_dir", cfg.ContractsDir,
		"publishers", len(publishers),
		"dry_run", f.dryRun)

	summary, err := runner.Run(ctx)
	if err != nil {
		return err
	}
	if len(summary.FailedBudgetIDs) > 0 {
		logger.Warn("Some budgets were skipped after rate limiting", "budget_ids", summary.FailedBudgetIDs)
	}
	return nil
}

// buildPublishers returns the configured publishers, or a single in-memory
// table when dryRun is set.
func buildPublishers(ctx context.Context, cfg *config.Config, dryRun bool, logger *log.Logger) ([]publish.Publisher, publish.CleanupFunc, error) {
	if dryRun {
		store := memory.New()
		return []publish.Publisher{publish.NewSheetsPublisher(store, cfg.GoogleSheetName, logger)},
			func() error { return nil }, nil
	}

	pcfg, err := publish.FromAppConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	res, err := publish.NewFactory(logger).CreatePublishers(ctx, pcfg)
	if err != nil {
		return nil, nil, err
	}
	return res.Publishers, res.Cleanup, nil
}
