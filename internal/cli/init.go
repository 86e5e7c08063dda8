// Package cli provides common CLI initialization utilities.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"rateios/internal/config"
	"rateios/internal/log"

	"github.com/joho/godotenv"
)

// SetupLogger builds the process logger at level and makes it the slog
// default. An unknown level falls back to info and is reported.
func SetupLogger(level string, out io.Writer) *log.Logger {
	lvl, err := log.ParseLevel(level)
	cfg := log.DefaultConfig()
	cfg.Level = lvl
	if out != nil {
		cfg.Output = out
	}
	logger := log.New(cfg)
	log.SetDefault(logger)
	if err != nil {
		logger.Warn("Invalid log level, using info", log.FieldError, err.Error())
	}
	return logger
}

// LoadEnvFile loads a .env file for local runs. A missing default .env is
// ignored; an explicitly named file must exist.
func LoadEnvFile(path string) error {
	if path == "" {
		_ = godotenv.Load()
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// ValidateConfig resolves derived paths and validates cfg, logging every
// problem.
func ValidateConfig(logger *log.Logger, cfg *config.Config) error {
	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed",
			log.FieldOperation, log.OpValidate, log.FieldError, err.Error())
		return err
	}
	return nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM. The
// returned stop function restores default signal handling.
func SignalContext(parent context.Context, logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received, cancelling run",
				log.FieldOperation, log.OpShutdown, "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}
