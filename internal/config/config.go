package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Default locations of the generated workbooks.
const (
	DefaultOutputDir       = "~/Desktop/Arquivos SGO"
	ContractsSubdir        = "Arquivos_Contratos"
	DefaultDetailFileName  = "Validacao dos Dados SGO.xlsx"
	DefaultGroupedFileName = "Controladoria.xlsx"
)

type Config struct {
	// SGO API
	SGOBaseURL          string        `env:"SGO_BASE_URL" validate:"required,url"`
	SGOToken            string        `env:"SGO_TOKEN" validate:"required"`
	SGOBudgetsPath      string        `env:"SGO_BUDGETS_PATH" validate:"required,startswith=/"`
	SGOBudgetMonthsPath string        `env:"SGO_BUDGET_MONTHS_PATH" validate:"required,startswith=/"`
	RequestTimeout      time.Duration `env:"SGO_REQUEST_TIMEOUT" validate:"gt=0"`
	MaxRetries          int           `env:"SGO_MAX_RETRIES" validate:"min=1,max=10"`
	RetryBaseDelay      time.Duration `env:"SGO_RETRY_BASE_DELAY" validate:"gte=0"`
	// PaceInterval below zero disables pacing.
	PaceInterval time.Duration `env:"SGO_PACE_INTERVAL"`

	// Reports
	OutputDir       string `env:"OUTPUT_DIR" validate:"required"`
	ContractsDir    string `env:"CONTRACTS_DIR" validate:"required"`
	DetailFileName  string `env:"DETAIL_FILE_NAME" validate:"required,endswith=.xlsx,excludes=/"`
	GroupedFileName string `env:"GROUPED_FILE_NAME" validate:"required,endswith=.xlsx,excludes=/"`
	ReportWorkers   int    `env:"REPORT_WORKERS" validate:"min=1,max=32"`
	SkipContracts   bool   `env:"SKIP_CONTRACTS"`

	// Observability
	LogLevel    string `env:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	MetricsFile string `env:"METRICS_FILE"`

	// AMQP
	AMQPURL      string `env:"AMQP_URL"`
	AMQPExchange string `env:"AMQP_EXCHANGE"`
	AMQPQueue    string `env:"AMQP_QUEUE"`

	// Google Sheets
	GoogleSpreadsheetID string `env:"GOOGLE_SPREADSHEET_ID"`
	GoogleSheetName     string `env:"GOOGLE_SHEET_NAME"`

	// Azure Blob
	AzureConnectionString string `env:"AZURE_STORAGE_CONNECTION_STRING"`
	AzureBlobServiceURL   string `env:"AZURE_BLOB_SERVICE_URL" validate:"omitempty,url"`
	AzureBlobContainer    string `env:"AZURE_BLOB_CONTAINER"`

	PublishStrict bool `env:"PUBLISH_STRICT"`
}

func Load() *Config {
	cfg := &Config{
		SGOBaseURL:          getEnv("SGO_BASE_URL", "https://apisgo.santacasaba.org.br"),
		SGOToken:            getEnv("SGO_TOKEN", ""),
		SGOBudgetsPath:      getEnv("SGO_BUDGETS_PATH", "/budgets/get-all"),
		SGOBudgetMonthsPath: getEnv("SGO_BUDGET_MONTHS_PATH", "/budget-months/get-by-budget-id"),
		RequestTimeout:      getEnvDuration("SGO_REQUEST_TIMEOUT", 30*time.Second),
		MaxRetries:          getEnvInt("SGO_MAX_RETRIES", 3),
		RetryBaseDelay:      getEnvDuration("SGO_RETRY_BASE_DELAY", 2*time.Second),
		PaceInterval:        getEnvDuration("SGO_PACE_INTERVAL", time.Second),

		OutputDir:       getEnv("OUTPUT_DIR", DefaultOutputDir),
		ContractsDir:    getEnv("CONTRACTS_DIR", ""),
		DetailFileName:  getEnv("DETAIL_FILE_NAME", DefaultDetailFileName),
		GroupedFileName: getEnv("GROUPED_FILE_NAME", DefaultGroupedFileName),
		ReportWorkers:   getEnvInt("REPORT_WORKERS", 1),
		SkipContracts:   getEnvBool("SKIP_CONTRACTS", false),

		LogLevel:    strings.ToLower(getEnv("LOG_LEVEL", "info")),
		MetricsFile: getEnv("METRICS_FILE", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "sgo"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "report_ready"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:     getEnv("GOOGLE_SHEET_NAME", "Controladoria"),

		AzureConnectionString: getEnv("AZURE_STORAGE_CONNECTION_STRING", ""),
		AzureBlobServiceURL:   getEnv("AZURE_BLOB_SERVICE_URL", ""),
		AzureBlobContainer:    getEnv("AZURE_BLOB_CONTAINER", "sgo-reports"),

		PublishStrict: getEnvBool("PUBLISH_STRICT", false),
	}
	cfg.Resolve()
	return cfg
}

// Resolve expands a leading ~ in paths and derives ContractsDir from
// OutputDir when it is empty. It is safe to call more than once.
func (c *Config) Resolve() {
	c.OutputDir = expandHome(c.OutputDir)
	if c.ContractsDir == "" && c.OutputDir != "" {
		c.ContractsDir = filepath.Join(c.OutputDir, ContractsSubdir)
	}
	c.ContractsDir = expandHome(c.ContractsDir)
	c.MetricsFile = expandHome(c.MetricsFile)
}

// DetailPath is the full path of the validation workbook.
func (c *Config) DetailPath() string {
	return filepath.Join(c.OutputDir, c.DetailFileName)
}

// GroupedPath is the full path of the controllership workbook.
func (c *Config) GroupedPath() string {
	return filepath.Join(c.OutputDir, c.GroupedFileName)
}

// AMQPEnabled reports whether the report-ready notification is configured.
func (c *Config) AMQPEnabled() bool { return c.AMQPURL != "" }

// SheetsEnabled reports whether the grouped view is mirrored to Sheets.
func (c *Config) SheetsEnabled() bool { return c.GoogleSpreadsheetID != "" }

// BlobEnabled reports whether workbooks are uploaded to Azure Blob.
func (c *Config) BlobEnabled() bool {
	return c.AzureConnectionString != "" || c.AzureBlobServiceURL != ""
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("env"); name != "" {
			return name
		}
		return f.Name
	})
	return v
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if err := validate.Struct(c); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return fmt.Errorf("validate configuration: %w", err)
		}
		for _, fe := range verrs {
			errors = append(errors, fmt.Sprintf("%s %s", fe.Field(), describe(fe)))
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.SheetsEnabled() && c.GoogleSheetName == "" {
		errors = append(errors, "GOOGLE_SHEET_NAME cannot be empty when GOOGLE_SPREADSHEET_ID is provided")
	}

	if c.BlobEnabled() && c.AzureBlobContainer == "" {
		errors = append(errors, "AZURE_BLOB_CONTAINER cannot be empty when blob upload is configured")
	}

	if c.DetailFileName != "" && c.DetailFileName == c.GroupedFileName {
		errors = append(errors, fmt.Sprintf("DETAIL_FILE_NAME and GROUPED_FILE_NAME must differ, both are '%s'", c.DetailFileName))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "url":
		return fmt.Sprintf("must be a valid URL, got '%v'", fe.Value())
	case "startswith":
		return fmt.Sprintf("must start with '%s'", fe.Param())
	case "endswith":
		return fmt.Sprintf("must end with '%s'", fe.Param())
	case "excludes":
		return fmt.Sprintf("must not contain '%s'", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s, got %v", fe.Param(), fe.Value())
	case "max":
		return fmt.Sprintf("must be at most %s, got %v", fe.Param(), fe.Value())
	case "gt":
		return fmt.Sprintf("must be greater than %s, got %v", fe.Param(), fe.Value())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s, got %v", fe.Param(), fe.Value())
	case "oneof":
		return fmt.Sprintf("must be one of [%s], got '%v'", fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("failed '%s' validation", fe.Tag())
	}
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
