package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

// Prefix is the environment variable prefix, e.g. LEDGER_COST_CENTER_SLOTS.
const Prefix = "LEDGER"

// Config holds runtime configuration for every binary.
type Config struct {
	Env       string `envconfig:"ENV" default:"development" validate:"oneof=development staging production"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"console" validate:"oneof=console json"`

	CostCenterSlots int    `envconfig:"COST_CENTER_SLOTS" default:"10" validate:"min=1,max=50"`
	Sentinel        string `envconfig:"SENTINEL" default:"Unassigned" validate:"required"`
	TimeZone        string `envconfig:"TIME_ZONE" default:"America/Sao_Paulo" validate:"required"`

	ExportBaseURL        string        `envconfig:"EXPORT_BASE_URL" default:"https://services.contaazul.com" validate:"omitempty,url"`
	ExportPayablePath    string        `envconfig:"EXPORT_PAYABLE_PATH" default:"/finance-pro-reports/v1/financial-statement-view/export"`
	ExportReceivablePath string        `envconfig:"EXPORT_RECEIVABLE_PATH" default:"/finance-pro-reports/api/v1/installment-view/export"`
	ExportToken          string        `envconfig:"EXPORT_TOKEN"`
	ExportTimeout        time.Duration `envconfig:"EXPORT_TIMEOUT" default:"60s"`
	ExportConcurrency    int           `envconfig:"EXPORT_CONCURRENCY" default:"4" validate:"min=1,max=16"`
	PayableStatuses      []string      `envconfig:"PAYABLE_STATUSES" default:"ACQUITTED,PARTIAL,PENDING,LOST,RENEGOTIATED,CONCILIATED,OVERDUE" validate:"min=1,dive,required"`
	ReceivableStatuses   []string      `envconfig:"RECEIVABLE_STATUSES" default:"ACQUITTED,PARTIAL,PENDING,LOST" validate:"min=1,dive,required"`

	GCPProject string `envconfig:"GCP_PROJECT"`
	Dataset    string `envconfig:"BQ_DATASET" default:"finance"`

	Bucket        string `envconfig:"GCS_BUCKET"`
	ArchivePrefix string `envconfig:"GCS_ARCHIVE_PREFIX" default:"ledger-exports"`

	SpreadsheetID     string `envconfig:"SHEETS_SPREADSHEET_ID"`
	SheetsCredentials string `envconfig:"SHEETS_CREDENTIALS_FILE"`
	PayablesSheet     string `envconfig:"SHEETS_PAYABLES_TAB" default:"Contas a Pagar"`
	ReceivablesSheet  string `envconfig:"SHEETS_RECEIVABLES_TAB" default:"Contas a Receber"`
	AllocationsSheet  string `envconfig:"SHEETS_ALLOCATIONS_TAB" default:"Dados_Pivotados"`
	InsightsSheet     string `envconfig:"SHEETS_INSIGHTS_TAB" default:"Insights"`

	GeminiModel string `envconfig:"GEMINI_MODEL" default:"gemini-2.5-flash"`

	NotionToken      string `envconfig:"NOTION_TOKEN"`
	NotionDatabaseID string `envconfig:"NOTION_DATABASE_ID"`

	APIAddr        string        `envconfig:"API_ADDR" default:":8080"`
	APIToken       string        `envconfig:"API_TOKEN"`
	WorkerInterval time.Duration `envconfig:"WORKER_INTERVAL" default:"24h" validate:"min=1m"`
}

// Load reads configuration from the environment and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("config: process env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints and cross-field requirements.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := time.LoadLocation(c.TimeZone); err != nil {
		return fmt.Errorf("config: time zone %q: %w", c.TimeZone, err)
	}
	if c.SpreadsheetID != "" && c.SheetsCredentials == "" {
		return fmt.Errorf("config: SHEETS_CREDENTIALS_FILE is required when SHEETS_SPREADSHEET_ID is set")
	}
	if c.NotionDatabaseID != "" && c.NotionToken == "" {
		return fmt.Errorf("config: NOTION_TOKEN is required when NOTION_DATABASE_ID is set")
	}
	return nil
}

// Location returns the processing time zone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsProduction returns true when running in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.Env == "production"
}

// ExportsEnabled reports whether the provider export endpoint is usable.
func (c *Config) ExportsEnabled() bool {
	return c.ExportBaseURL != "" && c.ExportToken != ""
}

// SheetsEnabled reports whether spreadsheet publishing is configured.
func (c *Config) SheetsEnabled() bool {
	return c.SpreadsheetID != ""
}

// NotionEnabled reports whether Notion publishing is configured.
func (c *Config) NotionEnabled() bool {
	return c.NotionDatabaseID != ""
}

// Redacted returns a copy safe to log.
func (c Config) Redacted() Config {
	for _, s := range []*string{&c.ExportToken, &c.NotionToken, &c.APIToken} {
		if *s != "" {
			*s = strings.Repeat("*", 8)
		}
	}
	return c
}
