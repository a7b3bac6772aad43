package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port               string
	APIKey             string
	RateLimitPerMinute int

	// Ledger
	DataDir        string
	LedgerFile     string
	CategoriesFile string

	// IMAP
	IMAPHost     string
	IMAPPort     int
	IMAPUser     string
	IMAPPassword string
	IMAPFolder   string

	// Exchange rate
	ExchangeRateAPIKey string
	FXCacheTTL         time.Duration

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Mirror index
	SQLiteDBPath string

	// Export
	ExportBackend         string
	GoogleSpreadsheetID   string
	GoogleSheetName       string
	GoogleCredentialsFile string
	GoogleCredentialsJSON string

	// Worker
	ReconcileInterval time.Duration
	ParseWorkers      int

	LogLevel string
}

var (
	validLogLevels      = []string{"debug", "info", "warn", "warning", "error"}
	validExportBackends = []string{"sheets", "memory", "none"}
)

func Load() *Config {
	cfg := &Config{
		Port:               getEnv("PORT", "8000"),
		APIKey:             getEnv("API_KEY", ""),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),

		DataDir:        getEnv("DATA_DIR", "data"),
		LedgerFile:     getEnv("LEDGER_FILE", "ledger.csv"),
		CategoriesFile: getEnv("CATEGORIES_FILE", "categories.csv"),

		IMAPHost:     getEnv("IMAP_HOST", ""),
		IMAPPort:     getEnvInt("IMAP_PORT", 993),
		IMAPUser:     getEnv("IMAP_USER", ""),
		IMAPPassword: getEnv("IMAP_PASSWORD", ""),
		IMAPFolder:   getEnv("IMAP_FOLDER", "INBOX"),

		ExchangeRateAPIKey: getEnv("EXCHANGE_RATE_API_KEY", ""),
		FXCacheTTL:         getEnvDuration("FX_CACHE_TTL", time.Hour),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "mailledger"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_events"),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/index.db"),

		ExportBackend:         getEnv("EXPORT_BACKEND", defaultExportBackend()),
		GoogleSpreadsheetID:   getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:       getEnv("GOOGLE_SHEET_NAME", "Transactions"),
		GoogleCredentialsFile: getEnv("GOOGLE_CREDENTIALS_FILE", ""),
		GoogleCredentialsJSON: getEnv("GOOGLE_CREDENTIALS_JSON", ""),

		ReconcileInterval: getEnvDuration("RECONCILE_INTERVAL", 15*time.Minute),
		ParseWorkers:      getEnvInt("PARSE_WORKERS", 4),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg
}

// LedgerPath is the ledger CSV inside DataDir.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.DataDir, c.LedgerFile)
}

// CategoriesPath is the category CSV inside DataDir.
func (c *Config) CategoriesPath() string {
	return filepath.Join(c.DataDir, c.CategoriesFile)
}

// IMAPConfigured reports whether a mailbox is available for sync and backfill.
func (c *Config) IMAPConfigured() bool {
	return c.IMAPHost != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	// Validate ledger location
	if c.DataDir == "" {
		errors = append(errors, "data directory cannot be empty")
	} else if err := ensureDir(c.DataDir); err != nil {
		errors = append(errors, fmt.Sprintf("cannot create data directory '%s': %v", c.DataDir, err))
	}
	if c.LedgerFile == "" {
		errors = append(errors, "ledger file name cannot be empty")
	}
	if c.CategoriesFile == "" {
		errors = append(errors, "categories file name cannot be empty")
	}

	// Validate IMAP only when a mailbox is configured
	if c.IMAPConfigured() {
		if c.IMAPPort < 1 || c.IMAPPort > 65535 {
			errors = append(errors, fmt.Sprintf("invalid IMAP port %d: must be between 1 and 65535", c.IMAPPort))
		}
		if c.IMAPUser == "" {
			errors = append(errors, "IMAP user is required when IMAP_HOST is set")
		}
		if c.IMAPPassword == "" {
			errors = append(errors, "IMAP password is required when IMAP_HOST is set")
		}
		if c.IMAPFolder == "" {
			errors = append(errors, "IMAP folder cannot be empty")
		}
	}

	if c.FXCacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid FX cache TTL %v: must be at least 1 second", c.FXCacheTTL))
	} else if c.FXCacheTTL > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid FX cache TTL %v: must be at most 24 hours", c.FXCacheTTL))
	}

	errors = append(errors, c.validateAMQP()...)

	// Check if credentials file exists (if specified)
	if c.GoogleCredentialsFile != "" {
		if _, err := os.Stat(c.GoogleCredentialsFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google credentials file does not exist: %s", c.GoogleCredentialsFile))
		}
	}
	if c.GoogleSpreadsheetID != "" && c.GoogleSheetName == "" {
		errors = append(errors, "Google Sheet name is required when a spreadsheet ID is set")
	}
	if !contains(validExportBackends, c.ExportBackend) {
		errors = append(errors, fmt.Sprintf("invalid export backend '%s': must be one of %v", c.ExportBackend, validExportBackends))
	} else if c.ExportBackend == "sheets" && c.GoogleSpreadsheetID == "" {
		errors = append(errors, "Google Spreadsheet ID is required when using sheets export backend")
	}

	// Validate worker configuration
	if c.ParseWorkers < 0 {
		errors = append(errors, fmt.Sprintf("invalid parse workers %d: must not be negative", c.ParseWorkers))
	} else if c.ParseWorkers > 64 {
		errors = append(errors, fmt.Sprintf("invalid parse workers %d: must be at most 64", c.ParseWorkers))
	}

	if c.ReconcileInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid reconcile interval %v: must be at least 1 second", c.ReconcileInterval))
	} else if c.ReconcileInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid reconcile interval %v: must be at most 24 hours", c.ReconcileInterval))
	}

	if !isValidLogLevel(c.LogLevel) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLogLevels))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ValidateWorker applies Validate plus the settings only the mirror worker
// needs.
func (c *Config) ValidateWorker() error {
	var errors []string
	if err := c.Validate(); err != nil {
		errors = append(errors, strings.TrimPrefix(err.Error(), "configuration validation failed:\n- "))
	}

	if c.AMQPURL == "" {
		errors = append(errors, "AMQP URL is required for the ledger worker")
	}
	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
		if err := ensureDir(dir); err != nil {
			errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func (c *Config) validateAMQP() []string {
	if c.AMQPURL == "" {
		return nil
	}
	var errors []string
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
	return errors
}

func isValidLogLevel(level string) bool {
	return contains(validLogLevels, strings.ToLower(strings.TrimSpace(level)))
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

// defaultExportBackend exports to sheets only when a spreadsheet is configured.
func defaultExportBackend() string {
	if os.Getenv("GOOGLE_SPREADSHEET_ID") != "" {
		return "sheets"
	}
	return "none"
}

func ensureDir(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}
	return nil
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
