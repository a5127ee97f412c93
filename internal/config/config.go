package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

type Config struct {
	// HTTP Server
	Port     string
	LogLevel string

	// Ledger document
	Backend      string
	DataFile     string
	SQLiteDBPath string

	// Classifier seed table, built-in when empty
	KeywordsFile string

	// Account store
	UsersFile        string
	AccountsCacheTTL time.Duration

	// AMQP, disabled when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Metrics listener for cmd/spent-audit, disabled when empty
	AuditMetricsAddr string

	// Google Sheets report export, disabled when the spreadsheet id is empty
	GoogleSpreadsheetID  string
	GoogleSheetName      string
	GoogleAuditSheetName string
}

func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8081"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		Backend:      getEnv("SPENT_BACKEND", BackendFile),
		DataFile:     getEnv("SPENT_DATA_FILE", "./spent_ml_data.json"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/spent.db"),

		KeywordsFile: getEnv("KEYWORDS_FILE", ""),

		UsersFile:        getEnv("USERS_FILE", "./users.json"),
		AccountsCacheTTL: getEnvDuration("ACCOUNTS_CACHE_TTL", 30*time.Second),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "spent"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_events"),

		AuditMetricsAddr: getEnv("AUDIT_METRICS_ADDR", ""),

		GoogleSpreadsheetID:  getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:      getEnv("GOOGLE_SHEET_NAME", "Reports"),
		GoogleAuditSheetName: getEnv("GOOGLE_AUDIT_SHEET_NAME", "Audit"),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if _, err := ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, err.Error())
	}

	switch c.Backend {
	case BackendFile:
		if c.DataFile == "" {
			errors = append(errors, "data file path cannot be empty when using file backend")
		}
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid backend '%s': must be one of [%s %s]", c.Backend, BackendFile, BackendSQLite))
	}

	if c.KeywordsFile != "" {
		if _, err := os.Stat(c.KeywordsFile); err != nil {
			errors = append(errors, fmt.Sprintf("keywords file is not readable: %s", c.KeywordsFile))
		}
	}

	if c.AccountsCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid accounts cache ttl %v: must not be negative", c.AccountsCacheTTL))
	} else if c.AccountsCacheTTL > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid accounts cache ttl %v: must be at most 24 hours", c.AccountsCacheTTL))
	}

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

	if c.GoogleSpreadsheetID != "" {
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when a spreadsheet ID is set")
		}
		if c.GoogleAuditSheetName == "" {
			errors = append(errors, "Google audit sheet name is required when a spreadsheet ID is set")
		} else if c.GoogleAuditSheetName == c.GoogleSheetName {
			errors = append(errors, "Google audit sheet must differ from the report sheet")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func (c *Config) AMQPEnabled() bool { return c.AMQPURL != "" }

func (c *Config) SheetsEnabled() bool { return c.GoogleSpreadsheetID != "" }

// ParseLevel maps LOG_LEVEL values to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level '%s': must be debug, info, warn or error", s)
	}
	return level, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
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
