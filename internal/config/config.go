// Package config reads process configuration from the environment.
package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int
	// Extra CIDRs allowed to set X-Forwarded-For, on top of loopback and
	// private networks.
	TrustedProxies []string

	// Storage
	DataBackend  string
	SQLiteDBPath string

	// AMQP, disabled when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Insights, disabled when GeminiAPIKey is empty
	GeminiAPIKey    string
	GeminiModel     string
	InsightTimeout  time.Duration
	InsightCacheTTL time.Duration

	// Google Sheets mirror, disabled when GoogleSpreadsheetID is empty
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	ReconcileInterval        time.Duration

	LogLevel string
}

func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8081"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		TrustedProxies:     getEnvList("TRUSTED_PROXIES"),

		DataBackend:  getEnv("DATA_BACKEND", BackendSQLite),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/brokeometer.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "brokeometer"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "broke_events"),

		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		GeminiModel:     getEnv("GEMINI_MODEL", "gemini-3-flash-preview"),
		InsightTimeout:  getEnvDuration("INSIGHT_TIMEOUT", 30*time.Second),
		InsightCacheTTL: getEnvDuration("INSIGHT_CACHE_TTL", 10*time.Minute),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Expenses"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		ReconcileInterval:        getEnvDuration("SHEETS_RECONCILE_INTERVAL", 5*time.Minute),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

func (c *Config) AMQPEnabled() bool     { return c.AMQPURL != "" }
func (c *Config) InsightsEnabled() bool { return c.GeminiAPIKey != "" }
func (c *Config) SheetsEnabled() bool   { return c.GoogleSpreadsheetID != "" }

// Validate returns every problem found, joined into one error.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			errors = append(errors, fmt.Sprintf("invalid trusted proxy '%s': must be a CIDR such as 203.0.113.0/24", cidr))
		}
	}

	validBackends := []string{BackendMemory, BackendSQLite}
	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}
	if c.DataBackend == BackendSQLite && strings.TrimSpace(c.SQLiteDBPath) == "" {
		errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
	}

	if c.AMQPEnabled() {
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

	if c.InsightsEnabled() {
		if c.GeminiModel == "" {
			errors = append(errors, "GEMINI_MODEL cannot be empty when GEMINI_API_KEY is set")
		}
		if c.InsightTimeout < time.Second {
			errors = append(errors, fmt.Sprintf("invalid insight timeout %v: must be at least 1 second", c.InsightTimeout))
		}
	}
	if c.InsightCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid insight cache ttl %v: must not be negative", c.InsightCacheTTL))
	}

	if c.SheetsEnabled() {
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when GOOGLE_SPREADSHEET_ID is set")
		}
		if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided for the sheets mirror")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
		if c.ReconcileInterval < time.Minute {
			errors = append(errors, fmt.Sprintf("invalid reconcile interval %v: must be at least 1 minute", c.ReconcileInterval))
		}
	}

	validLevels := []string{"debug", "info", "warn", "warning", "error"}
	if !slices.Contains(validLevels, strings.ToLower(c.LogLevel)) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
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

// getEnvList splits a comma-separated variable, dropping blank items.
func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
