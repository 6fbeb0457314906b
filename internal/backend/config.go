package backend

import (
	"fmt"
	"time"

	"brokeometer/internal/config"
)

// Config holds the settings the factory needs
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Google Sheets mirror
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Insights
	GeminiAPIKey    string
	GeminiModel     string
	InsightTimeout  time.Duration
	InsightCacheTTL time.Duration
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:         backendType,
		SQLiteDBPath: appConfig.SQLiteDBPath,

		GoogleSpreadsheetID:      appConfig.GoogleSpreadsheetID,
		GoogleSheetName:          appConfig.GoogleSheetName,
		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
		GoogleServiceAccountFile: appConfig.GoogleServiceAccountFile,

		GeminiAPIKey:    appConfig.GeminiAPIKey,
		GeminiModel:     appConfig.GeminiModel,
		InsightTimeout:  appConfig.InsightTimeout,
		InsightCacheTTL: appConfig.InsightCacheTTL,
	}, nil
}

func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	if c.Type == SQLiteBackend && c.SQLiteDBPath == "" {
		return fmt.Errorf("SQLite database path is required for sqlite backend")
	}
	return nil
}
