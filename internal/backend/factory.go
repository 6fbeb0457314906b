package backend

import (
	"context"
	"fmt"

	"brokeometer/internal/cache"
	"brokeometer/internal/insight"
	"brokeometer/internal/log"
	gsheet "brokeometer/internal/sheets/google"
	"brokeometer/internal/storage"
)

const insightCacheSize = 32

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger  *log.Logger
	janitor *cache.Janitor
}

// NewFactory creates a factory. Caches it builds are registered with the
// janitor when one is given.
func NewFactory(logger *log.Logger, janitor *cache.Janitor) *DefaultFactory {
	if logger == nil {
		logger = log.FromContext(context.Background())
	}
	return &DefaultFactory{
		logger:  logger.WithComponent(log.ComponentBackend),
		janitor: janitor,
	}
}

var _ Factory = (*DefaultFactory)(nil)

// CreateStore implements Factory.CreateStore
func (f *DefaultFactory) CreateStore(ctx context.Context, config Config) (*StoreResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		store, err := storage.NewSQLiteStore(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
		return &StoreResult{Store: store, Cleanup: store.Close}, nil
	case MemoryBackend:
		f.logger.InfoContext(ctx, "Initialized memory backend; records are lost on exit")
		store := storage.NewMemoryStore()
		return &StoreResult{Store: store, Cleanup: store.Close}, nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

// CreateMirror implements Factory.CreateMirror
func (f *DefaultFactory) CreateMirror(ctx context.Context, config Config) (Mirror, error) {
	if config.GoogleSpreadsheetID == "" {
		return nil, nil
	}

	creds, err := gsheet.LoadCredentials(config.GoogleServiceAccountJSON, config.GoogleServiceAccountFile)
	if err != nil {
		return nil, fmt.Errorf("load service account credentials: %w", err)
	}

	mirror, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   config.GoogleSpreadsheetID,
		SheetName:       config.GoogleSheetName,
		CredentialsJSON: creds,
	}, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.InfoContext(ctx, "Initialized Google Sheets mirror", "sheet", config.GoogleSheetName)
	return mirror, nil
}

// CreateGenerator implements Factory.CreateGenerator. Results are cached in
// an LRU when the TTL is positive.
func (f *DefaultFactory) CreateGenerator(ctx context.Context, config Config) (insight.Generator, error) {
	if config.GeminiAPIKey == "" {
		return nil, nil
	}

	gemini, err := insight.NewGeminiGenerator(ctx, config.GeminiAPIKey, config.GeminiModel, config.InsightTimeout, f.logger)
	if err != nil {
		return nil, err
	}
	f.logger.InfoContext(ctx, "Initialized Gemini insight generator", "model", config.GeminiModel)

	if config.InsightCacheTTL <= 0 {
		return gemini, nil
	}
	lru := cache.NewLRUCache[string](insightCacheSize, config.InsightCacheTTL)
	if f.janitor != nil {
		f.janitor.Register(lru)
	}
	return insight.NewCachedGenerator(gemini, lru), nil
}
