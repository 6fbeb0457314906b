package backend

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brokeometer/internal/cache"
	"brokeometer/internal/config"
	"brokeometer/internal/insight"
	"brokeometer/internal/log"
	"brokeometer/internal/storage"
)

func TestFromAppConfig(t *testing.T) {
	_, err := FromAppConfig(nil)
	assert.Error(t, err)

	_, err = FromAppConfig(&config.Config{DataBackend: "sheets"})
	assert.ErrorContains(t, err, "invalid backend type")

	cfg, err := FromAppConfig(&config.Config{
		DataBackend:     "sqlite",
		SQLiteDBPath:    "/tmp/x.db",
		GeminiAPIKey:    "k",
		InsightCacheTTL: time.Minute,
	})
	require.NoError(t, err)
	assert.Equal(t, SQLiteBackend, cfg.Type)
	assert.Equal(t, "/tmp/x.db", cfg.SQLiteDBPath)
	assert.Equal(t, time.Minute, cfg.InsightCacheTTL)
}

func TestCreateStore(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(log.Discard(), nil)

	t.Run("memory", func(t *testing.T) {
		res, err := f.CreateStore(ctx, Config{Type: MemoryBackend})
		require.NoError(t, err)
		assert.IsType(t, &storage.MemoryStore{}, res.Store)
		assert.NoError(t, res.Cleanup())
	})

	t.Run("sqlite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "data", "broke.db")
		res, err := f.CreateStore(ctx, Config{Type: SQLiteBackend, SQLiteDBPath: path})
		require.NoError(t, err)
		defer res.Cleanup()

		require.NoError(t, res.Store.Put(ctx, storage.KeyBudget, []byte(`{}`)))
		assert.NoError(t, res.Store.Ping(ctx))
	})

	t.Run("sqlite without path", func(t *testing.T) {
		_, err := f.CreateStore(ctx, Config{Type: SQLiteBackend})
		assert.Error(t, err)
	})
}

func TestCreateOptionalComponents(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(log.Discard(), cache.NewJanitor(nil))

	mirror, err := f.CreateMirror(ctx, Config{})
	require.NoError(t, err)
	assert.Nil(t, mirror)

	_, err = f.CreateMirror(ctx, Config{GoogleSpreadsheetID: "sheet"})
	assert.ErrorContains(t, err, "credentials")

	gen, err := f.CreateGenerator(ctx, Config{})
	require.NoError(t, err)
	assert.Nil(t, gen)

	gen, err = f.CreateGenerator(ctx, Config{GeminiAPIKey: "key", InsightTimeout: time.Second})
	require.NoError(t, err)
	assert.IsType(t, &insight.GeminiGenerator{}, gen)

	gen, err = f.CreateGenerator(ctx, Config{GeminiAPIKey: "key", InsightTimeout: time.Second, InsightCacheTTL: time.Minute})
	require.NoError(t, err)
	assert.IsType(t, &insight.CachedGenerator{}, gen)
	assert.Equal(t, 0, f.janitor.Sweep())
}
