package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps records in a single-table SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

var _ RecordStore = (*SQLiteStore)(nil)

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// The server and the worker share the file; wait on locks instead of failing.
	dsn := dbPath + "?_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := migrateSchema(dsn)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Debug("Records schema ready", "component", "storage", "path", dbPath, "version", version)

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Get implements RecordStore
func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM records WHERE key = ?`, key).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get record %s: %w", key, err)
	}
	return []byte(body), nil
}

// Put implements RecordStore
func (s *SQLiteStore) Put(ctx context.Context, key string, body []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO records (key, body, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(key) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		key, string(body))
	if err != nil {
		return fmt.Errorf("put record %s: %w", key, err)
	}

	slog.DebugContext(ctx, "Record saved to SQLite", "key", key, "bytes", len(body))
	return nil
}

// Delete implements RecordStore. Deleting a missing key is not an error.
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete record %s: %w", key, err)
	}

	slog.DebugContext(ctx, "Record deleted from SQLite", "key", key)
	return nil
}
