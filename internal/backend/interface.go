// Package backend builds the storage, mirror and insight components selected
// by configuration.
package backend

import (
	"context"

	"brokeometer/internal/insight"
	"brokeometer/internal/sheets"
	"brokeometer/internal/storage"
)

// Mirror is an expense mirror that can also list what it holds.
type Mirror interface {
	sheets.ExpenseMirror
	sheets.ExpenseLister
}

// CleanupFunc releases resources held by a component.
type CleanupFunc func() error

// StoreResult contains the record store and its cleanup function
type StoreResult struct {
	Store   storage.RecordStore
	Cleanup CleanupFunc
}

// Factory creates components based on configuration
type Factory interface {
	CreateStore(ctx context.Context, config Config) (*StoreResult, error)
	// CreateMirror returns nil when no spreadsheet is configured.
	CreateMirror(ctx context.Context, config Config) (Mirror, error)
	// CreateGenerator returns nil when no API key is configured.
	CreateGenerator(ctx context.Context, config Config) (insight.Generator, error)
}

// BackendType represents the type of record store
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
