// Package storage persists whole-record snapshots under well-known keys.
//
// Every write replaces the prior snapshot for its key; there are no partial
// or field-level updates and no transactions spanning keys.
package storage

import (
	"context"
	"errors"
)

// Keys of the persisted records.
const (
	KeyExpenses = "expenses"
	KeyBudget   = "budget"
	KeyUser     = "user"
	KeyInsight  = "insight"
)

// ErrNotFound is returned by Get when no record exists for the key.
var ErrNotFound = errors.New("record not found")

// RecordStore is a keyed snapshot store.
type RecordStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, body []byte) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}
