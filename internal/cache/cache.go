// Package cache holds small in-process caches with expiry.
package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Cache is a keyed store whose entries may vanish at any time.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Size() int
}

// Cleaner is implemented by caches that can drop expired entries in bulk.
type Cleaner interface {
	CleanExpired() int
}

// Janitor periodically cleans every registered cache until its context ends
// or Stop is called.
type Janitor struct {
	mu      sync.Mutex
	caches  []Cleaner
	logger  *slog.Logger
	cancel  context.CancelFunc
	done    chan struct{}
	stopped sync.Once
}

func NewJanitor(logger *slog.Logger) *Janitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Janitor{logger: logger}
}

func (j *Janitor) Register(c Cleaner) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.caches = append(j.caches, c)
}

// Start launches the cleanup loop. Calling Start twice is a no-op.
func (j *Janitor) Start(ctx context.Context, interval time.Duration) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.done != nil {
		return
	}
	ctx, j.cancel = context.WithCancel(ctx)
	j.done = make(chan struct{})
	go j.loop(ctx, interval)
}

func (j *Janitor) loop(ctx context.Context, interval time.Duration) {
	defer close(j.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := j.Sweep(); n > 0 {
				j.logger.Debug("Expired cache entries removed", "component", "cache", "count", n)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Sweep cleans every registered cache once and returns the number of
// entries removed.
func (j *Janitor) Sweep() int {
	j.mu.Lock()
	caches := append([]Cleaner(nil), j.caches...)
	j.mu.Unlock()

	total := 0
	for _, c := range caches {
		total += c.CleanExpired()
	}
	return total
}

// Stop ends the cleanup loop and waits for it to exit.
func (j *Janitor) Stop() {
	j.stopped.Do(func() {
		j.mu.Lock()
		cancel, done := j.cancel, j.done
		j.mu.Unlock()
		if cancel == nil {
			return
		}
		cancel()
		<-done
	})
}
