// Package cache provides a generic TTL-bounded LRU cache and a janitor that
// evicts expired entries on a ticker.
package cache

import (
	"context"
	"log/slog"
	"time"
)

// Cleaner is implemented by caches that can drop expired entries.
type Cleaner interface {
	CleanExpired() int
}

// Cache is the read-through surface consumers depend on.
type Cache[T any] interface {
	Cleaner
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
	Purge()
	Size() int
}

var _ Cache[struct{}] = (*LRUCache[struct{}])(nil)

// Janitor periodically cleans every registered cache.
type Janitor struct {
	caches []Cleaner
}

func NewJanitor(caches ...Cleaner) *Janitor {
	return &Janitor{caches: caches}
}

func (j *Janitor) Register(c Cleaner) {
	j.caches = append(j.caches, c)
}

// Run blocks until ctx is cancelled, cleaning on every interval tick.
func (j *Janitor) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := j.CleanOnce(); removed > 0 {
				slog.DebugContext(ctx, "Expired cache entries removed", "count", removed)
			}
		case <-ctx.Done():
			return nil
		}
	}
}

// CleanOnce cleans all caches and returns the number of entries removed.
func (j *Janitor) CleanOnce() int {
	total := 0
	for _, c := range j.caches {
		total += c.CleanExpired()
	}
	return total
}
