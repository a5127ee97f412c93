package accounts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"spent/internal/cache"
)

// Directory looks up account records by username.
type Directory interface {
	Lookup(ctx context.Context, username string) (Record, bool, error)
}

// FileDirectory reads users.json on every lookup so edits made by the
// onboarding flow are seen immediately.
type FileDirectory struct {
	path string
}

func NewFileDirectory(path string) *FileDirectory {
	return &FileDirectory{path: path}
}

func (d *FileDirectory) Lookup(ctx context.Context, username string) (Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, false, err
	}
	data, err := os.ReadFile(d.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("read accounts %s: %w", d.path, err)
	}

	var users map[string]json.RawMessage
	if err := json.Unmarshal(data, &users); err != nil {
		return Record{}, false, fmt.Errorf("decode accounts %s: %w", d.path, err)
	}
	raw, ok := users[username]
	if !ok {
		return Record{}, false, nil
	}
	return decodeRecord(raw), true, nil
}

// StaticDirectory serves records from memory.
type StaticDirectory map[string]Record

func (s StaticDirectory) Lookup(_ context.Context, username string) (Record, bool, error) {
	rec, ok := s[username]
	return rec, ok, nil
}

type lookupResult struct {
	record Record
	found  bool
}

// CachedDirectory memoizes lookups for a short TTL.
type CachedDirectory struct {
	next  Directory
	cache cache.Cache[lookupResult]
}

const defaultCacheSize = 256

func NewCachedDirectory(next Directory, ttl time.Duration) *CachedDirectory {
	return &CachedDirectory{
		next:  next,
		cache: cache.NewLRUCache[lookupResult](defaultCacheSize, ttl),
	}
}

func (c *CachedDirectory) Lookup(ctx context.Context, username string) (Record, bool, error) {
	if res, ok := c.cache.Get(username); ok {
		return res.record, res.found, nil
	}
	rec, found, err := c.next.Lookup(ctx, username)
	if err != nil {
		return Record{}, false, err
	}
	c.cache.Set(username, lookupResult{record: rec, found: found})
	return rec, found, nil
}

// CleanExpired lets the cache janitor evict stale lookups.
func (c *CachedDirectory) CleanExpired() int {
	return c.cache.CleanExpired()
}
