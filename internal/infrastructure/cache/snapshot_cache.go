package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ErrNoData indicates a refresh failed and no previous snapshot exists
// to fall back on
var ErrNoData = errors.New("cache: no data available")

// snapshotEntry wraps a cached snapshot with the time it was fetched
type snapshotEntry[T any] struct {
	value     T
	fetchedAt time.Time
}

// isFresh reports whether the entry is still within its TTL
func (e *snapshotEntry[T]) isFresh(ttl time.Duration) bool {
	return time.Since(e.fetchedAt) < ttl
}

// FetchFunc produces a fresh snapshot from the source of truth
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Result carries a snapshot plus its provenance: whether it came from a
// fresh fetch, a still-valid cache entry, or a stale fallback after a
// failed refresh.
type Result[T any] struct {
	Value     T
	Stale     bool
	FetchedAt time.Time
}

// SnapshotCache is a TTL cache over an unreliable source. Entries past
// their TTL are refreshed on access, but never discarded: when the
// refresh fails the previous snapshot is served marked stale, because
// minutes-old data beats an error page. Refreshes are single-flight per
// key so a thundering herd cannot multiply remote calls.
type SnapshotCache[T any] struct {
	ttl    time.Duration
	logger *zap.Logger

	mu      sync.RWMutex
	entries map[string]*snapshotEntry[T]

	group singleflight.Group
}

// NewSnapshotCache creates an empty cache with the given TTL
func NewSnapshotCache[T any](ttl time.Duration, logger *zap.Logger) *SnapshotCache[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotCache[T]{
		ttl:     ttl,
		logger:  logger,
		entries: make(map[string]*snapshotEntry[T]),
	}
}

// GetOrRefresh returns a fresh cached snapshot when one exists, refreshes
// via fetch otherwise. On refresh failure a stale snapshot is returned
// with Stale set; only when no snapshot has ever succeeded does the
// fetch error propagate.
func (c *SnapshotCache[T]) GetOrRefresh(ctx context.Context, key string, fetch FetchFunc[T]) (Result[T], error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if ok && entry.isFresh(c.ttl) {
		return Result[T]{Value: entry.value, FetchedAt: entry.fetchedAt}, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		// A caller queued behind a concurrent refresh may find a fresh
		// entry already stored.
		c.mu.RLock()
		current, exists := c.entries[key]
		c.mu.RUnlock()
		if exists && current.isFresh(c.ttl) {
			return Result[T]{Value: current.value, FetchedAt: current.fetchedAt}, nil
		}

		value, fetchErr := fetch(ctx)
		if fetchErr != nil {
			if exists {
				c.logger.Warn("Refresh failed, serving stale snapshot",
					zap.String("key", key),
					zap.Duration("age", time.Since(current.fetchedAt)),
					zap.Error(fetchErr),
				)
				return Result[T]{Value: current.value, Stale: true, FetchedAt: current.fetchedAt}, nil
			}
			return nil, fetchErr
		}

		fresh := &snapshotEntry[T]{value: value, fetchedAt: time.Now()}
		c.mu.Lock()
		c.entries[key] = fresh
		c.mu.Unlock()

		return Result[T]{Value: value, FetchedAt: fresh.fetchedAt}, nil
	})
	if err != nil {
		return Result[T]{}, err
	}
	return v.(Result[T]), nil
}

// Refresh fetches a fresh snapshot immediately, replacing the cached
// entry on success. Unlike GetOrRefresh it propagates the fetch error
// instead of falling back to a stale snapshot; the previous entry stays
// cached for readers.
func (c *SnapshotCache[T]) Refresh(ctx context.Context, key string, fetch FetchFunc[T]) (Result[T], error) {
	value, err := fetch(ctx)
	if err != nil {
		return Result[T]{}, err
	}

	fresh := &snapshotEntry[T]{value: value, fetchedAt: time.Now()}
	c.mu.Lock()
	c.entries[key] = fresh
	c.mu.Unlock()

	return Result[T]{Value: value, FetchedAt: fresh.fetchedAt}, nil
}

// Peek returns the cached snapshot for key without refreshing, with
// Stale set when it is past its TTL
func (c *SnapshotCache[T]) Peek(key string) (Result[T], bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok {
		return Result[T]{}, false
	}
	return Result[T]{
		Value:     entry.value,
		Stale:     !entry.isFresh(c.ttl),
		FetchedAt: entry.fetchedAt,
	}, true
}

// Invalidate marks the entry for key as expired without discarding it,
// so it remains available as a stale fallback
func (c *SnapshotCache[T]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.entries[key]; ok {
		entry.fetchedAt = time.Time{}
	}
}
