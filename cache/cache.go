// Package cache holds the single merged dataset produced by the last
// ingestion pass and serves it while it is within its freshness window.
// The entry is replaced by whole-value swap on full completion only, so a
// reader always observes either the old or the fully-formed new entry.
package cache

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/commandcenter/aggregator/fetch"
	"github.com/commandcenter/aggregator/models"
)

// Entry is the cached outcome of one complete ingestion pass. Failed
// collections are carried as metadata, never as a pipeline failure.
type Entry struct {
	Dataset   *models.Dataset           `json:"dataset"`
	CreatedAt time.Time                 `json:"createdAt"`
	Failed    []models.CollectionHandle `json:"failed,omitempty"`
}

// IngestFunc performs one full ingestion pass: every registered collection
// is attempted, per-collection failures are tolerated and reported.
type IngestFunc func(ctx context.Context) (*models.Dataset, []models.CollectionHandle)

// Cache is the single-entry TTL dataset cache. At most one ingestion pass
// is in flight at a time; concurrent readers either get the current entry
// or wait for the in-flight refresh.
type Cache struct {
	ttl     time.Duration
	ingest  IngestFunc
	metrics *fetch.Metrics
	now     func() time.Time

	entry atomic.Pointer[Entry]

	mu          sync.Mutex // serializes refreshes and store access
	store       Store
	loaded      bool
	storeBroken bool
}

// New builds a cache over the given store. A nil store behaves like an
// empty in-memory one.
func New(store Store, ttl time.Duration, ingest IngestFunc, metrics *fetch.Metrics) *Cache {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Cache{
		ttl:     ttl,
		ingest:  ingest,
		metrics: metrics,
		now:     time.Now,
		store:   store,
	}
}

// Get returns the cached entry if it is still fresh, otherwise performs a
// full ingestion pass and replaces it. force bypasses the freshness check.
// Even a pass in which every collection failed caches an empty dataset, so
// a broken upstream does not cause retry storms.
func (c *Cache) Get(ctx context.Context, force bool) (*Entry, error) {
	if !force {
		if entry := c.entry.Load(); entry != nil && c.fresh(entry) {
			c.metrics.IncCacheRequest("hit")
			return entry, nil
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.loadOnceLocked()

	// Another caller may have completed a refresh while we waited.
	if entry := c.entry.Load(); entry != nil && c.fresh(entry) && !force {
		c.metrics.IncCacheRequest("hit")
		return entry, nil
	}

	c.metrics.IncCacheRequest("miss")
	return c.refreshLocked(ctx)
}

// Entry returns the current entry without triggering a refresh, nil when
// nothing has been ingested or loaded yet.
func (c *Cache) Entry() *Entry {
	return c.entry.Load()
}

func (c *Cache) fresh(entry *Entry) bool {
	return c.now().Sub(entry.CreatedAt) < c.ttl
}

// loadOnceLocked pulls a persisted entry into memory on first use.
func (c *Cache) loadOnceLocked() {
	if c.loaded {
		return
	}
	c.loaded = true

	entry, err := c.store.Load()
	if err != nil {
		slog.Error("cache store load failed, continuing in-memory", slog.Any("error", err))
		c.fallbackLocked()
		return
	}
	if entry != nil && entry.Dataset != nil {
		c.entry.Store(entry)
		slog.Info("loaded persisted dataset",
			slog.Int("records", entry.Dataset.Len()),
			slog.Time("created_at", entry.CreatedAt),
		)
	}
}

func (c *Cache) refreshLocked(ctx context.Context) (*Entry, error) {
	c.metrics.IncCacheRequest("refresh")
	start := c.now()

	dataset, failed := c.ingest(ctx)
	if err := ctx.Err(); err != nil {
		// The pass was aborted by the caller, not by the upstream;
		// keep the previous entry intact.
		return nil, err
	}
	c.metrics.ObserveIngestDuration(c.now().Sub(start))

	entry := &Entry{
		Dataset:   dataset,
		CreatedAt: c.now(),
		Failed:    failed,
	}
	c.entry.Store(entry)

	if !c.storeBroken {
		if err := c.store.Save(entry); err != nil {
			slog.Error("cache store save failed, falling back to memory", slog.Any("error", err))
			c.fallbackLocked()
		}
	}

	slog.Info("dataset refreshed",
		slog.Int("records", dataset.Len()),
		slog.Int("failed_collections", len(failed)),
		slog.Duration("took", c.now().Sub(start)),
	)
	return entry, nil
}

// fallbackLocked abandons the persistent store for the rest of the process
// lifetime and keeps serving from memory.
func (c *Cache) fallbackLocked() {
	if c.storeBroken {
		return
	}
	c.storeBroken = true
	if err := c.store.Close(); err != nil {
		slog.Debug("closing broken cache store", slog.Any("error", err))
	}
	c.store = NewMemoryStore()
}

// Close releases the underlying store.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Close()
}
