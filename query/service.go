// Package query is the consumer-facing surface of the aggregator. It
// composes cache, search, filter, aggregation, and pagination into the
// single entry point the presentation layer calls.
package query

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/commandcenter/aggregator/aggregate"
	"github.com/commandcenter/aggregator/cache"
	"github.com/commandcenter/aggregator/config"
	"github.com/commandcenter/aggregator/fetch"
	"github.com/commandcenter/aggregator/filter"
	"github.com/commandcenter/aggregator/models"
	"github.com/commandcenter/aggregator/normalize"
	"github.com/commandcenter/aggregator/page"
	"github.com/commandcenter/aggregator/search"
)

// ErrRecordNotFound is returned by Lookup for an unknown record id.
var ErrRecordNotFound = errors.New("record not found")

// memoSize bounds the per-dataset-version result memoization.
const memoSize = 128

// Result is the well-formed (possibly empty) answer to one query. Partial
// ingestion failures surface as metadata, never as an error.
type Result struct {
	Records       []models.Record           `json:"records"`
	Page          int                       `json:"page"`
	TotalPages    int                       `json:"totalPages"`
	TotalFiltered int                       `json:"totalFiltered"`
	Summary       models.Summary            `json:"summary"`
	Fields        []string                  `json:"fields"`
	Failed        []models.CollectionHandle `json:"failedCollections,omitempty"`
	FetchedAt     time.Time                 `json:"fetchedAt"`
}

// Facets lists the selectable facet values of the current dataset.
type Facets struct {
	Years        []string `json:"years"`
	Authors      []string `json:"authors"`
	Publications []string `json:"publications"`
}

type memoEntry struct {
	records []models.Record
	summary models.Summary
}

// Service owns the dataset cache, the search index derived from the
// current dataset, and the memoized filter results.
type Service struct {
	cfg   *config.Config
	cache *cache.Cache

	mu      sync.Mutex
	index   *search.Index
	memo    *lru.Cache[string, memoEntry]
	lastKey string
}

// NewService wires the ingestion pipeline behind a dataset cache.
func NewService(cfg *config.Config, fetcher *fetch.Fetcher, store cache.Store) (*Service, error) {
	memo, err := lru.New[string, memoEntry](memoSize)
	if err != nil {
		return nil, err
	}

	handles := cfg.Handles()
	ingest := func(ctx context.Context) (*models.Dataset, []models.CollectionHandle) {
		results := fetcher.FetchAll(ctx, handles)

		batches := make([]normalize.Batch, 0, len(results))
		var failed []models.CollectionHandle
		for _, res := range results {
			if res.Err != nil {
				failed = append(failed, res.Handle)
				continue
			}
			batches = append(batches, normalize.Batch{Handle: res.Handle, Records: res.Records})
		}
		return normalize.Merge(batches), failed
	}

	return &Service{
		cfg:   cfg,
		cache: cache.New(store, cfg.CacheTTL, ingest, fetcher.Metrics),
		memo:  memo,
	}, nil
}

// Query runs search, facet filtering, aggregation, and pagination over the
// cached dataset. The page number resets to 1 whenever the dataset version
// or the filter state differs from the previous call, so a stale page
// index is never applied to a different result set.
func (s *Service) Query(ctx context.Context, state models.FilterState, pageNumber int) (*Result, error) {
	entry, err := s.cache.Get(ctx, false)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureIndexLocked(entry.Dataset); err != nil {
		return nil, err
	}

	key := entry.Dataset.Version + "\x1d" + state.Key()
	if key != s.lastKey {
		s.lastKey = key
		pageNumber = 1
	}

	memoized, ok := s.memo.Get(key)
	if !ok {
		matches, err := s.index.Search(state.Query)
		if err != nil {
			return nil, err
		}
		filtered := filter.Apply(matches, state)
		memoized = memoEntry{
			records: filtered,
			summary: aggregate.Summarize(filtered),
		}
		s.memo.Add(key, memoized)
	}

	slice, totalPages := page.Paginate(memoized.records, s.cfg.PageSize, pageNumber)
	served := pageNumber
	if served < 1 {
		served = 1
	}
	if served > totalPages {
		served = totalPages
	}

	return &Result{
		Records:       slice,
		Page:          served,
		TotalPages:    totalPages,
		TotalFiltered: len(memoized.records),
		Summary:       memoized.summary,
		Fields:        entry.Dataset.Fields,
		Failed:        entry.Failed,
		FetchedAt:     entry.CreatedAt,
	}, nil
}

// Filtered returns the full search-and-filter narrowed record set along
// with the dataset's field union, for export consumers.
func (s *Service) Filtered(ctx context.Context, state models.FilterState) ([]models.Record, []string, error) {
	entry, err := s.cache.Get(ctx, false)
	if err != nil {
		return nil, nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureIndexLocked(entry.Dataset); err != nil {
		return nil, nil, err
	}
	matches, err := s.index.Search(state.Query)
	if err != nil {
		return nil, nil, err
	}
	return filter.Apply(matches, state), entry.Dataset.Fields, nil
}

// Lookup returns the single record with the given id: the drill-down view.
func (s *Service) Lookup(ctx context.Context, id string) (*models.Record, error) {
	entry, err := s.cache.Get(ctx, false)
	if err != nil {
		return nil, err
	}
	for i := range entry.Dataset.Records {
		if entry.Dataset.Records[i].ID == id {
			return &entry.Dataset.Records[i], nil
		}
	}
	return nil, ErrRecordNotFound
}

// Facets lists the facet values selectable against the current dataset.
func (s *Service) Facets(ctx context.Context) (*Facets, error) {
	entry, err := s.cache.Get(ctx, false)
	if err != nil {
		return nil, err
	}
	return &Facets{
		Years:        entry.Dataset.Years,
		Authors:      entry.Dataset.Authors,
		Publications: entry.Dataset.Publications,
	}, nil
}

// Refresh forces a full ingestion pass regardless of cache freshness.
func (s *Service) Refresh(ctx context.Context) (*cache.Entry, error) {
	return s.cache.Get(ctx, true)
}

// ensureIndexLocked rebuilds the search index iff the dataset instance
// changed. Memoized results are purged with the old index since their keys
// embed the stale version.
func (s *Service) ensureIndexLocked(ds *models.Dataset) error {
	if s.index != nil && s.index.Version() == ds.Version {
		return nil
	}

	index, err := search.Build(ds, s.cfg.FuzzyThreshold)
	if err != nil {
		return err
	}
	if s.index != nil {
		if closeErr := s.index.Close(); closeErr != nil {
			slog.Debug("closing previous search index", slog.Any("error", closeErr))
		}
	}
	s.index = index
	s.memo.Purge()
	slog.Info("search index rebuilt",
		slog.String("version", ds.Version),
		slog.Int("records", ds.Len()),
	)
	return nil
}

// Close releases the search index and the cache store.
func (s *Service) Close() error {
	s.mu.Lock()
	if s.index != nil {
		if err := s.index.Close(); err != nil {
			slog.Debug("closing search index", slog.Any("error", err))
		}
		s.index = nil
	}
	s.mu.Unlock()
	return s.cache.Close()
}
