// Package fetch retrieves the records of remote paginated collections.
// Each collection is walked page by page following the provider's
// continuation cursor, up to a configurable per-collection cap. A failing
// collection is abandoned and reported; it never aborts the ingestion pass.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/commandcenter/aggregator/config"
	"github.com/commandcenter/aggregator/models"
)

// providerPageSize is the page size requested from the provider; the
// provider caps pages at 100 records regardless.
const providerPageSize = 100

// pageEnvelope is the provider's page response: a batch of records plus an
// opaque continuation cursor, empty on the last page.
type pageEnvelope struct {
	Records []models.RawRecord `json:"records"`
	Offset  string             `json:"offset"`
}

// CollectionResult holds the outcome of fetching one collection. Err is
// collection-scoped; a failed collection yields zero records for the pass.
type CollectionResult struct {
	Handle  models.CollectionHandle
	Records []models.RawRecord
	Err     error
}

// Fetcher pulls records from the remote provider using a colly collector
// per collection fetch.
type Fetcher struct {
	cfg       *config.Config
	host      string
	Metrics   *Metrics
	transport http.RoundTripper
}

// NewFetcher builds a fetcher configured from cfg.
func NewFetcher(cfg *config.Config, metrics *Metrics) (*Fetcher, error) {
	parsed, err := url.Parse(cfg.ProviderBaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse provider base url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("provider base url must include a host")
	}

	return &Fetcher{
		cfg:     cfg,
		host:    parsed.Host,
		Metrics: metrics,
	}, nil
}

// WithTransport overrides the HTTP transport used for page fetches.
func (f *Fetcher) WithTransport(rt http.RoundTripper) {
	f.transport = rt
}

// FetchAll fetches every registered collection. Collections are fetched
// concurrently into per-collection slots and returned in registry order,
// so the merged record order is deterministic regardless of scheduling.
func (f *Fetcher) FetchAll(ctx context.Context, handles []models.CollectionHandle) []CollectionResult {
	results := make([]CollectionResult, len(handles))

	var wg sync.WaitGroup
	for i, handle := range handles {
		wg.Add(1)
		go func(slot int, handle models.CollectionHandle) {
			defer wg.Done()
			records, err := f.FetchCollection(ctx, handle)
			results[slot] = CollectionResult{Handle: handle, Records: records, Err: err}

			if err != nil {
				slog.Error("collection fetch failed",
					slog.String("collection", handle.String()),
					slog.Any("error", err),
				)
				return
			}
			slog.Info("collection fetched",
				slog.String("collection", handle.String()),
				slog.Int("records", len(records)),
			)
		}(i, handle)
	}
	wg.Wait()

	return results
}

// FetchCollection retrieves the ordered record sequence of one collection,
// following the continuation cursor until it is exhausted or the
// per-collection cap is reached. Excess records from the final page are
// discarded in arrival order. No retries are performed.
func (f *Fetcher) FetchCollection(ctx context.Context, handle models.CollectionHandle) ([]models.RawRecord, error) {
	collector := f.newCollector()

	var (
		page    pageEnvelope
		pageErr error
	)

	collector.OnRequest(func(r *colly.Request) {
		if f.cfg.APIToken != "" {
			r.Headers.Set("Authorization", "Bearer "+f.cfg.APIToken)
		}
		r.Ctx.Put("start", time.Now())
	})

	collector.OnResponse(func(r *colly.Response) {
		if start, ok := r.Request.Ctx.GetAny("start").(time.Time); ok {
			f.Metrics.ObservePageDuration(time.Since(start))
		}
		page = pageEnvelope{}
		if err := json.Unmarshal(r.Body, &page); err != nil {
			pageErr = ErrMalformedPayload{Err: err}
		}
	})

	collector.OnError(func(r *colly.Response, err error) {
		statusCode := 0
		if r != nil {
			statusCode = r.StatusCode
		}
		pageErr = classifyError(err, statusCode)
	})

	limit := f.cfg.RecordsPerCollectionCap
	records := make([]models.RawRecord, 0, providerPageSize)
	cursor := ""

	for {
		if err := ctx.Err(); err != nil {
			return nil, f.fail(handle, err)
		}

		page = pageEnvelope{}
		pageErr = nil

		if err := collector.Visit(f.pageURL(handle, cursor)); err != nil && pageErr == nil {
			pageErr = classifyError(err, 0)
		}
		if pageErr != nil {
			return nil, f.fail(handle, pageErr)
		}

		f.Metrics.IncPage(handle.SourceID)
		f.Metrics.AddRecords(handle.SourceID, len(page.Records))

		if len(records)+len(page.Records) >= limit {
			records = append(records, page.Records[:limit-len(records)]...)
			break
		}
		records = append(records, page.Records...)

		if page.Offset == "" {
			break
		}
		cursor = page.Offset
	}

	return records, nil
}

func (f *Fetcher) fail(handle models.CollectionHandle, err error) error {
	f.Metrics.IncError(errorTypeLabel(err))
	return CollectionError{Handle: handle.String(), Err: err}
}

func (f *Fetcher) newCollector() *colly.Collector {
	collector := colly.NewCollector(
		colly.AllowedDomains(f.host),
		colly.UserAgent(f.cfg.UserAgent),
	)
	collector.SetRequestTimeout(f.cfg.Timeout)
	collector.IgnoreRobotsTxt = true

	if f.transport != nil {
		collector.WithTransport(f.transport)
	} else {
		collector.WithTransport(&http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   f.cfg.Timeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        100,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		})
	}

	return collector
}

func (f *Fetcher) pageURL(handle models.CollectionHandle, cursor string) string {
	query := url.Values{}
	query.Set("pageSize", fmt.Sprint(providerPageSize))
	if cursor != "" {
		query.Set("offset", cursor)
	}
	return fmt.Sprintf("%s/v0/%s/%s?%s",
		f.cfg.ProviderBaseURL, handle.SourceID, handle.CollectionID, query.Encode())
}

func classifyError(err error, statusCode int) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout{Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ErrConnection{Err: err}
	}

	if statusCode >= http.StatusBadRequest {
		wrapped := err
		if wrapped == nil {
			wrapped = fmt.Errorf("http status %d", statusCode)
		}
		return ErrHTTPStatus{StatusCode: statusCode, Err: wrapped}
	}

	if err == nil {
		return fmt.Errorf("fetch failed with status %d", statusCode)
	}
	return err
}
