// Package search builds a fuzzy-searchable in-memory index over one merged
// dataset and ranks records by approximate textual similarity. An index is
// derived from exactly one dataset version and is never mutated; a new
// dataset gets a new index.
package search

import (
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/commandcenter/aggregator/models"
)

// Index is a read-only fuzzy-match index over one dataset.
type Index struct {
	idx       bleve.Index
	version   string
	records   []models.Record
	byKey     map[string]int
	fuzziness int
}

// Fuzziness maps the configured fuzzy threshold in [0, 1] to a bounded
// edit distance. Higher thresholds tolerate more spelling drift.
func Fuzziness(threshold float64) int {
	switch {
	case threshold <= 0.15:
		return 0
	case threshold <= 0.45:
		return 1
	default:
		return 2
	}
}

// Build indexes the Title, Year, Author, and Publication fields of every
// record in the dataset.
func Build(ds *models.Dataset, fuzzyThreshold float64) (*Index, error) {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}

	byKey := make(map[string]int, len(ds.Records))
	batch := idx.NewBatch()
	for i, record := range ds.Records {
		key := record.Key()
		byKey[key] = i

		doc := map[string]any{
			fieldTitle:       record.Title(),
			fieldYear:        record.Year(),
			fieldAuthor:      strings.Join(record.Authors, " "),
			fieldPublication: record.Publication(),
		}
		if err := batch.Index(key, doc); err != nil {
			idx.Close()
			return nil, fmt.Errorf("index record %s: %w", key, err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		idx.Close()
		return nil, fmt.Errorf("commit index batch: %w", err)
	}

	return &Index{
		idx:       idx,
		version:   ds.Version,
		records:   ds.Records,
		byKey:     byKey,
		fuzziness: Fuzziness(fuzzyThreshold),
	}, nil
}

// Version returns the dataset version this index was built from.
func (ix *Index) Version() string {
	return ix.version
}

// Search returns records ranked by similarity to the query, best first.
// An empty query bypasses scoring and returns the dataset in its stable
// stored order.
func (ix *Index) Search(q string) ([]models.Record, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return ix.records, nil
	}
	if len(ix.records) == 0 {
		return nil, nil
	}

	request := bleve.NewSearchRequestOptions(ix.buildQuery(q), len(ix.records), 0, false)
	result, err := ix.idx.Search(request)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	matches := make([]models.Record, 0, len(result.Hits))
	for _, hit := range result.Hits {
		if pos, ok := ix.byKey[hit.ID]; ok {
			matches = append(matches, ix.records[pos])
		}
	}
	return matches, nil
}

// buildQuery matches the query against every indexed field, with fuzzy
// tolerance, plus a prefix match on the title for partial typing.
func (ix *Index) buildQuery(q string) query.Query {
	fields := []string{fieldTitle, fieldYear, fieldAuthor, fieldPublication}
	queries := make([]query.Query, 0, len(fields)+1)

	for _, field := range fields {
		match := bleve.NewMatchQuery(q)
		match.SetField(field)
		if ix.fuzziness > 0 {
			match.SetFuzziness(ix.fuzziness)
		}
		queries = append(queries, match)
	}

	if len(q) >= 2 {
		prefix := bleve.NewPrefixQuery(strings.ToLower(q))
		prefix.SetField(fieldTitle)
		prefix.SetBoost(0.5)
		queries = append(queries, prefix)
	}

	return bleve.NewDisjunctionQuery(queries...)
}

// Close releases the in-memory index.
func (ix *Index) Close() error {
	return ix.idx.Close()
}
