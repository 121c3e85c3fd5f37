// Package normalize canonicalizes raw collection records and merges them
// into one dataset. Author fields are split into atomic name tokens, the
// field-name union is accumulated for column display, and the distinct
// facet value sets are derived and sorted.
package normalize

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/commandcenter/aggregator/models"
)

// Batch tags one collection's fetched records with their handle.
type Batch struct {
	Handle  models.CollectionHandle
	Records []models.RawRecord
}

// authorSeparators is the delimiter grammar for compound author strings:
// comma, semicolon, or the word "and" surrounded by whitespace.
var authorSeparators = regexp.MustCompile(`\s*,\s*|\s*;\s*|\s+and\s+`)

// SplitAuthors canonicalizes an Author field value into atomic name
// tokens: a string is split on the delimiter grammar, a list is trimmed
// per element, and absence yields no tokens. Empty tokens are dropped.
func SplitAuthors(v models.Value) []string {
	var parts []string
	switch v.Kind() {
	case models.KindScalar:
		parts = authorSeparators.Split(v.Display(), -1)
	case models.KindList:
		parts = v.Strings()
	default:
		return nil
	}

	tokens := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			tokens = append(tokens, trimmed)
		}
	}
	return tokens
}

// versionCounter disambiguates datasets built within the same nanosecond.
var versionCounter atomic.Uint64

func newVersion() string {
	return strconv.FormatInt(time.Now().UnixNano(), 36) + "-" + strconv.FormatUint(versionCounter.Add(1), 10)
}

// Merge builds one dataset from the per-collection batches of an ingestion
// pass. Records keep source-then-fetch order; identity collisions within
// the merged set are dropped after the first occurrence. The field-name
// union keeps first-seen order; facet sets are de-duplicated and sorted
// (years descending numeric, authors and publications ascending
// case-insensitive).
func Merge(batches []Batch) *models.Dataset {
	ds := &models.Dataset{Version: newVersion()}

	seen := make(map[string]struct{})
	fieldSeen := make(map[string]struct{})
	years := make(map[string]struct{})
	authors := make(map[string]struct{})
	publications := make(map[string]struct{})

	for _, batch := range batches {
		for _, raw := range batch.Records {
			record := models.Record{
				SourceID:     batch.Handle.SourceID,
				CollectionID: batch.Handle.CollectionID,
				ID:           raw.ID,
				Fields:       make(map[string]models.Value, len(raw.Fields)),
			}
			if _, dup := seen[record.Key()]; dup {
				continue
			}
			seen[record.Key()] = struct{}{}

			names := make([]string, 0, len(raw.Fields))
			for name, value := range raw.Fields {
				record.Fields[name] = value
				names = append(names, name)
			}
			// Sorted per record so the accumulated union order is
			// deterministic for a given ingestion pass.
			sort.Strings(names)
			for _, name := range names {
				if _, ok := fieldSeen[name]; !ok {
					fieldSeen[name] = struct{}{}
					ds.Fields = append(ds.Fields, name)
				}
			}

			record.Authors = SplitAuthors(raw.Fields[models.FieldAuthor])
			if len(record.Authors) > 0 {
				items := make([]any, len(record.Authors))
				for i, author := range record.Authors {
					items[i] = author
				}
				record.Fields[models.FieldAuthor] = models.List(items...)
			}

			if year := record.Year(); year != "" {
				years[year] = struct{}{}
			}
			for _, author := range record.Authors {
				authors[author] = struct{}{}
			}
			if pub := record.Publication(); pub != "" {
				publications[pub] = struct{}{}
			}

			ds.Records = append(ds.Records, record)
		}
	}

	ds.Years = sortYearsDescending(keys(years))
	ds.Authors = sortCaseInsensitive(keys(authors))
	ds.Publications = sortCaseInsensitive(keys(publications))
	return ds
}

func keys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}

// sortYearsDescending orders years newest first. Non-numeric values sort
// after numeric ones, descending lexicographically.
func sortYearsDescending(years []string) []string {
	sort.Slice(years, func(i, j int) bool {
		a, aErr := strconv.ParseFloat(years[i], 64)
		b, bErr := strconv.ParseFloat(years[j], 64)
		switch {
		case aErr == nil && bErr == nil:
			return a > b
		case aErr == nil:
			return true
		case bErr == nil:
			return false
		default:
			return years[i] > years[j]
		}
	})
	return years
}

func sortCaseInsensitive(values []string) []string {
	sort.Slice(values, func(i, j int) bool {
		a, b := strings.ToLower(values[i]), strings.ToLower(values[j])
		if a != b {
			return a < b
		}
		return values[i] < values[j]
	})
	return values
}
