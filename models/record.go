// Package models defines the data structures shared across the aggregation
// pipeline: collection handles, raw and normalized records, the merged
// dataset, filter state, and aggregate summaries.
package models

import (
	"sort"
	"strings"
)

// Well-known field names carried by the remote collections.
const (
	FieldTitle       = "Title"
	FieldYear        = "Year"
	FieldAuthor      = "Author"
	FieldPublication = "Publication"
)

// CollectionHandle identifies one remote paginated collection. Handles are
// defined at process start and never mutated.
type CollectionHandle struct {
	SourceID     string `json:"sourceId" yaml:"sourceId"`
	CollectionID string `json:"collectionId" yaml:"collectionId"`
}

func (h CollectionHandle) String() string {
	return h.SourceID + "/" + h.CollectionID
}

// RawRecord is one record as returned by a page fetch: an opaque identifier
// plus a field mapping. Owned transiently by the fetcher.
type RawRecord struct {
	ID     string           `json:"id"`
	Fields map[string]Value `json:"fields"`
}

// Record is the canonical unit stored in a merged dataset. The identity
// (SourceID, CollectionID, ID) is unique within a dataset; the same record
// ID arriving from two sources stays two distinct records. Records are
// immutable after normalization.
type Record struct {
	SourceID     string           `json:"sourceId"`
	CollectionID string           `json:"collectionId"`
	ID           string           `json:"id"`
	Fields       map[string]Value `json:"fields"`
	// Authors holds the canonical author name tokens split out of the
	// Author field during normalization.
	Authors []string `json:"authors,omitempty"`
}

// Key returns the dataset-wide identity of the record.
func (r Record) Key() string {
	return r.SourceID + "/" + r.CollectionID + "/" + r.ID
}

// Title returns the rendered Title field, empty when absent.
func (r Record) Title() string {
	return r.Fields[FieldTitle].Display()
}

// Year returns the rendered Year field, empty when absent.
func (r Record) Year() string {
	return r.Fields[FieldYear].Display()
}

// Publication returns the rendered Publication field, empty when absent.
func (r Record) Publication() string {
	return r.Fields[FieldPublication].Display()
}

// Dataset is the merged, normalized output of one full ingestion pass:
// the ordered record sequence plus the derived field-name union and facet
// value sets. A dataset is replaced wholesale on refresh, never patched.
type Dataset struct {
	// Version is unique per ingestion pass and identifies the dataset
	// instance for index rebuilds and memoization.
	Version      string   `json:"version"`
	Records      []Record `json:"records"`
	Fields       []string `json:"fields"`
	Years        []string `json:"years"`
	Authors      []string `json:"authors"`
	Publications []string `json:"publications"`
}

// Len returns the number of records in the dataset.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

// FilterState is the consumer's current search and facet selection. The
// pipeline treats it as an input value object and never mutates it. An
// empty facet set passes every record for that facet.
type FilterState struct {
	Query        string   `json:"query"`
	Years        []string `json:"years,omitempty"`
	Authors      []string `json:"authors,omitempty"`
	Publications []string `json:"publications,omitempty"`
}

// IsZero reports whether no query or facet is active.
func (f FilterState) IsZero() bool {
	return f.Query == "" && len(f.Years) == 0 && len(f.Authors) == 0 && len(f.Publications) == 0
}

// Key returns a canonical representation of the filter state, independent
// of facet selection order. Used for memoization and page-reset detection.
func (f FilterState) Key() string {
	sections := []string{
		f.Query,
		sortedJoin(f.Years),
		sortedJoin(f.Authors),
		sortedJoin(f.Publications),
	}
	return strings.Join(sections, "\x1e")
}

func sortedJoin(values []string) string {
	if len(values) == 0 {
		return ""
	}
	sorted := make([]string, len(values))
	copy(sorted, values)
	sort.Strings(sorted)
	return strings.Join(sorted, "\x1f")
}
