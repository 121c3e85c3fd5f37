// Package filter narrows a record set by the consumer's facet selection.
// Facets are ANDed together; multiple values within one facet are ORed.
package filter

import "github.com/commandcenter/aggregator/models"

// Apply returns the records passing every active facet predicate, in the
// order they were given (the search ranking is preserved). An empty facet
// set passes all records for that facet.
func Apply(records []models.Record, state models.FilterState) []models.Record {
	years := toSet(state.Years)
	authors := toSet(state.Authors)
	publications := toSet(state.Publications)

	if len(years) == 0 && len(authors) == 0 && len(publications) == 0 {
		return records
	}

	out := make([]models.Record, 0, len(records))
	for _, record := range records {
		if !matchesYear(record, years) {
			continue
		}
		if !matchesAuthor(record, authors) {
			continue
		}
		if !matchesPublication(record, publications) {
			continue
		}
		out = append(out, record)
	}
	return out
}

func matchesYear(record models.Record, years map[string]struct{}) bool {
	if len(years) == 0 {
		return true
	}
	_, ok := years[record.Year()]
	return ok
}

// matchesAuthor passes when any of the record's normalized author tokens
// is among the selected authors.
func matchesAuthor(record models.Record, authors map[string]struct{}) bool {
	if len(authors) == 0 {
		return true
	}
	for _, author := range record.Authors {
		if _, ok := authors[author]; ok {
			return true
		}
	}
	return false
}

func matchesPublication(record models.Record, publications map[string]struct{}) bool {
	if len(publications) == 0 {
		return true
	}
	_, ok := publications[record.Publication()]
	return ok
}

func toSet(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
