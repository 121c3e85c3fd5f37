// Package aggregate computes roll-up counts over an arbitrary record set.
package aggregate

import (
	"github.com/commandcenter/aggregator/models"
	"github.com/commandcenter/aggregator/normalize"
)

// Summarize counts records by year, author, and publication in a single
// pass, tracking a "missing value" counter per facet. Author counting uses
// the same splitting grammar as normalization, so summaries agree with the
// facets even for record sets that bypassed it. Pure: the same input
// always yields the same output.
func Summarize(records []models.Record) models.Summary {
	summary := models.Summary{
		TotalRecords:         len(records),
		RecordsByYear:        make(map[string]int),
		RecordsByAuthor:      make(map[string]int),
		RecordsByPublication: make(map[string]int),
	}

	for _, record := range records {
		if year := record.Year(); year != "" {
			summary.RecordsByYear[year]++
		} else {
			summary.RecordsWithNoYear++
		}

		authors := record.Authors
		if authors == nil {
			authors = normalize.SplitAuthors(record.Fields[models.FieldAuthor])
		}
		if len(authors) == 0 {
			summary.RecordsWithNoAuthor++
		}
		for _, author := range authors {
			summary.RecordsByAuthor[author]++
		}

		if pub := record.Publication(); pub != "" {
			summary.RecordsByPublication[pub]++
		} else {
			summary.RecordsWithNoPublication++
		}
	}

	return summary
}
