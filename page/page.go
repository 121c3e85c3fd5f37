// Package page slices an ordered record sequence into fixed-size pages.
package page

import "github.com/commandcenter/aggregator/models"

// Paginate returns the requested page of records and the total page count.
// pageNumber is clamped to [1, totalPages]; totalPages is at least 1 even
// for an empty record set, so a consumer never sees an out-of-range slice.
func Paginate(records []models.Record, pageSize, pageNumber int) ([]models.Record, int) {
	if pageSize <= 0 {
		pageSize = 1
	}

	totalPages := (len(records) + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}

	if pageNumber < 1 {
		pageNumber = 1
	}
	if pageNumber > totalPages {
		pageNumber = totalPages
	}

	start := (pageNumber - 1) * pageSize
	if start >= len(records) {
		return []models.Record{}, totalPages
	}
	end := start + pageSize
	if end > len(records) {
		end = len(records)
	}
	return records[start:end], totalPages
}
