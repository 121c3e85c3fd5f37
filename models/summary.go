package models

import "sort"

// Summary holds the roll-up counts computed over a record set. Counters
// agree with the normalization grammar, so a summary over a filtered set is
// consistent with the facets that produced it.
type Summary struct {
	TotalRecords             int            `json:"totalRecords"`
	RecordsByYear            map[string]int `json:"recordsByYear"`
	RecordsByAuthor          map[string]int `json:"recordsByAuthor"`
	RecordsByPublication     map[string]int `json:"recordsByPublication"`
	RecordsWithNoYear        int            `json:"recordsWithNoYear"`
	RecordsWithNoAuthor      int            `json:"recordsWithNoAuthor"`
	RecordsWithNoPublication int            `json:"recordsWithNoPublication"`
}

// FacetCount pairs a facet value with its record count.
type FacetCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// TopYear returns the most frequent year, or false when none counted.
func (s Summary) TopYear() (FacetCount, bool) {
	return topOf(s.RecordsByYear)
}

// TopPublication returns the most frequent publication, or false when none
// counted.
func (s Summary) TopPublication() (FacetCount, bool) {
	return topOf(s.RecordsByPublication)
}

// TopAuthors returns up to n authors ordered by descending count, ties
// broken lexicographically.
func (s Summary) TopAuthors(n int) []FacetCount {
	counts := make([]FacetCount, 0, len(s.RecordsByAuthor))
	for value, count := range s.RecordsByAuthor {
		counts = append(counts, FacetCount{Value: value, Count: count})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Value < counts[j].Value
	})
	if n < len(counts) {
		counts = counts[:n]
	}
	return counts
}

func topOf(counts map[string]int) (FacetCount, bool) {
	best := FacetCount{}
	found := false
	for value, count := range counts {
		if !found || count > best.Count || (count == best.Count && value < best.Value) {
			best = FacetCount{Value: value, Count: count}
			found = true
		}
	}
	return best, found
}
