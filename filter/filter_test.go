package filter

import (
	"testing"

	"github.com/commandcenter/aggregator/models"
)

func testRecord(id, year string, authors []string, publication string) models.Record {
	fields := map[string]models.Value{}
	if year != "" {
		fields[models.FieldYear] = models.String(year)
	}
	if publication != "" {
		fields[models.FieldPublication] = models.String(publication)
	}
	return models.Record{
		SourceID:     "app1",
		CollectionID: "tblA",
		ID:           id,
		Fields:       fields,
		Authors:      authors,
	}
}

func TestApply(t *testing.T) {
	records := []models.Record{
		testRecord("rec1", "2020", []string{"Jane Doe"}, "Alpha Review"),
		testRecord("rec2", "2019", []string{"John Smith"}, "Alpha Review"),
		testRecord("rec3", "2020", []string{"Jane Doe", "A. Lee"}, "Beta Journal"),
		testRecord("rec4", "", nil, ""),
	}

	tests := []struct {
		name  string
		state models.FilterState
		want  []string
	}{
		{
			name:  "empty filter passes everything",
			state: models.FilterState{},
			want:  []string{"rec1", "rec2", "rec3", "rec4"},
		},
		{
			name:  "single year",
			state: models.FilterState{Years: []string{"2020"}},
			want:  []string{"rec1", "rec3"},
		},
		{
			name:  "multiple values within a facet are ORed",
			state: models.FilterState{Years: []string{"2019", "2020"}},
			want:  []string{"rec1", "rec2", "rec3"},
		},
		{
			name: "facets are ANDed",
			state: models.FilterState{
				Years:        []string{"2020"},
				Publications: []string{"Beta Journal"},
			},
			want: []string{"rec3"},
		},
		{
			name:  "author matches any token",
			state: models.FilterState{Authors: []string{"A. Lee"}},
			want:  []string{"rec3"},
		},
		{
			name: "conjunction can be empty",
			state: models.FilterState{
				Years:   []string{"2019"},
				Authors: []string{"Jane Doe"},
			},
			want: []string{},
		},
		{
			name:  "missing value never matches an active facet",
			state: models.FilterState{Publications: []string{""}},
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Apply(records, tt.state)
			if len(got) != len(tt.want) {
				t.Fatalf("Apply() returned %d records, want %d", len(got), len(tt.want))
			}
			for i, record := range got {
				if record.ID != tt.want[i] {
					t.Errorf("record[%d] = %s, want %s", i, record.ID, tt.want[i])
				}
			}
		})
	}
}

func TestApplyPreservesInputOrder(t *testing.T) {
	// Ranked input order (rec3 before rec1) must survive filtering.
	records := []models.Record{
		testRecord("rec3", "2020", nil, ""),
		testRecord("rec1", "2020", nil, ""),
	}

	got := Apply(records, models.FilterState{Years: []string{"2020"}})
	if len(got) != 2 || got[0].ID != "rec3" || got[1].ID != "rec1" {
		t.Fatalf("Apply() reordered records: %v", got)
	}
}
