package normalize

import (
	"reflect"
	"testing"

	"github.com/commandcenter/aggregator/models"
)

func TestSplitAuthors(t *testing.T) {
	tests := []struct {
		name  string
		value models.Value
		want  []string
	}{
		{
			name:  "single author",
			value: models.String("Jane Doe"),
			want:  []string{"Jane Doe"},
		},
		{
			name:  "comma separated",
			value: models.String("Jane Doe, John Smith"),
			want:  []string{"Jane Doe", "John Smith"},
		},
		{
			name:  "semicolon separated",
			value: models.String("Jane Doe; John Smith"),
			want:  []string{"Jane Doe", "John Smith"},
		},
		{
			name:  "and separated",
			value: models.String("Jane Doe and John Smith"),
			want:  []string{"Jane Doe", "John Smith"},
		},
		{
			name:  "mixed separators",
			value: models.String("Jane Doe, John Smith and A. Lee"),
			want:  []string{"Jane Doe", "John Smith", "A. Lee"},
		},
		{
			name:  "surrounding whitespace trimmed",
			value: models.String("  Jane Doe ,  John Smith  "),
			want:  []string{"Jane Doe", "John Smith"},
		},
		{
			name:  "empty tokens dropped",
			value: models.String("Jane Doe,, ,John Smith"),
			want:  []string{"Jane Doe", "John Smith"},
		},
		{
			name:  "list value trimmed per element",
			value: models.List(" Jane Doe ", "John Smith", ""),
			want:  []string{"Jane Doe", "John Smith"},
		},
		{
			name:  "absent yields no tokens",
			value: models.Absent,
			want:  nil,
		},
		{
			name:  "name containing Anderson not split",
			value: models.String("Hans Anderson"),
			want:  []string{"Hans Anderson"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitAuthors(tt.value)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("SplitAuthors() = %v, want %v", got, tt.want)
			}
		})
	}
}

func record(id string, fields map[string]models.Value) models.RawRecord {
	return models.RawRecord{ID: id, Fields: fields}
}

func TestMergeOrderAndIdentity(t *testing.T) {
	batches := []Batch{
		{
			Handle: models.CollectionHandle{SourceID: "app1", CollectionID: "tblA"},
			Records: []models.RawRecord{
				record("rec1", map[string]models.Value{models.FieldTitle: models.String("First")}),
				record("rec2", map[string]models.Value{models.FieldTitle: models.String("Second")}),
				record("rec1", map[string]models.Value{models.FieldTitle: models.String("Duplicate")}),
			},
		},
		{
			Handle: models.CollectionHandle{SourceID: "app2", CollectionID: "tblA"},
			Records: []models.RawRecord{
				// Same record id, different source: a distinct record.
				record("rec1", map[string]models.Value{models.FieldTitle: models.String("Other source")}),
			},
		},
	}

	ds := Merge(batches)

	wantKeys := []string{"app1/tblA/rec1", "app1/tblA/rec2", "app2/tblA/rec1"}
	if ds.Len() != len(wantKeys) {
		t.Fatalf("merged %d records, want %d", ds.Len(), len(wantKeys))
	}
	for i, want := range wantKeys {
		if got := ds.Records[i].Key(); got != want {
			t.Errorf("record[%d] = %s, want %s", i, got, want)
		}
	}
	if got := ds.Records[0].Title(); got != "First" {
		t.Errorf("duplicate should keep first occurrence, got title %q", got)
	}
}

func TestMergeAuthorNormalization(t *testing.T) {
	batches := []Batch{{
		Handle: models.CollectionHandle{SourceID: "app1", CollectionID: "tblA"},
		Records: []models.RawRecord{
			record("rec1", map[string]models.Value{
				models.FieldAuthor: models.String("Jane Doe, John Smith and A. Lee"),
			}),
		},
	}}

	ds := Merge(batches)

	want := []string{"Jane Doe", "John Smith", "A. Lee"}
	if !reflect.DeepEqual(ds.Records[0].Authors, want) {
		t.Fatalf("Authors = %v, want %v", ds.Records[0].Authors, want)
	}
	// The Author field itself is rewritten to the token list.
	if got := ds.Records[0].Fields[models.FieldAuthor].Strings(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Author field = %v, want %v", got, want)
	}
	wantFacet := []string{"A. Lee", "Jane Doe", "John Smith"}
	if !reflect.DeepEqual(ds.Authors, wantFacet) {
		t.Fatalf("author facet = %v, want %v", ds.Authors, wantFacet)
	}
}

func TestMergeFacetSorting(t *testing.T) {
	batches := []Batch{{
		Handle: models.CollectionHandle{SourceID: "app1", CollectionID: "tblA"},
		Records: []models.RawRecord{
			record("rec1", map[string]models.Value{
				models.FieldYear:        models.Number(2019),
				models.FieldPublication: models.String("beta journal"),
			}),
			record("rec2", map[string]models.Value{
				models.FieldYear:        models.Number(2021),
				models.FieldPublication: models.String("Alpha Review"),
			}),
			record("rec3", map[string]models.Value{
				models.FieldYear:        models.Number(2020),
				models.FieldPublication: models.String("beta journal"),
			}),
		},
	}}

	ds := Merge(batches)

	if want := []string{"2021", "2020", "2019"}; !reflect.DeepEqual(ds.Years, want) {
		t.Errorf("Years = %v, want %v (descending)", ds.Years, want)
	}
	if want := []string{"Alpha Review", "beta journal"}; !reflect.DeepEqual(ds.Publications, want) {
		t.Errorf("Publications = %v, want %v (case-insensitive ascending)", ds.Publications, want)
	}
}

func TestMergeFieldUnion(t *testing.T) {
	batches := []Batch{{
		Handle: models.CollectionHandle{SourceID: "app1", CollectionID: "tblA"},
		Records: []models.RawRecord{
			record("rec1", map[string]models.Value{
				models.FieldTitle: models.String("A"),
				models.FieldYear:  models.Number(2020),
			}),
			record("rec2", map[string]models.Value{
				models.FieldTitle: models.String("B"),
				"Notes":           models.String("extra column"),
			}),
		},
	}}

	ds := Merge(batches)

	want := []string{"Title", "Year", "Notes"}
	if !reflect.DeepEqual(ds.Fields, want) {
		t.Fatalf("Fields = %v, want %v", ds.Fields, want)
	}
}

func TestMergeVersionsDistinct(t *testing.T) {
	a := Merge(nil)
	b := Merge(nil)
	if a.Version == "" || a.Version == b.Version {
		t.Fatalf("versions must be distinct and non-empty, got %q and %q", a.Version, b.Version)
	}
}
