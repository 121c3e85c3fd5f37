package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"reflect"
	"testing"

	"github.com/commandcenter/aggregator/models"
)

func sampleRecords() []models.Record {
	return []models.Record{
		{
			SourceID:     "app1",
			CollectionID: "tblA",
			ID:           "rec1",
			Fields: map[string]models.Value{
				models.FieldTitle: models.String("First"),
				models.FieldYear:  models.Number(2020),
			},
			Authors: []string{"Jane Doe"},
		},
		{
			SourceID:     "app1",
			CollectionID: "tblA",
			ID:           "rec2",
			Fields: map[string]models.Value{
				models.FieldTitle: models.String("Second"),
			},
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	fields := []string{models.FieldTitle, models.FieldYear}

	if err := WriteCSV(&buf, fields, sampleRecords()); err != nil {
		t.Fatalf("WriteCSV() error: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("reading back csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("wrote %d rows, want header plus 2 records", len(rows))
	}
	if want := []string{"source", "collection", "id", "Title", "Year"}; !reflect.DeepEqual(rows[0], want) {
		t.Errorf("header = %v, want %v", rows[0], want)
	}
	if want := []string{"app1", "tblA", "rec1", "First", "2020"}; !reflect.DeepEqual(rows[1], want) {
		t.Errorf("row 1 = %v, want %v", rows[1], want)
	}
	// Missing Year renders as an empty cell, not a dropped column.
	if want := []string{"app1", "tblA", "rec2", "Second", ""}; !reflect.DeepEqual(rows[2], want) {
		t.Errorf("row 2 = %v, want %v", rows[2], want)
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, sampleRecords()); err != nil {
		t.Fatalf("WriteJSON() error: %v", err)
	}

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 2 {
		t.Fatalf("wrote %d lines, want 2", len(lines))
	}
	var record models.Record
	if err := json.Unmarshal(lines[0], &record); err != nil {
		t.Fatalf("line 1 is not valid JSON: %v", err)
	}
	if record.ID != "rec1" || record.Title() != "First" {
		t.Errorf("decoded record = %+v", record)
	}
}
