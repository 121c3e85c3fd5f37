// Package export writes record sets out as CSV or newline-delimited JSON
// for consumers that want the data outside the dashboard.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"

	"github.com/commandcenter/aggregator/models"
)

// WriteCSV writes a header row of the dataset's field-name union plus the
// record provenance columns, then one row per record. Absent fields render
// as empty cells, not omitted columns.
func WriteCSV(w io.Writer, fields []string, records []models.Record) error {
	writer := csv.NewWriter(w)

	header := make([]string, 0, len(fields)+3)
	header = append(header, "source", "collection", "id")
	header = append(header, fields...)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	row := make([]string, len(header))
	for _, record := range records {
		row = row[:0]
		row = append(row, record.SourceID, record.CollectionID, record.ID)
		for _, field := range fields {
			row = append(row, record.Fields[field].Display())
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv records: %w", err)
	}
	return nil
}

// WriteJSON writes records in JSONL format, one record per line.
func WriteJSON(w io.Writer, records []models.Record) error {
	encoder := json.NewEncoder(w)
	for _, record := range records {
		if err := encoder.Encode(record); err != nil {
			return fmt.Errorf("encode json record: %w", err)
		}
	}
	return nil
}
