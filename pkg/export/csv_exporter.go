package export

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/attendly/attendance-api/internal/dto"
)

var historyHeaders = []string{"date", "status", "created_at"}

// CSVExporter renders attendance history into CSV bytes.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes for the history entries.
func (e *CSVExporter) Render(entries []dto.AttendanceHistoryEntry) ([]byte, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(historyHeaders); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for _, entry := range entries {
		if err := writer.Write([]string{entry.Date, entry.Status, entry.CreatedAt}); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
