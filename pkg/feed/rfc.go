package feed

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/matt653/high-life-auto-sub000/pkg/errors"
)

// parseRFC tokenizes with encoding/csv so quoted fields may span lines.
// Errors are returned so the caller can fall back to line mode.
func parseRFC(text string) (*Table, error) {
	table := &Table{Mode: ModeRFC}

	reader := csv.NewReader(strings.NewReader(text))
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = false

	index := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.WrapParse("csv", "feed", err)
		}
		if isBlankRecord(record) {
			continue
		}

		line, _ := reader.FieldPos(0)
		fields := make([]string, len(record))
		for i, f := range record {
			fields[i] = strings.TrimSpace(f)
		}

		if table.Headers == nil {
			table.Headers = fields
			continue
		}
		table.Rows = append(table.Rows, newRow(table.Headers, fields, index, line))
		index++
	}

	return table, nil
}

func isBlankRecord(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
