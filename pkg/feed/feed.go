// Package feed turns raw comma-delimited inventory exports into ordered,
// header-keyed rows.
//
// Parsing never fails on bad data. Short rows are padded, long rows are
// truncated, and unbalanced quotes are handled best effort:
//
//	table, err := feed.Parse(text)
//	for _, row := range table.Rows {
//		fmt.Println(row.Get("Vehicle Vin"))
//	}
//
// The default line mode treats every physical line as one row. RFC mode
// (WithMode(ModeRFC)) additionally accepts newlines inside quoted fields.
package feed

import (
	"strings"

	"github.com/matt653/high-life-auto-sub000/pkg/errors"
	"github.com/matt653/high-life-auto-sub000/pkg/logging"
)

// Mode selects the tokenizer.
type Mode string

// Tokenizer modes.
const (
	// ModeLine splits on newlines first, then on unquoted commas.
	ModeLine Mode = "line"
	// ModeRFC uses an RFC 4180 reader and supports embedded newlines.
	ModeRFC Mode = "rfc"
)

// String returns the string representation of the mode.
func (m Mode) String() string {
	return string(m)
}

// ParseMode converts a configuration string into a Mode.
// The empty string selects ModeLine.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeLine:
		return ModeLine, nil
	case ModeRFC, "csv":
		return ModeRFC, nil
	default:
		return "", errors.NewValidationError("mode", s, "must be line or rfc")
	}
}

// Row is one raw data row keyed by the original header strings.
type Row struct {
	// Index is the 0-based position among data rows.
	Index int
	// Line is the 1-based source line the row started on.
	Line int
	// Fields holds the values aligned with Table.Headers.
	Fields []string
	// Values maps header to value. The first occurrence of a repeated
	// header wins.
	Values map[string]string
}

// Get returns the value under header, or "".
func (r Row) Get(header string) string {
	return r.Values[header]
}

// Table is a parsed feed.
type Table struct {
	Headers []string
	Rows    []Row
	// Malformed counts rows whose quoting was unbalanced.
	Malformed int
	// Mode is the tokenizer that produced the table.
	Mode Mode
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Parse tokenizes text into a Table. It only returns an error for invalid
// options; data problems never abort the batch.
func Parse(text string, opts ...Option) (*Table, error) {
	o, err := defaultOptions().apply(opts...)
	if err != nil {
		return nil, err
	}

	text = strings.TrimPrefix(text, "\ufeff")

	var table *Table
	switch o.mode {
	case ModeRFC:
		table, err = parseRFC(text)
		if err != nil {
			logging.Warn().
				Err(err).
				Str("feed", o.name).
				Msg("RFC tokenizer failed, falling back to line mode")
			table = parseLines(text)
		}
	default:
		table = parseLines(text)
	}

	if table.Malformed > 0 {
		logging.Debug().
			Str("feed", o.name).
			Int("malformed", table.Malformed).
			Msg("Feed has rows with unbalanced quotes")
	}

	return table, nil
}

// newRow aligns fields with headers: short rows are padded with "",
// extras are dropped.
func newRow(headers, fields []string, index, line int) Row {
	aligned := make([]string, len(headers))
	copy(aligned, fields)

	values := make(map[string]string, len(headers))
	for i, h := range headers {
		if _, seen := values[h]; !seen {
			values[h] = aligned[i]
		}
	}

	return Row{
		Index:  index,
		Line:   line,
		Fields: aligned,
		Values: values,
	}
}
