package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHeaderAndRows(t *testing.T) {
	text := "Vehicle Vin,Vehicle Make,Vehicle Model,Retail\n" +
		`1G1JC12345,Chevrolet,Malibu,"5,900"` + "\n"

	table, err := Parse(text)
	require.NoError(t, err)

	assert.Equal(t, []string{"Vehicle Vin", "Vehicle Make", "Vehicle Model", "Retail"}, table.Headers)
	require.Len(t, table.Rows, 1)

	row := table.Rows[0]
	assert.Equal(t, "1G1JC12345", row.Get("Vehicle Vin"))
	assert.Equal(t, "Chevrolet", row.Get("Vehicle Make"))
	assert.Equal(t, "5,900", row.Get("Retail"))
	assert.Equal(t, 0, row.Index)
	assert.Equal(t, 2, row.Line)
	assert.Equal(t, ModeLine, table.Mode)
}

func TestParseEdgeCases(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		headers   []string
		rows      [][]string
		malformed int
	}{
		{
			name: "empty input",
			text: "",
		},
		{
			name:    "blank lines skipped before header and between rows",
			text:    "\n\n  \nA,B\n\n1,2\r\n\n3,4\n",
			headers: []string{"A", "B"},
			rows:    [][]string{{"1", "2"}, {"3", "4"}},
		},
		{
			name:    "short row padded",
			text:    "A,B,C\n1\n",
			headers: []string{"A", "B", "C"},
			rows:    [][]string{{"1", "", ""}},
		},
		{
			name:    "long row truncated",
			text:    "A,B\n1,2,3,4\n",
			headers: []string{"A", "B"},
			rows:    [][]string{{"1", "2"}},
		},
		{
			name:    "tokens trimmed and quotes stripped once",
			text:    "A,B\n  \"x\"  , \"\"\"y\"\"\" \n",
			headers: []string{"A", "B"},
			rows:    [][]string{{"x", `"y"`}},
		},
		{
			name:      "unbalanced quote runs to end of line",
			text:      "A,B,C\n1,\"open,2\n4,5,6\n",
			headers:   []string{"A", "B", "C"},
			rows:      [][]string{{"1", `"open,2`, ""}, {"4", "5", "6"}},
			malformed: 1,
		},
		{
			name:    "quoted header",
			text:    "\"Stock #\",\"Price\"\nA1,100\n",
			headers: []string{"Stock #", "Price"},
			rows:    [][]string{{"A1", "100"}},
		},
		{
			name:    "byte order mark stripped",
			text:    "\ufeffVIN,Make\nX,Y\n",
			headers: []string{"VIN", "Make"},
			rows:    [][]string{{"X", "Y"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := Parse(tt.text)
			require.NoError(t, err)

			assert.Equal(t, tt.headers, table.Headers)
			require.Len(t, table.Rows, len(tt.rows))
			for i, want := range tt.rows {
				assert.Equal(t, want, table.Rows[i].Fields, "row %d", i)
			}
			assert.Equal(t, tt.malformed, table.Malformed)
		})
	}
}

func TestParseRepeatedHeaderFirstWins(t *testing.T) {
	table, err := Parse("Price,Price\n100,200\n")
	require.NoError(t, err)
	assert.Equal(t, "100", table.Rows[0].Get("Price"))
}

func TestParseIsDeterministic(t *testing.T) {
	text := "VIN,Make,Model,Price\nA,Ford,F-150,\"12,000\"\nB,Ram,1500,9000\n"
	first, err := Parse(text)
	require.NoError(t, err)
	second, err := Parse(text)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestParseRFCMode(t *testing.T) {
	text := "VIN,Comments,Price\n" +
		"A1,\"Clean title.\nOne owner.\",5900\n" +
		"B2,Short,100,extra\n" +
		"C3\n"

	table, err := Parse(text, WithMode(ModeRFC))
	require.NoError(t, err)

	assert.Equal(t, ModeRFC, table.Mode)
	require.Len(t, table.Rows, 3)
	assert.Equal(t, "Clean title.\nOne owner.", table.Rows[0].Get("Comments"))
	assert.Equal(t, "5900", table.Rows[0].Get("Price"))
	assert.Equal(t, []string{"B2", "Short", "100"}, table.Rows[1].Fields)
	assert.Equal(t, []string{"C3", "", ""}, table.Rows[2].Fields)
	assert.Equal(t, 4, table.Rows[1].Line)
}

func TestParseLineModeSplitsEmbeddedNewline(t *testing.T) {
	text := "VIN,Comments\nA1,\"first\nsecond\"\n"
	table, err := Parse(text)
	require.NoError(t, err)

	// the quoted newline is not supported in line mode: both halves become rows
	require.Len(t, table.Rows, 2)
	assert.Equal(t, 2, table.Malformed)
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeLine, false},
		{"line", ModeLine, false},
		{"RFC", ModeRFC, false},
		{"csv", ModeRFC, false},
		{"tsv", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := Parse("A\n1\n", WithMode("tsv"))
	assert.Error(t, err)
}
