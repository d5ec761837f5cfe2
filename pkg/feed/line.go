package feed

import "strings"

// parseLines implements line mode: split on newline, skip blank lines,
// the first non-blank line is the header row.
func parseLines(text string) *Table {
	table := &Table{Mode: ModeLine}

	index := 0
	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields, balanced := tokenize(line)
		if table.Headers == nil {
			table.Headers = fields
			continue
		}
		if !balanced {
			table.Malformed++
		}
		table.Rows = append(table.Rows, newRow(table.Headers, fields, index, i+1))
		index++
	}

	return table
}

// tokenize splits one line on commas outside double quotes. A quote toggles
// the in-quotes flag. Each token is trimmed and loses one layer of wrapping
// quotes. The second result is false when quotes were left open; the open
// field then runs to the end of the line.
func tokenize(line string) ([]string, bool) {
	var (
		fields  []string
		current strings.Builder
		quoted  bool
	)

	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
			current.WriteRune(r)
		case r == ',' && !quoted:
			fields = append(fields, cleanToken(current.String()))
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	fields = append(fields, cleanToken(current.String()))

	return fields, !quoted
}

func cleanToken(token string) string {
	token = strings.TrimSpace(token)
	if len(token) >= 2 && token[0] == '"' && token[len(token)-1] == '"' {
		token = token[1 : len(token)-1]
		token = strings.ReplaceAll(token, `""`, `"`)
	}
	return token
}
