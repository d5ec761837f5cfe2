// Package table converts inventory values into rows for CLI tables.
package table

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Align represents column alignment in tables.
type Align int

const (
	// AlignDefault uses the default alignment (skip).
	AlignDefault Align = iota
	// AlignLeft aligns content to the left.
	AlignLeft
	// AlignCenter centers content.
	AlignCenter
	// AlignRight aligns content to the right.
	AlignRight
)

// Data represents table formatting data to avoid import cycles.
type Data struct {
	Headers         []string
	Rows            [][]string
	ColumnAlignment []Align // Optional: column alignment
}

var printer = message.NewPrinter(language.English)

// FormatPrice renders a price with thousands separators, or "-" when unset.
func FormatPrice(price float64) string {
	if price <= 0 {
		return "-"
	}
	if price == float64(int64(price)) {
		return printer.Sprintf("$%d", int64(price))
	}
	return printer.Sprintf("$%.2f", price)
}

// FormatMileage renders a mileage with thousands separators, or "-".
func FormatMileage(miles int) string {
	if miles <= 0 {
		return "-"
	}
	return printer.Sprintf("%d mi", miles)
}

// FormatYear renders a model year, or "-" when unknown.
func FormatYear(year int) string {
	if year <= 0 {
		return "-"
	}
	return strconv.Itoa(year)
}

// FormatTimestamp renders t relative to now for recent times and as a date
// otherwise.
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return t.Format("2006-01-02")
	}
}

// Truncate shortens s to n runes, marking the cut with an ellipsis.
func Truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
