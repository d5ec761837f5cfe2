package schema

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"

	"github.com/matt653/high-life-auto-sub000/pkg/feed"
	"github.com/matt653/high-life-auto-sub000/pkg/vehicles"
)

// Normalizer converts raw rows into canonical vehicles using a header table.
type Normalizer struct {
	table Table
	// keys holds, per field, the canonical name followed by candidates,
	// pre-normalized.
	keys map[string][]string
}

// NewNormalizer creates a normalizer for table.
func NewNormalizer(table Table) *Normalizer {
	n := &Normalizer{
		table: table.Clone(),
		keys:  make(map[string][]string, len(Fields)),
	}
	for _, field := range Fields {
		keys := []string{normalizeHeader(field)}
		for _, c := range table.Fields[field] {
			if k := normalizeHeader(c); k != "" {
				keys = append(keys, k)
			}
		}
		n.keys[field] = keys
	}
	return n
}

// Table returns the normalizer's header table.
func (n *Normalizer) Table() Table {
	return n.table.Clone()
}

// Binding records which header column feeds each canonical field.
// A missing field has no matching header.
type Binding map[string]int

// Header returns the header bound to field, or "".
func (b Binding) Header(headers []string, field string) string {
	if i, ok := b[field]; ok && i < len(headers) {
		return headers[i]
	}
	return ""
}

// Bind resolves headers against the table.
func (n *Normalizer) Bind(headers []string) Binding {
	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = normalizeHeader(h)
	}

	binding := make(Binding, len(Fields))
	for _, field := range Fields {
		if i, ok := n.match(field, normalized); ok {
			binding[field] = i
		}
	}
	return binding
}

// match runs the exact pass, then the substring pass.
func (n *Normalizer) match(field string, headers []string) (int, bool) {
	keys := n.keys[field]

	for _, key := range keys {
		for i, h := range headers {
			if h != "" && h == key {
				return i, true
			}
		}
	}

	// candidates only; the canonical name is not a substring candidate
	for _, key := range keys[1:] {
		for i, h := range headers {
			if strings.Contains(h, key) {
				return i, true
			}
		}
	}

	return -1, false
}

// Normalize maps one row onto the canonical schema.
func (n *Normalizer) Normalize(row feed.Row, headers []string) vehicles.Vehicle {
	return n.apply(n.Bind(headers), row)
}

// NormalizeTable maps every row of a parsed feed, binding headers once.
func (n *Normalizer) NormalizeTable(table *feed.Table) []vehicles.Vehicle {
	if table.Len() == 0 {
		return nil
	}
	binding := n.Bind(table.Headers)
	out := make([]vehicles.Vehicle, 0, len(table.Rows))
	for _, row := range table.Rows {
		out = append(out, n.apply(binding, row))
	}
	return out
}

func (n *Normalizer) apply(b Binding, row feed.Row) vehicles.Vehicle {
	get := func(field string) string {
		if i, ok := b[field]; ok && i < len(row.Fields) {
			return strings.TrimSpace(row.Fields[i])
		}
		return ""
	}

	return vehicles.Vehicle{
		VIN:           vehicles.NormalizeVIN(get(FieldVIN)),
		StockNumber:   get(FieldStockNumber),
		Year:          ParseInt(get(FieldYear)),
		Make:          orUnknown(get(FieldMake)),
		Model:         orUnknown(get(FieldModel)),
		Trim:          get(FieldTrim),
		Mileage:       ParseInt(get(FieldMileage)),
		Price:         ParseNumber(get(FieldPrice)),
		Images:        ParseURLList(get(FieldImages)),
		BaseComments:  get(FieldBaseComments),
		VideoURL:      firstOf(ParseList(get(FieldVideoURL))),
		Options:       ParseList(get(FieldOptions)),
		Engine:        get(FieldEngine),
		Transmission:  get(FieldTransmission),
		ExteriorColor: get(FieldExteriorColor),
		InteriorColor: get(FieldInteriorColor),
		BodyStyle:     get(FieldBodyStyle),
		Drivetrain:    get(FieldDrivetrain),
		FuelType:      get(FieldFuelType),
		Row:           row.Index,
	}
}

// ParseNumber keeps only digits and '.', then parses. Failure yields 0.
func ParseNumber(s string) float64 {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, s)
	if cleaned == "" {
		return 0
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0
	}
	return f
}

// ParseInt is ParseNumber rounded to the nearest integer.
func ParseInt(s string) int {
	f := ParseNumber(s)
	if f > math.MaxInt32 {
		return 0
	}
	return int(math.Round(f))
}

// ParseList normalizes '|', ';' and ',' to one separator, splits, trims,
// and drops empty entries.
func ParseList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	s = strings.NewReplacer("|", ",", ";", ",").Replace(s)

	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ParseURLList is ParseList keeping only http and https URLs.
func ParseURLList(s string) []string {
	var out []string
	for _, entry := range ParseList(s) {
		lower := strings.ToLower(entry)
		if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
			out = append(out, entry)
		}
	}
	return out
}

func orUnknown(s string) string {
	if s == "" {
		return vehicles.UnknownValue
	}
	return s
}

func firstOf(list []string) string {
	if len(list) == 0 {
		return ""
	}
	return list[0]
}

// normalizeHeader case-folds and drops whitespace and punctuation.
func normalizeHeader(h string) string {
	// a Caser is stateful, so each call gets its own
	folded := cases.Fold().String(h)
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, folded)
}
