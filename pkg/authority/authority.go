// Package authority holds the field-level precedence table used when a base
// vehicle is merged with its enhancement.
//
// The table is data, not code: each entry names a view field (json name,
// wildcards allowed) and whether the base record always wins or the
// enhancement wins when it supplies a value.
package authority

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/matt653/high-life-auto-sub000/pkg/errors"
)

// Rule says which record supplies a field.
type Rule string

// Precedence rules.
const (
	// BaseAlways fields are always taken from the base record.
	BaseAlways Rule = "BASE_ALWAYS"
	// EnhancementPreferred fields take the enhancement value when present,
	// otherwise the base value.
	EnhancementPreferred Rule = "ENHANCEMENT_PREFERRED"
)

// String returns the string representation of the rule.
func (r Rule) String() string {
	return string(r)
}

// ParseRule converts a configuration string into a Rule.
func ParseRule(s string) (Rule, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(BaseAlways), "BASE":
		return BaseAlways, nil
	case string(EnhancementPreferred), "ENHANCEMENT":
		return EnhancementPreferred, nil
	default:
		return "", errors.NewValidationError("rule", s, "must be BASE_ALWAYS or ENHANCEMENT_PREFERRED")
	}
}

// ProtectedFields is the fixed set of fields whose value always comes from
// the base record.
var ProtectedFields = []string{
	"price",
	"stockNumber",
	"year",
	"make",
	"vin",
	"model",
	"baseComments",
}

// Field is one entry of the precedence table.
type Field struct {
	Path     string `json:"path" yaml:"path"` // view json name, e.g. "price" or "grade*"
	Rule     Rule   `json:"rule" yaml:"rule"`
	Priority int    `json:"priority" yaml:"priority"` // higher wins when patterns overlap
}

// Table is an inspectable precedence table. Fields it does not list follow
// the fallback rule.
type Table struct {
	fields   []Field
	fallback Rule
}

// New creates a table from explicit entries. Unlisted fields are
// EnhancementPreferred.
func New(fields ...Field) *Table {
	return &Table{
		fields:   append([]Field(nil), fields...),
		fallback: EnhancementPreferred,
	}
}

// Default returns the standard table: the protected fields are BaseAlways,
// everything else is EnhancementPreferred.
func Default() *Table {
	fields := make([]Field, 0, len(ProtectedFields)+1)
	for _, f := range ProtectedFields {
		fields = append(fields, Field{Path: f, Rule: BaseAlways, Priority: 100})
	}
	// identity links base and enhancement and is never replaced
	fields = append(fields, Field{Path: "identity", Rule: BaseAlways, Priority: 100})
	return New(fields...)
}

// Rule returns the rule for a field.
func (t *Table) Rule(field string) Rule {
	if f := ByField(field, t.fields); f != nil {
		return f.Rule
	}
	return t.fallback
}

// Protected returns the literal BaseAlways paths, sorted.
func (t *Table) Protected() []string {
	var out []string
	for _, f := range filterByRule(t.fields, BaseAlways) {
		if !strings.ContainsAny(f.Path, "*?[") {
			out = append(out, f.Path)
		}
	}
	sort.Strings(out)
	return out
}

// IsProtected reports whether field always comes from the base record.
func (t *Table) IsProtected(field string) bool {
	return t.Rule(field) == BaseAlways
}

// ByField returns the highest priority entry matching a field path
func ByField(fieldPath string, fields []Field) *Field {
	var bestMatch *Field
	var bestPriority int
	var bestMatchLength int

	for i, f := range fields {
		if MatchesPattern(fieldPath, f.Path) {
			// Prioritize by: 1) priority, 2) pattern specificity (length), 3) order
			patternLength := len(f.Path)
			if bestMatch == nil || f.Priority > bestPriority ||
				(f.Priority == bestPriority && patternLength > bestMatchLength) {
				bestMatch = &fields[i]
				bestPriority = f.Priority
				bestMatchLength = patternLength
			}
		}
	}

	return bestMatch
}

// MatchesPattern checks if a field path matches a pattern (supports * wildcards)
func MatchesPattern(fieldPath, pattern string) bool {
	if fieldPath == pattern {
		return true
	}

	if len(pattern) > 0 && pattern[len(pattern)-1] == '*' {
		prefix := pattern[:len(pattern)-1]
		return strings.HasPrefix(fieldPath, prefix)
	}

	matched, err := filepath.Match(pattern, fieldPath)
	if err != nil {
		return false
	}
	return matched
}

func filterByRule(fields []Field, rule Rule) []Field {
	var filtered []Field
	for _, f := range fields {
		if f.Rule == rule {
			filtered = append(filtered, f)
		}
	}
	return filtered
}
