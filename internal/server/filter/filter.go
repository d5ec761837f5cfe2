// Package filter provides query parameter parsing and filtering for the
// vehicle list endpoint.
package filter

import (
	"cmp"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/matt653/high-life-auto-sub000/pkg/errors"
	"github.com/matt653/high-life-auto-sub000/pkg/vehicles"
)

// Defaults and caps for pagination.
const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// VehicleFilter contains all filter criteria for merged vehicle views.
type VehicleFilter struct {
	Make      string
	Model     string
	BodyStyle string
	Query     string

	MinYear    int
	MaxYear    int
	MinPrice   float64
	MaxPrice   float64
	MaxMileage int
	Enhanced   *bool
	HasImages  *bool
	StableOnly bool

	Sort   string
	Order  string
	Limit  int
	Offset int
}

// sortable lists the fields accepted by the sort parameter.
var sortable = map[string]func(a, b vehicles.View) int{
	"year":    func(a, b vehicles.View) int { return cmp.Compare(a.Year, b.Year) },
	"price":   func(a, b vehicles.View) int { return cmp.Compare(a.Price, b.Price) },
	"mileage": func(a, b vehicles.View) int { return cmp.Compare(a.Mileage, b.Mileage) },
	"make": func(a, b vehicles.View) int {
		return cmp.Or(
			cmp.Compare(strings.ToLower(a.Make), strings.ToLower(b.Make)),
			cmp.Compare(strings.ToLower(a.Model), strings.ToLower(b.Model)),
		)
	},
	"stock": func(a, b vehicles.View) int { return cmp.Compare(a.StockNumber, b.StockNumber) },
}

// ParseVehicleFilter extracts filter parameters from an HTTP request.
// Malformed numbers and unknown sort fields are validation errors.
func ParseVehicleFilter(r *http.Request) (VehicleFilter, error) {
	return Parse(r.URL.Query())
}

// Parse extracts filter parameters from query values.
func Parse(q url.Values) (VehicleFilter, error) {
	f := VehicleFilter{
		Make:      strings.TrimSpace(q.Get("make")),
		Model:     strings.TrimSpace(q.Get("model")),
		BodyStyle: strings.TrimSpace(q.Get("body_style")),
		Query:     strings.TrimSpace(q.Get("q")),
		Sort:      strings.ToLower(q.Get("sort")),
		Order:     strings.ToLower(q.Get("order")),
		Limit:     DefaultLimit,
	}

	var err error
	ints := []struct {
		name string
		dst  *int
	}{
		{"min_year", &f.MinYear},
		{"max_year", &f.MaxYear},
		{"max_mileage", &f.MaxMileage},
		{"limit", &f.Limit},
		{"offset", &f.Offset},
	}
	for _, p := range ints {
		if *p.dst, err = intParam(q, p.name, *p.dst); err != nil {
			return f, err
		}
	}
	if f.MinPrice, err = floatParam(q, "min_price"); err != nil {
		return f, err
	}
	if f.MaxPrice, err = floatParam(q, "max_price"); err != nil {
		return f, err
	}
	if f.Enhanced, err = boolParam(q, "enhanced"); err != nil {
		return f, err
	}
	if f.HasImages, err = boolParam(q, "has_images"); err != nil {
		return f, err
	}
	if stable, err := boolParam(q, "stable"); err != nil {
		return f, err
	} else if stable != nil {
		f.StableOnly = *stable
	}

	if f.Sort != "" {
		if _, ok := sortable[f.Sort]; !ok {
			return f, errors.NewValidationError("sort", f.Sort, "must be one of year, price, mileage, make, stock")
		}
	}
	if f.Order != "" && f.Order != "asc" && f.Order != "desc" {
		return f, errors.NewValidationError("order", f.Order, "must be asc or desc")
	}
	if f.Limit < 0 || f.Offset < 0 {
		return f, errors.NewValidationError("limit", f.Limit, "limit and offset must not be negative")
	}
	if f.Limit == 0 || f.Limit > MaxLimit {
		f.Limit = min(cmp.Or(f.Limit, DefaultLimit), MaxLimit)
	}
	return f, nil
}

// Apply returns the matching views, sorted when requested. Feed order is
// kept otherwise.
func (f VehicleFilter) Apply(views []vehicles.View) []vehicles.View {
	results := make([]vehicles.View, 0, len(views))
	for _, v := range views {
		if f.Matches(v) {
			results = append(results, v)
		}
	}

	if less, ok := sortable[f.Sort]; ok {
		slices.SortStableFunc(results, func(a, b vehicles.View) int {
			if f.Order == "desc" {
				return less(b, a)
			}
			return less(a, b)
		})
	}
	return results
}

// Page slices results by Offset and Limit.
func (f VehicleFilter) Page(results []vehicles.View) []vehicles.View {
	if f.Offset >= len(results) {
		return []vehicles.View{}
	}
	end := len(results)
	if f.Limit > 0 {
		end = min(f.Offset+f.Limit, end)
	}
	return results[f.Offset:end]
}

// Matches reports whether v satisfies every criterion.
func (f VehicleFilter) Matches(v vehicles.View) bool {
	if f.Make != "" && !strings.EqualFold(v.Make, f.Make) {
		return false
	}
	if f.Model != "" && !strings.EqualFold(v.Model, f.Model) {
		return false
	}
	if f.BodyStyle != "" && !strings.EqualFold(v.BodyStyle, f.BodyStyle) {
		return false
	}
	if f.MinYear > 0 && v.Year < f.MinYear {
		return false
	}
	if f.MaxYear > 0 && v.Year > f.MaxYear {
		return false
	}
	if f.MinPrice > 0 && v.Price < f.MinPrice {
		return false
	}
	if f.MaxPrice > 0 && v.Price > f.MaxPrice {
		return false
	}
	if f.MaxMileage > 0 && v.Mileage > f.MaxMileage {
		return false
	}
	if f.Enhanced != nil && v.Enhanced != *f.Enhanced {
		return false
	}
	if f.HasImages != nil && (len(v.Images) > 0) != *f.HasImages {
		return false
	}
	if f.StableOnly && !v.Stable() {
		return false
	}
	if f.Query != "" && !matchesQuery(v, f.Query) {
		return false
	}
	return true
}

// matchesQuery does a case-insensitive substring search over the fields a
// shopper would type.
func matchesQuery(v vehicles.View, query string) bool {
	query = strings.ToLower(query)
	for _, field := range []string{
		v.Title(), v.StockNumber, v.VIN, v.Trim, v.ExteriorColor, v.Description,
	} {
		if strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}

func intParam(q url.Values, name string, def int) (int, error) {
	s := q.Get(name)
	if s == "" {
		return def, nil
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def, errors.NewValidationError(name, s, "must be an integer")
	}
	return i, nil
}

func floatParam(q url.Values, name string) (float64, error) {
	s := q.Get(name)
	if s == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.NewValidationError(name, s, "must be a number")
	}
	return f, nil
}

func boolParam(q url.Values, name string) (*bool, error) {
	s := q.Get(name)
	if s == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return nil, errors.NewValidationError(name, s, "must be true or false")
	}
	return &b, nil
}
