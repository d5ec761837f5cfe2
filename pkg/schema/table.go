// Package schema maps arbitrary feed headers onto the canonical vehicle
// schema.
//
// Every canonical field has an ordered list of candidate header substrings.
// Matching prefers an exact (case-folded, punctuation-insensitive) header,
// then the first header containing a candidate in priority order, then a
// field default. Unrecognized schemas degrade to defaults and never fail.
package schema

import (
	"os"
	"slices"
	"sort"

	"github.com/goccy/go-yaml"

	"github.com/matt653/high-life-auto-sub000/pkg/errors"
)

// Canonical field names. They match the json names on vehicles.Vehicle.
const (
	FieldVIN           = "vin"
	FieldStockNumber   = "stockNumber"
	FieldYear          = "year"
	FieldMake          = "make"
	FieldModel         = "model"
	FieldTrim          = "trim"
	FieldMileage       = "mileage"
	FieldPrice         = "price"
	FieldImages        = "images"
	FieldBaseComments  = "baseComments"
	FieldVideoURL      = "videoUrl"
	FieldOptions       = "options"
	FieldEngine        = "engine"
	FieldTransmission  = "transmission"
	FieldExteriorColor = "exteriorColor"
	FieldInteriorColor = "interiorColor"
	FieldBodyStyle     = "bodyStyle"
	FieldDrivetrain    = "drivetrain"
	FieldFuelType      = "fuelType"
)

// Fields lists every canonical field.
var Fields = []string{
	FieldVIN, FieldStockNumber, FieldYear, FieldMake, FieldModel, FieldTrim,
	FieldMileage, FieldPrice, FieldImages, FieldBaseComments, FieldVideoURL,
	FieldOptions, FieldEngine, FieldTransmission, FieldExteriorColor,
	FieldInteriorColor, FieldBodyStyle, FieldDrivetrain, FieldFuelType,
}

// Table maps each canonical field to its candidate header substrings in
// priority order.
type Table struct {
	Name   string              `yaml:"name" json:"name"`
	Fields map[string][]string `yaml:"fields" json:"fields"`
}

// DefaultTable returns the built-in header table.
func DefaultTable() Table {
	return Table{
		Name: "default",
		Fields: map[string][]string{
			FieldVIN:           {"vehicle vin", "vin"},
			FieldStockNumber:   {"stock number", "stock no", "stock #", "stock"},
			FieldYear:          {"model year", "vehicle year", "year"},
			FieldMake:          {"vehicle make", "make", "manufacturer"},
			FieldModel:         {"vehicle model", "model"},
			FieldTrim:          {"trim", "series"},
			FieldMileage:       {"odometer", "mileage", "miles"},
			FieldPrice:         {"retail", "price", "internet"},
			FieldImages:        {"image_url", "photo_url", "image", "photo", "picture"},
			FieldBaseComments:  {"comments", "description", "notes"},
			FieldVideoURL:      {"youtube_url", "video_url", "youtube", "video"},
			FieldOptions:       {"options", "features", "equipment"},
			FieldEngine:        {"engine"},
			FieldTransmission:  {"transmission", "trans"},
			FieldExteriorColor: {"exterior color", "ext color", "exterior"},
			FieldInteriorColor: {"interior color", "int color", "interior"},
			FieldBodyStyle:     {"body style", "body type", "body"},
			FieldDrivetrain:    {"drivetrain", "drive train", "drive type"},
			FieldFuelType:      {"fuel type", "fuel"},
		},
	}
}

// Candidates returns the candidates for field.
func (t Table) Candidates(field string) []string {
	return t.Fields[field]
}

// Clone returns a deep copy of the table.
func (t Table) Clone() Table {
	c := Table{Name: t.Name, Fields: make(map[string][]string, len(t.Fields))}
	for k, v := range t.Fields {
		c.Fields[k] = slices.Clone(v)
	}
	return c
}

// Override returns a copy of t where every field present in other replaces
// t's candidate list.
func (t Table) Override(other Table) Table {
	c := t.Clone()
	if other.Name != "" {
		c.Name = other.Name
	}
	for k, v := range other.Fields {
		c.Fields[k] = slices.Clone(v)
	}
	return c
}

// Validate rejects unknown canonical field names.
func (t Table) Validate() error {
	var unknown []string
	for field := range t.Fields {
		if !slices.Contains(Fields, field) {
			unknown = append(unknown, field)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return errors.NewValidationError("fields", unknown, "unknown canonical field")
	}
	return nil
}

// tableFile is the on-disk form of a header table.
type tableFile struct {
	Name string `yaml:"name"`
	// Extends names the table to overlay onto; "default" or empty means
	// the built-in table, "none" starts from scratch.
	Extends string              `yaml:"extends"`
	Fields  map[string][]string `yaml:"fields"`
}

// ParseTable decodes a YAML header table.
func ParseTable(data []byte) (Table, error) {
	var file tableFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Table{}, errors.WrapParse("yaml", "header table", err)
	}

	overlay := Table{Name: file.Name, Fields: file.Fields}
	if err := overlay.Validate(); err != nil {
		return Table{}, err
	}

	switch file.Extends {
	case "", "default":
		return DefaultTable().Override(overlay), nil
	case "none":
		return overlay.Override(Table{}), nil
	default:
		return Table{}, errors.NewValidationError("extends", file.Extends, "must be default or none")
	}
}

// LoadTable reads a YAML header table from path.
func LoadTable(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Table{}, errors.WrapIO("read", path, err)
	}
	t, err := ParseTable(data)
	if err != nil {
		return Table{}, err
	}
	if t.Name == "" || t.Name == "default" {
		t.Name = path
	}
	return t, nil
}
