// Package vehicles defines the canonical inventory records shared by every
// stage of the reconciliation pipeline: the base vehicle parsed from a feed,
// the enhancement record produced out of band, and the merged view handed
// to consumers.
package vehicles

import (
	"slices"
	"strconv"
	"strings"
)

// Sentinel values assigned by the normalizer when a field could not be found.
const (
	// UnknownValue is the default for make and model.
	UnknownValue = "Unknown"
)

// Vehicle is the canonical base record derived purely from the latest
// ingested feed. It is replaced wholesale on each ingestion.
type Vehicle struct {
	Identity      Identity `json:"identity" yaml:"identity"`
	StockNumber   string   `json:"stockNumber" yaml:"stockNumber"`
	VIN           string   `json:"vin" yaml:"vin"`
	Year          int      `json:"year" yaml:"year"`
	Make          string   `json:"make" yaml:"make"`
	Model         string   `json:"model" yaml:"model"`
	Trim          string   `json:"trim" yaml:"trim"`
	Mileage       int      `json:"mileage" yaml:"mileage"`
	Price         float64  `json:"price" yaml:"price"`
	Images        []string `json:"images" yaml:"images"`
	BaseComments  string   `json:"baseComments" yaml:"baseComments"`
	VideoURL      string   `json:"videoUrl" yaml:"videoUrl"`
	Options       []string `json:"options" yaml:"options"`
	Engine        string   `json:"engine" yaml:"engine"`
	Transmission  string   `json:"transmission" yaml:"transmission"`
	ExteriorColor string   `json:"exteriorColor" yaml:"exteriorColor"`
	InteriorColor string   `json:"interiorColor" yaml:"interiorColor"`
	BodyStyle     string   `json:"bodyStyle" yaml:"bodyStyle"`
	Drivetrain    string   `json:"drivetrain" yaml:"drivetrain"`
	FuelType      string   `json:"fuelType" yaml:"fuelType"`

	// Feed names the configured source the record came from.
	Feed string `json:"feed,omitempty" yaml:"feed,omitempty"`
	// Row is the 0-based data row index within the feed.
	Row int `json:"row" yaml:"row"`
}

// PrimaryImage returns the first image URL or "".
func (v Vehicle) PrimaryImage() string {
	if len(v.Images) == 0 {
		return ""
	}
	return v.Images[0]
}

// IsUnknown reports whether make or model still carries the normalizer sentinel.
func (v Vehicle) IsUnknown() bool {
	return isUnknown(v.Make) || isUnknown(v.Model)
}

// Clone returns a deep copy of the vehicle.
func (v Vehicle) Clone() Vehicle {
	v.Images = slices.Clone(v.Images)
	v.Options = slices.Clone(v.Options)
	return v
}

// Title returns "year make model trim" for display.
func (v Vehicle) Title() string {
	title := ""
	if v.Year > 0 {
		title = strconv.Itoa(v.Year)
	}
	for _, part := range []string{v.Make, v.Model, v.Trim} {
		if part == "" {
			continue
		}
		if title != "" {
			title += " "
		}
		title += part
	}
	return title
}

func isUnknown(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), UnknownValue)
}
