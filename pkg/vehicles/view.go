package vehicles

import (
	"slices"

	"github.com/matt653/high-life-auto-sub000/pkg/provenance"
)

// View is the consumer-facing record produced by merging a base vehicle with
// its enhancement. It is always derived and never a source of truth.
// Field json names match the precedence table keys.
type View struct {
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

	Description  string   `json:"description" yaml:"description"`
	Grade        *Grade   `json:"grade,omitempty" yaml:"grade,omitempty"`
	Blemishes    []string `json:"blemishes" yaml:"blemishes"`
	ManagerNotes string   `json:"managerNotes" yaml:"managerNotes"`

	Feed       string         `json:"feed,omitempty" yaml:"feed,omitempty"`
	Enhanced   bool           `json:"enhanced" yaml:"enhanced"`
	Provenance provenance.Map `json:"provenance,omitempty" yaml:"provenance,omitempty"`
}

// FromVehicle projects a base record into view shape with no enhancement data.
func FromVehicle(v Vehicle) View {
	return View{
		Identity:      v.Identity,
		StockNumber:   v.StockNumber,
		VIN:           v.VIN,
		Year:          v.Year,
		Make:          v.Make,
		Model:         v.Model,
		Trim:          v.Trim,
		Mileage:       v.Mileage,
		Price:         v.Price,
		Images:        slices.Clone(v.Images),
		BaseComments:  v.BaseComments,
		VideoURL:      v.VideoURL,
		Options:       slices.Clone(v.Options),
		Engine:        v.Engine,
		Transmission:  v.Transmission,
		ExteriorColor: v.ExteriorColor,
		InteriorColor: v.InteriorColor,
		BodyStyle:     v.BodyStyle,
		Drivetrain:    v.Drivetrain,
		FuelType:      v.FuelType,
		Feed:          v.Feed,
	}
}

// Stable reports whether the view's identity can be linked to enhancements.
func (v View) Stable() bool {
	return v.Identity.Stable()
}

// Title returns "Year Make Model Trim" with empty parts omitted.
func (v View) Title() string {
	return Vehicle{Year: v.Year, Make: v.Make, Model: v.Model, Trim: v.Trim}.Title()
}

// PrimaryImage returns the first image URL or "".
func (v View) PrimaryImage() string {
	if len(v.Images) == 0 {
		return ""
	}
	return v.Images[0]
}

// Clone returns a deep copy of the view.
func (v View) Clone() View {
	v.Images = slices.Clone(v.Images)
	v.Options = slices.Clone(v.Options)
	v.Blemishes = slices.Clone(v.Blemishes)
	v.Grade = v.Grade.Clone()
	v.Provenance = v.Provenance.Clone()
	return v
}
