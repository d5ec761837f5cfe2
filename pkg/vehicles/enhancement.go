package vehicles

import (
	"slices"
	"time"
)

// Enhancement holds supplemental per-identity data produced outside the
// ingestion path (AI copy, condition grades, manager overrides). It survives
// re-ingestion of the base feed.
type Enhancement struct {
	Identity     Identity  `json:"identity" yaml:"identity"`
	Description  string    `json:"description,omitempty" yaml:"description,omitempty"`
	Grade        *Grade    `json:"grade,omitempty" yaml:"grade,omitempty"`
	Blemishes    []string  `json:"blemishes,omitempty" yaml:"blemishes,omitempty"`
	ManagerNotes string    `json:"managerNotes,omitempty" yaml:"managerNotes,omitempty"`
	Overrides    Overrides `json:"overrides,omitempty" yaml:"overrides,omitempty"`
	UpdatedAt    time.Time `json:"updatedAt,omitempty" yaml:"updatedAt,omitempty"`
}

// Overrides are optional replacements for base fields. A nil pointer means
// the enhancement has no opinion. Overrides of protected fields are accepted
// here but never reach a merged view.
type Overrides struct {
	Mileage  *int      `json:"mileage,omitempty" yaml:"mileage,omitempty"`
	Images   *[]string `json:"images,omitempty" yaml:"images,omitempty"`
	VideoURL *string   `json:"videoUrl,omitempty" yaml:"videoUrl,omitempty"`
	Trim     *string   `json:"trim,omitempty" yaml:"trim,omitempty"`
	Options  *[]string `json:"options,omitempty" yaml:"options,omitempty"`

	Price        *float64 `json:"price,omitempty" yaml:"price,omitempty"`
	StockNumber  *string  `json:"stockNumber,omitempty" yaml:"stockNumber,omitempty"`
	Year         *int     `json:"year,omitempty" yaml:"year,omitempty"`
	Make         *string  `json:"make,omitempty" yaml:"make,omitempty"`
	Model        *string  `json:"model,omitempty" yaml:"model,omitempty"`
	VIN          *string  `json:"vin,omitempty" yaml:"vin,omitempty"`
	BaseComments *string  `json:"baseComments,omitempty" yaml:"baseComments,omitempty"`
}

// Grade is a structured condition grade.
type Grade struct {
	Overall    float64         `json:"overall" yaml:"overall"`
	Letter     string          `json:"letter" yaml:"letter"`
	Categories []GradeCategory `json:"categories,omitempty" yaml:"categories,omitempty"`
}

// GradeCategory is one line of a grade breakdown.
type GradeCategory struct {
	Name      string  `json:"name" yaml:"name"`
	Score     float64 `json:"score" yaml:"score"`
	Reasoning string  `json:"reasoning,omitempty" yaml:"reasoning,omitempty"`
}

// Clone returns a deep copy of the grade.
func (g *Grade) Clone() *Grade {
	if g == nil {
		return nil
	}
	c := *g
	c.Categories = slices.Clone(g.Categories)
	return &c
}

// Clone returns a deep copy of the enhancement.
func (e *Enhancement) Clone() *Enhancement {
	if e == nil {
		return nil
	}
	c := *e
	c.Grade = e.Grade.Clone()
	c.Blemishes = slices.Clone(e.Blemishes)
	c.Overrides = e.Overrides.clone()
	return &c
}

func (o Overrides) clone() Overrides {
	c := o
	c.Mileage = clonePtr(o.Mileage)
	c.VideoURL = clonePtr(o.VideoURL)
	c.Trim = clonePtr(o.Trim)
	c.Price = clonePtr(o.Price)
	c.StockNumber = clonePtr(o.StockNumber)
	c.Year = clonePtr(o.Year)
	c.Make = clonePtr(o.Make)
	c.Model = clonePtr(o.Model)
	c.VIN = clonePtr(o.VIN)
	c.BaseComments = clonePtr(o.BaseComments)
	if o.Images != nil {
		images := slices.Clone(*o.Images)
		c.Images = &images
	}
	if o.Options != nil {
		options := slices.Clone(*o.Options)
		c.Options = &options
	}
	return c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Ptr returns a pointer to v. Handy when building overrides.
func Ptr[T any](v T) *T {
	return &v
}
