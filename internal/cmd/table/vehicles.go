package table

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/matt653/high-life-auto-sub000/pkg/differ"
	"github.com/matt653/high-life-auto-sub000/pkg/loader"
	"github.com/matt653/high-life-auto-sub000/pkg/provenance"
	"github.com/matt653/high-life-auto-sub000/pkg/vehicles"
)

// ViewsToTableData converts merged views to table format. Wide adds the
// descriptive columns.
func ViewsToTableData(views []vehicles.View, wide bool) Data {
	headers := []string{"Identity", "Stock", "Year", "Make", "Model", "Price", "Mileage", "Enhanced"}
	align := []Align{AlignLeft, AlignLeft, AlignRight, AlignLeft, AlignLeft, AlignRight, AlignRight, AlignCenter}
	if wide {
		headers = append(headers, "Trim", "Feed", "Images", "Description")
		align = append(align, AlignLeft, AlignLeft, AlignRight, AlignLeft)
	}

	rows := make([][]string, 0, len(views))
	for _, v := range views {
		enhanced := ""
		if v.Enhanced {
			enhanced = "✓"
		}
		row := []string{
			identityLabel(v.Identity),
			orDash(v.StockNumber),
			FormatYear(v.Year),
			orDash(v.Make),
			orDash(v.Model),
			FormatPrice(v.Price),
			FormatMileage(v.Mileage),
			enhanced,
		}
		if wide {
			row = append(row,
				orDash(v.Trim),
				orDash(v.Feed),
				strconv.Itoa(len(v.Images)),
				orDash(Truncate(v.Description, 48)),
			)
		}
		rows = append(rows, row)
	}

	return Data{Headers: headers, Rows: rows, ColumnAlignment: align}
}

// ViewToTableData renders one view as a property/value table, with the
// source of every field that an enhancement supplied.
func ViewToTableData(v vehicles.View) Data {
	rows := [][]string{
		{"Identity", identityLabel(v.Identity), ""},
		{"Title", orDash(v.Title()), ""},
		{"Stock", orDash(v.StockNumber), source(v.Provenance, "stockNumber")},
		{"VIN", orDash(v.VIN), source(v.Provenance, "vin")},
		{"Price", FormatPrice(v.Price), source(v.Provenance, "price")},
		{"Mileage", FormatMileage(v.Mileage), source(v.Provenance, "mileage")},
		{"Trim", orDash(v.Trim), source(v.Provenance, "trim")},
		{"Exterior", orDash(v.ExteriorColor), ""},
		{"Interior", orDash(v.InteriorColor), ""},
		{"Engine", orDash(v.Engine), ""},
		{"Transmission", orDash(v.Transmission), ""},
		{"Drivetrain", orDash(v.Drivetrain), ""},
		{"Images", strconv.Itoa(len(v.Images)), source(v.Provenance, "images")},
		{"Video", orDash(v.VideoURL), source(v.Provenance, "videoUrl")},
		{"Options", orDash(strings.Join(v.Options, ", ")), source(v.Provenance, "options")},
		{"Comments", orDash(Truncate(v.BaseComments, 64)), ""},
		{"Description", orDash(Truncate(v.Description, 64)), source(v.Provenance, "description")},
		{"Grade", gradeLabel(v.Grade), source(v.Provenance, "grade")},
		{"Blemishes", orDash(strings.Join(v.Blemishes, "; ")), source(v.Provenance, "blemishes")},
		{"Manager Notes", orDash(Truncate(v.ManagerNotes, 64)), source(v.Provenance, "managerNotes")},
		{"Feed", orDash(v.Feed), ""},
	}
	return Data{
		Headers:         []string{"Property", "Value", "Source"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignLeft, AlignLeft},
	}
}

// ProvenanceToTableData lists every field with a recorded source, sorted by
// field name.
func ProvenanceToTableData(m provenance.Map) Data {
	fields := make([]string, 0, len(m))
	for field := range m {
		fields = append(fields, field)
	}
	slices.Sort(fields)

	rows := make([][]string, 0, len(fields))
	for _, field := range fields {
		p := m[field]
		rows = append(rows, []string{field, p.Source.String(), orDash(p.Reason)})
	}
	return Data{Headers: []string{"Field", "Source", "Reason"}, Rows: rows}
}

// TransitionsToTableData renders the states a resolution passed through.
func TransitionsToTableData(res *loader.Resolution) Data {
	rows := make([][]string, 0, len(res.Transitions))
	for i, s := range res.Transitions {
		marker := ""
		if i == len(res.Transitions)-1 {
			marker = "→"
		}
		rows = append(rows, []string{strconv.Itoa(i), string(s), marker})
	}
	return Data{Headers: []string{"#", "State", ""}, Rows: rows}
}

// ChangesetToTableData lists every added, updated and removed vehicle.
func ChangesetToTableData(cs *differ.Changeset) Data {
	var rows [][]string
	for _, v := range cs.Added {
		rows = append(rows, []string{"+", v.Identity.Key, v.Title(), ""})
	}
	for _, u := range cs.Updated {
		paths := make([]string, len(u.Changes))
		for i, c := range u.Changes {
			paths[i] = c.Path
		}
		rows = append(rows, []string{"~", u.ID, u.New.Title(), strings.Join(paths, ", ")})
	}
	for _, v := range cs.Removed {
		rows = append(rows, []string{"-", v.Identity.Key, v.Title(), ""})
	}
	return Data{Headers: []string{"", "Identity", "Vehicle", "Changed"}, Rows: rows}
}

// EnhancementToTableData renders a stored enhancement record.
func EnhancementToTableData(e *vehicles.Enhancement) Data {
	rows := [][]string{
		{"Identity", identityLabel(e.Identity)},
		{"Description", orDash(Truncate(e.Description, 80))},
		{"Grade", gradeLabel(e.Grade)},
		{"Blemishes", orDash(strings.Join(e.Blemishes, "; "))},
		{"Manager Notes", orDash(Truncate(e.ManagerNotes, 80))},
		{"Overrides", orDash(overridesLabel(e.Overrides))},
		{"Updated", FormatTimestamp(e.UpdatedAt)},
	}
	return Data{Headers: []string{"Property", "Value"}, Rows: rows}
}

func identityLabel(id vehicles.Identity) string {
	if id.IsZero() {
		return "-"
	}
	return fmt.Sprintf("%s (%s)", id.Key, id.Kind)
}

func source(m provenance.Map, field string) string {
	if p, ok := m[field]; ok && p.Source == provenance.SourceEnhancement {
		return p.Source.String()
	}
	return ""
}

func gradeLabel(g *vehicles.Grade) string {
	if g == nil {
		return "-"
	}
	if g.Letter == "" {
		return strconv.FormatFloat(g.Overall, 'f', -1, 64)
	}
	return fmt.Sprintf("%s (%s)", g.Letter, strconv.FormatFloat(g.Overall, 'f', -1, 64))
}

// overridesLabel names the override fields that are set.
func overridesLabel(o vehicles.Overrides) string {
	var set []string
	add := func(name string, ok bool) {
		if ok {
			set = append(set, name)
		}
	}
	add("mileage", o.Mileage != nil)
	add("images", o.Images != nil)
	add("videoUrl", o.VideoURL != nil)
	add("trim", o.Trim != nil)
	add("options", o.Options != nil)
	add("price", o.Price != nil)
	add("stockNumber", o.StockNumber != nil)
	add("year", o.Year != nil)
	add("make", o.Make != nil)
	add("model", o.Model != nil)
	add("vin", o.VIN != nil)
	add("baseComments", o.BaseComments != nil)
	return strings.Join(set, ", ")
}
