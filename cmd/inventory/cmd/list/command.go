// Package list provides the list command.
package list

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/matt653/high-life-auto-sub000/cmd/application"
	"github.com/matt653/high-life-auto-sub000/internal/cmd/output"
	"github.com/matt653/high-life-auto-sub000/internal/cmd/table"
	"github.com/matt653/high-life-auto-sub000/internal/server/filter"
	"github.com/matt653/high-life-auto-sub000/pkg/constants"
)

// flagParams maps command flags onto the query parameters understood by
// the vehicle filter, so the CLI and the HTTP API filter identically.
var flagParams = map[string]string{
	"make":        "make",
	"model":       "model",
	"body-style":  "body_style",
	"search":      "q",
	"min-year":    "min_year",
	"max-year":    "max_year",
	"min-price":   "min_price",
	"max-price":   "max_price",
	"max-mileage": "max_mileage",
	"enhanced":    "enhanced",
	"has-images":  "has_images",
	"stable":      "stable",
	"sort":        "sort",
	"order":       "order",
	"limit":       "limit",
	"offset":      "offset",
}

// NewCommand creates the list command.
func NewCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Ingest the feeds and list merged vehicles",
		Example: `  inventory list
  inventory list --make Honda --max-price 12000 --sort price
  inventory list --enhanced=false -o wide
  inventory list -s "one owner" -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := filter.Parse(queryFromFlags(cmd.Flags()))
			if err != nil {
				return err
			}
			return run(cmd.Context(), cmd.OutOrStdout(), app, f)
		},
	}

	flags := cmd.Flags()
	flags.String("make", "", "Filter by make (case-insensitive)")
	flags.String("model", "", "Filter by model (case-insensitive)")
	flags.String("body-style", "", "Filter by body style")
	flags.StringP("search", "s", "", "Search title, stock number, VIN, trim, color and description")
	flags.Int("min-year", 0, "Minimum model year")
	flags.Int("max-year", 0, "Maximum model year")
	flags.Float64("min-price", 0, "Minimum price")
	flags.Float64("max-price", 0, "Maximum price")
	flags.Int("max-mileage", 0, "Maximum mileage")
	flags.Bool("enhanced", false, "Only vehicles with (or, =false, without) an enhancement")
	flags.Bool("has-images", false, "Only vehicles with (or, =false, without) images")
	flags.Bool("stable", false, "Hide vehicles with synthetic identities")
	flags.String("sort", "", "Sort by year, price, mileage, make or stock")
	flags.String("order", "asc", "Sort order: asc or desc")
	flags.Int("limit", filter.DefaultLimit, "Maximum vehicles to show")
	flags.Int("offset", 0, "Vehicles to skip")

	return cmd
}

// queryFromFlags copies the flags the user set into query values.
func queryFromFlags(flags *pflag.FlagSet) url.Values {
	q := url.Values{}
	flags.Visit(func(f *pflag.Flag) {
		if param, ok := flagParams[f.Name]; ok {
			q.Set(param, f.Value.String())
		}
	})
	return q
}

func run(ctx context.Context, w io.Writer, app application.Application, f filter.VehicleFilter) error {
	format, err := output.Resolve(app.OutputFormat())
	if err != nil {
		return err
	}
	client, err := app.Client()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, constants.UpdateContextTimeout)
	defer cancel()
	if _, err := client.Ingest(ctx); err != nil {
		return fmt.Errorf("ingest: %w", err)
	}

	matched := f.Apply(client.Vehicles())
	page := f.Page(matched)

	if err := output.Print(w, format, page, func(wide bool) table.Data {
		return table.ViewsToTableData(page, wide)
	}); err != nil {
		return err
	}
	if format.IsTable() && len(page) < len(matched) {
		fmt.Fprintf(w, "\nShowing %d of %d vehicles (use --limit and --offset to page)\n", len(page), len(matched))
	}
	return nil
}
