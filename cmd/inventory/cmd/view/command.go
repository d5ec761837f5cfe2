// Package view provides the view command, which resolves one vehicle
// through the load-order controller and prints every state it passed.
package view

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/matt653/high-life-auto-sub000/cmd/application"
	"github.com/matt653/high-life-auto-sub000/internal/cmd/output"
	"github.com/matt653/high-life-auto-sub000/internal/cmd/table"
	"github.com/matt653/high-life-auto-sub000/pkg/errors"
	"github.com/matt653/high-life-auto-sub000/pkg/loader"
)

// NewCommand creates the view command.
func NewCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view <id>",
		Short: "Resolve one vehicle and show its load states",
		Long: `View resolves a vehicle by VIN or stock number. The cached snapshot is
shown first when one exists, then the live feed record, then the record
merged with its enhancement.

The transitions table lists each state the resolution passed through.`,
		Example: `  inventory view 1G1JC12345
  inventory view A1043 --provenance
  inventory view 1G1JC12345 --watch`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			watch, _ := cmd.Flags().GetBool("watch")
			prov, _ := cmd.Flags().GetBool("provenance")
			if watch {
				return runWatch(cmd.Context(), cmd.OutOrStdout(), app, args[0])
			}
			return run(cmd.Context(), cmd.OutOrStdout(), app, args[0], prov)
		},
	}
	cmd.Flags().Bool("watch", false, "Print each state as it is reached")
	cmd.Flags().Bool("provenance", false, "Show which record supplied each field")
	return cmd
}

func run(ctx context.Context, w io.Writer, app application.Application, id string, showProvenance bool) error {
	format, err := output.Resolve(app.OutputFormat())
	if err != nil {
		return err
	}
	client, err := app.Client()
	if err != nil {
		return err
	}

	res, err := client.Vehicle(ctx, id)
	if err != nil && !(errors.IsSuperseded(err) && res != nil) {
		return err
	}
	if res.NotFound {
		return errors.NewNotFoundError("vehicle", id)
	}

	if !format.IsTable() {
		return output.Print(w, format, res, nil)
	}

	fmt.Fprintln(w, headline(res))
	fmt.Fprintln(w)
	if err := output.Print(w, format, nil, func(bool) table.Data { return table.TransitionsToTableData(res) }); err != nil {
		return err
	}
	if res.View == nil {
		return nil
	}

	fmt.Fprintln(w)
	if err := output.Print(w, format, nil, func(bool) table.Data { return table.ViewToTableData(*res.View) }); err != nil {
		return err
	}
	if showProvenance && len(res.View.Provenance) > 0 {
		fmt.Fprintln(w)
		return output.Print(w, format, nil, func(bool) table.Data {
			return table.ProvenanceToTableData(res.View.Provenance)
		})
	}
	return nil
}

func headline(res *loader.Resolution) string {
	s := fmt.Sprintf("%s: %s", res.Identity, res.State)
	if res.Source != "" {
		s += " from " + res.Source
	}
	if res.Stale {
		s += " (stale)"
	}
	return s + fmt.Sprintf(" in %v", res.Elapsed.Round(time.Millisecond))
}

func runWatch(ctx context.Context, w io.Writer, app application.Application, id string) error {
	format, err := output.Resolve(app.OutputFormat())
	if err != nil {
		return err
	}
	client, err := app.Client()
	if err != nil {
		return err
	}

	updates, err := client.Watch(ctx, id)
	if err != nil {
		return err
	}

	var last loader.Update
	for u := range updates {
		last = u
		if !format.IsTable() {
			if err := output.Print(w, format, u, nil); err != nil {
				return err
			}
			continue
		}
		title := "-"
		if u.View != nil {
			title = u.View.Title()
		}
		fmt.Fprintf(w, "%s  %-13s %s\n", u.At.Local().Format("15:04:05.000"), u.State, title)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if last.NotFound {
		return errors.NewNotFoundError("vehicle", id)
	}
	return nil
}
