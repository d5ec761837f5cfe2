// Package ingest provides the ingest command.
package ingest

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	inventory "github.com/matt653/high-life-auto-sub000"
	"github.com/matt653/high-life-auto-sub000/cmd/application"
	"github.com/matt653/high-life-auto-sub000/internal/cmd/output"
	"github.com/matt653/high-life-auto-sub000/internal/cmd/table"
	"github.com/matt653/high-life-auto-sub000/pkg/constants"
	"github.com/matt653/high-life-auto-sub000/pkg/provenance"
)

// NewCommand creates the ingest command.
func NewCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Fetch every feed and rebuild the merged inventory",
		Long: `Ingest fetches every configured feed, resolves vehicle identities,
merges enhancement records and persists the resulting views to the
snapshot store.

If any feed fails the ingestion is aborted and nothing is persisted.`,
		Example: `  inventory ingest
  inventory ingest --changes
  inventory ingest --provenance
  inventory ingest -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var opts options
			opts.changes, _ = cmd.Flags().GetBool("changes")
			opts.provenance, _ = cmd.Flags().GetBool("provenance")
			opts.timeout, _ = cmd.Flags().GetDuration("timeout")
			return run(cmd.Context(), cmd.OutOrStdout(), app, opts)
		},
	}
	cmd.Flags().Bool("changes", false, "List added, updated and removed vehicles")
	cmd.Flags().Bool("provenance", false, "Show which fields each vehicle took from its enhancement")
	cmd.Flags().Duration("timeout", constants.UpdateContextTimeout, "Overall ingestion timeout")
	return cmd
}

type options struct {
	changes    bool
	provenance bool
	timeout    time.Duration
}

// structured is the json/yaml shape when --provenance is set.
type structured struct {
	*inventory.IngestResult `yaml:",inline"`
	Provenance              *provenance.Report `json:"provenance" yaml:"provenance"`
}

func run(ctx context.Context, w io.Writer, app application.Application, opts options) error {
	format, err := output.Resolve(app.OutputFormat())
	if err != nil {
		return err
	}
	client, err := app.Client()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	result, err := client.Ingest(ctx)
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}

	if !format.IsTable() {
		if opts.provenance {
			return output.Print(w, format, structured{IngestResult: result, Provenance: client.ProvenanceReport()}, nil)
		}
		return output.Print(w, format, result, nil)
	}

	fmt.Fprintln(w, result.Summary())
	if err := output.Print(w, format, result.Feeds, func(bool) table.Data { return feedsTable(result) }); err != nil {
		return err
	}
	if opts.changes && result.Changeset != nil && result.Changeset.HasChanges() {
		fmt.Fprintln(w)
		if err := output.Print(w, format, result.Changeset, func(bool) table.Data {
			return table.ChangesetToTableData(result.Changeset)
		}); err != nil {
			return err
		}
	}
	if opts.provenance {
		report := client.ProvenanceReport()
		fmt.Fprintf(w, "\nProvenance for %d enhanced vehicles\n", report.Enhanced())
		return output.Print(w, format, report, func(bool) table.Data { return provenanceTable(report) })
	}
	return nil
}

// provenanceTable lists enhanced vehicles only; every other vehicle is
// entirely feed-sourced.
func provenanceTable(report *provenance.Report) table.Data {
	data := table.Data{Headers: []string{"Identity", "From Enhancement", "Protected From Feed"}}
	for _, ir := range report.Identities {
		if len(ir.FromEnhanced) == 0 {
			continue
		}
		data.Rows = append(data.Rows, []string{
			ir.Identity,
			strings.Join(ir.FromEnhanced, ", "),
			strings.Join(ir.Protected, ", "),
		})
	}
	return data
}

func feedsTable(result *inventory.IngestResult) table.Data {
	data := table.Data{
		Headers:         []string{"Feed", "Mode", "Bytes", "Rows", "Malformed", "Records"},
		ColumnAlignment: []table.Align{table.AlignLeft, table.AlignLeft, table.AlignRight, table.AlignRight, table.AlignRight, table.AlignRight},
	}
	for _, f := range result.Feeds {
		data.Rows = append(data.Rows, []string{
			f.Name,
			string(f.Mode),
			strconv.Itoa(f.Bytes),
			strconv.Itoa(f.Rows),
			strconv.Itoa(f.Malformed),
			strconv.Itoa(f.Records),
		})
	}
	return data
}
