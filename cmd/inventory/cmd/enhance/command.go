// Package enhance provides commands for reading and writing enhancement
// records.
package enhance

import (
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/matt653/high-life-auto-sub000/cmd/application"
	"github.com/matt653/high-life-auto-sub000/internal/cmd/output"
	"github.com/matt653/high-life-auto-sub000/internal/cmd/table"
	"github.com/matt653/high-life-auto-sub000/pkg/constants"
	"github.com/matt653/high-life-auto-sub000/pkg/errors"
	"github.com/matt653/high-life-auto-sub000/pkg/vehicles"
)

// NewCommand creates the enhance command and its subcommands.
func NewCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "enhance",
		Aliases: []string{"enhancement"},
		Short:   "Manage enhancement records",
		Long: `Enhancement records add descriptions, grades, blemishes and manager
notes to a vehicle, and may override non-protected fields such as mileage,
images or trim. Records are keyed by VIN or stock number; vehicles with a
synthetic identity cannot be enhanced.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newGetCommand(app), newPutCommand(app), newOrphansCommand(app))
	return cmd
}

func newGetCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show the enhancement stored for a vehicle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := output.Resolve(app.OutputFormat())
			if err != nil {
				return err
			}
			client, err := app.Client()
			if err != nil {
				return err
			}
			e, err := client.Enhancement(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if e == nil {
				return errors.NewNotFoundError("enhancement", args[0])
			}
			return output.Print(cmd.OutOrStdout(), format, e, func(bool) table.Data {
				return table.EnhancementToTableData(e)
			})
		},
	}
}

func newPutCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "put <id>",
		Short: "Store an enhancement record from a JSON or YAML document",
		Example: `  inventory enhance put 1G1JC12345 -f malibu.yaml
  echo '{"description":"One owner."}' | inventory enhance put A1043`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")

			in := cmd.InOrStdin()
			name := "stdin"
			if file != "" && file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return errors.WrapIO("open", file, err)
				}
				defer f.Close()
				in, name = f, file
			}

			e, err := Decode(in, name, args[0])
			if err != nil {
				return err
			}

			client, err := app.Client()
			if err != nil {
				return err
			}
			if err := client.PutEnhancement(cmd.Context(), e); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored enhancement for %s\n", e.Identity.Key)
			return nil
		},
	}
	cmd.Flags().StringP("file", "f", "", "Read the record from a file instead of stdin")
	return cmd
}

// Decode reads one enhancement record for id. JSON is accepted as a YAML
// subset; unknown fields are rejected. A record naming a different
// identity is an error.
func Decode(r io.Reader, name, id string) (*vehicles.Enhancement, error) {
	data, err := io.ReadAll(io.LimitReader(r, constants.MaxEnhancementBytes+1))
	if err != nil {
		return nil, errors.WrapIO("read", name, err)
	}
	if len(data) > constants.MaxEnhancementBytes {
		return nil, errors.NewValidationError("body", name, "enhancement record is too large")
	}

	var e vehicles.Enhancement
	if err := yaml.UnmarshalWithOptions(data, &e, yaml.DisallowUnknownField()); err != nil {
		return nil, errors.WrapParse("yaml", name, err)
	}

	want := vehicles.ParseIdentity(id)
	switch {
	case e.Identity.IsZero():
		e.Identity = want
	case e.Identity.Key != want.Key:
		return nil, errors.NewValidationError("identity", e.Identity.Key, "does not match "+want.Key)
	}
	return &e, nil
}

func newOrphansCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:   "orphans",
		Short: "Ingest the feeds and list enhancements with no matching vehicle",
		Long: `Orphans are enhancement records whose vehicle is not in any feed, for
example because it was sold. They are kept so the record applies again if
the vehicle returns.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := output.Resolve(app.OutputFormat())
			if err != nil {
				return err
			}
			client, err := app.Client()
			if err != nil {
				return err
			}
			if _, err := client.Ingest(cmd.Context()); err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			orphans, err := client.Orphans(cmd.Context())
			if err != nil {
				return err
			}
			return output.Print(cmd.OutOrStdout(), format, orphans, func(bool) table.Data {
				data := table.Data{Headers: []string{"Identity"}}
				for _, id := range orphans {
					data.Rows = append(data.Rows, []string{id})
				}
				return data
			})
		},
	}
}
