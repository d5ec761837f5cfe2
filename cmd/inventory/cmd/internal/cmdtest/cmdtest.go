// Package cmdtest builds applications backed by an in-memory inventory for
// command tests.
package cmdtest

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	inventory "github.com/matt653/high-life-auto-sub000"
	"github.com/matt653/high-life-auto-sub000/cmd/application"
	"github.com/matt653/high-life-auto-sub000/internal/cache"
	"github.com/matt653/high-life-auto-sub000/pkg/enhancer"
	"github.com/matt653/high-life-auto-sub000/pkg/feed"
	"github.com/matt653/high-life-auto-sub000/pkg/logging"
	"github.com/matt653/high-life-auto-sub000/pkg/vehicles"
)

// Lot is a small feed: two VIN-keyed vehicles and one keyed by stock number.
const Lot = "Vehicle Vin,Vehicle Stock #,Vehicle Year,Vehicle Make,Vehicle Model,Retail,Mileage\n" +
	"1G1JC12345,A1001,2012,Chevrolet,Malibu,\"5,900\",\"88,000\"\n" +
	"2HGFA16500,A1002,2016,Honda,Civic,\"7,250\",\"61,000\"\n" +
	",A1043,2009,Ford,Ranger,\"4,500\",\"140,000\"\n"

// Store returns the enhancement store used by NewApp: one record for the
// Malibu and one for a vehicle that is not in Lot.
func Store() *enhancer.Memory {
	return enhancer.NewMemory(
		&vehicles.Enhancement{
			Identity:    vehicles.VINIdentity("1G1JC12345"),
			Description: "One owner, garage kept.",
			Grade:       &vehicles.Grade{Overall: 8.5, Letter: "B+"},
			Overrides:   vehicles.Overrides{Mileage: vehicles.Ptr(87500), Price: vehicles.Ptr(1.0)},
		},
		&vehicles.Enhancement{
			Identity:    vehicles.VINIdentity("ZZZ9999999"),
			Description: "Sold last month.",
		},
	)
}

// NewApp returns a Mock whose client reads Lot and the given adapter.
func NewApp(t *testing.T, format string, adapter enhancer.Adapter) (*application.Mock, inventory.Client) {
	t.Helper()

	c, err := inventory.New(
		inventory.WithFeeds(inventory.Feed{Name: "main", Fetcher: feed.StaticFetcher(Lot)}),
		inventory.WithEnhancements(adapter),
		inventory.WithNavState(cache.NewNav(0)),
		inventory.WithLogger(logging.NewNopLogger()),
	)
	require.NoError(t, err)

	return &application.Mock{
		Format:     format,
		ClientFunc: func() (inventory.Client, error) { return c, nil },
	}, c
}

// Run executes cmd with args and returns what it wrote to stdout.
func Run(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}
