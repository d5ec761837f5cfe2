package snapshot

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matt653/high-life-auto-sub000/pkg/errors"
	"github.com/matt653/high-life-auto-sub000/pkg/provenance"
	"github.com/matt653/high-life-auto-sub000/pkg/vehicles"
)

func sampleView(key string, price float64) vehicles.View {
	return vehicles.View{
		Identity:    vehicles.ParseIdentity(key),
		VIN:         key,
		Year:        2014,
		Make:        "Chevrolet",
		Model:       "Malibu",
		Price:       price,
		Images:      []string{"https://img.example/1.jpg"},
		Description: "One owner.",
		Grade:       &vehicles.Grade{Overall: 8.5, Letter: "B+"},
		Enhanced:    true,
		Provenance: provenance.Map{
			"price":       {Source: provenance.SourceBase, Reason: "protected"},
			"description": {Source: provenance.SourceEnhancement},
		},
	}
}

func stores(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()

	sq, err := OpenSQLite(filepath.Join(dir, "db", "snapshots.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sq.Close() })

	y, err := OpenYAML(filepath.Join(dir, "yaml"))
	require.NoError(t, err)

	return map[string]Store{DriverSQLite: sq, DriverYAML: y}
}

func TestStores(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			got, err := store.Load(ctx, "1G1JC12345")
			require.NoError(t, err)
			assert.Nil(t, got, "missing snapshot is nil, nil")

			want := sampleView("1G1JC12345", 5900)
			require.NoError(t, store.Save(ctx, want))

			got, err = store.Load(ctx, "1G1JC12345")
			require.NoError(t, err)
			require.NotNil(t, got)
			if diff := cmp.Diff(want, *got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}

			// overwrite
			require.NoError(t, store.Save(ctx, sampleView("1G1JC12345", 5500)))
			got, err = store.Load(ctx, "1G1JC12345")
			require.NoError(t, err)
			assert.Equal(t, 5500.0, got.Price)

			err = store.Save(ctx, vehicles.View{})
			assert.True(t, errors.IsValidationError(err))
		})
	}
}

func TestStoresSaveAll(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			views := []vehicles.View{
				sampleView("1G1JC12345", 5900),
				sampleView("2HGFA16500", 7250),
				{Identity: vehicles.StockIdentity("A/100"), Make: "Ford", Model: "Focus"},
			}
			require.NoError(t, store.SaveAll(ctx, views))

			for _, v := range views {
				got, err := store.Load(ctx, v.Identity.Key)
				require.NoError(t, err)
				require.NotNil(t, got, v.Identity.Key)
				assert.Equal(t, v.Model, got.Model)
			}
		})
	}
}

func TestSQLiteSaveAllIsAtomic(t *testing.T) {
	ctx := context.Background()
	store, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	defer store.Close()

	err = store.SaveAll(ctx, []vehicles.View{sampleView("1G1JC12345", 5900), {}})
	require.Error(t, err)

	n, err := store.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "a failed batch must not leave partial rows")

	require.NoError(t, store.Save(ctx, sampleView("1G1JC12345", 5900)))
	require.NoError(t, store.Delete(ctx, "1G1JC12345"))
	got, err := store.Load(ctx, "1G1JC12345")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestYAMLIdentities(t *testing.T) {
	ctx := context.Background()
	store, err := OpenYAML(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.SaveAll(ctx, []vehicles.View{
		{Identity: vehicles.StockIdentity("A/100")},
		{Identity: vehicles.VINIdentity("1G1JC12345")},
	}))

	ids, err := store.Identities()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"A/100", "1G1JC12345"}, ids)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	s, err := Open("none", "")
	require.NoError(t, err)
	assert.Nil(t, s)

	s, err = Open("yaml", filepath.Join(dir, "y"))
	require.NoError(t, err)
	assert.IsType(t, &YAML{}, s)

	s, err = Open("sqlite", filepath.Join(dir, "s.db"))
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, s)
	require.NoError(t, s.Close())

	_, err = Open("bolt", dir)
	var cfgErr *errors.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}
