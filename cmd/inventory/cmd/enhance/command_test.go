package enhance

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matt653/high-life-auto-sub000/cmd/inventory/cmd/internal/cmdtest"
	"github.com/matt653/high-life-auto-sub000/pkg/enhancer"
	"github.com/matt653/high-life-auto-sub000/pkg/errors"
	"github.com/matt653/high-life-auto-sub000/pkg/vehicles"
)

func TestGet(t *testing.T) {
	app, _ := cmdtest.NewApp(t, "json", cmdtest.Store())

	out, err := cmdtest.Run(t, NewCommand(app), "get", "1G1JC12345")
	require.NoError(t, err)

	var e vehicles.Enhancement
	require.NoError(t, json.Unmarshal([]byte(out), &e))
	assert.Equal(t, "One owner, garage kept.", e.Description)
	assert.Equal(t, "B+", e.Grade.Letter)

	_, err = cmdtest.Run(t, NewCommand(app), "get", "2HGFA16500")
	assert.True(t, errors.IsNotFound(err))

	_, err = cmdtest.Run(t, NewCommand(app), "get", "1700000000-3")
	assert.True(t, errors.IsUnstableIdentity(err))
}

func TestPutFromStdin(t *testing.T) {
	store := cmdtest.Store()
	app, client := cmdtest.NewApp(t, "table", store)
	_, err := client.Ingest(context.Background())
	require.NoError(t, err)

	cmd := NewCommand(app)
	cmd.SetIn(strings.NewReader(`{"description":"Clean title.","overrides":{"trim":"EX","price":1}}`))
	out, err := cmdtest.Run(t, cmd, "put", "2HGFA16500")
	require.NoError(t, err)
	assert.Contains(t, out, "Stored enhancement for 2HGFA16500")

	stored, err := store.FetchOne(context.Background(), vehicles.VINIdentity("2HGFA16500"))
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "Clean title.", stored.Description)

	v, ok := client.Lookup("2HGFA16500")
	require.True(t, ok)
	assert.Equal(t, "EX", v.Trim)
	assert.Equal(t, 7250.0, v.Price, "price override never reaches the view")
	assert.True(t, v.Enhanced)
}

func TestPutFromYAMLFile(t *testing.T) {
	store := cmdtest.Store()
	app, _ := cmdtest.NewApp(t, "table", store)

	path := filepath.Join(t.TempDir(), "ranger.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
description: Work truck, new tires.
grade:
  overall: 6.5
  letter: C+
blemishes:
  - bed liner scratches
`), 0o600))

	_, err := cmdtest.Run(t, NewCommand(app), "put", "A1043", "-f", path)
	require.NoError(t, err)

	stored, err := store.FetchOne(context.Background(), vehicles.StockIdentity("A1043"))
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, []string{"bed liner scratches"}, stored.Blemishes)
	assert.Equal(t, 6.5, stored.Grade.Overall)
}

func TestPutReadOnly(t *testing.T) {
	app, _ := cmdtest.NewApp(t, "table", enhancer.Nop())

	cmd := NewCommand(app)
	cmd.SetIn(strings.NewReader(`description: x`))
	_, err := cmdtest.Run(t, cmd, "put", "A1043")
	assert.True(t, errors.IsReadOnly(err))
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		id      string
		wantKey string
		wantErr bool
	}{
		{name: "identity from argument", body: `{"description":"x"}`, id: "A1043", wantKey: "A1043"},
		{name: "matching identity", body: "identity:\n  key: A1043\n  kind: stock\n", id: "A1043", wantKey: "A1043"},
		{name: "mismatched identity", body: "identity:\n  key: A9999\n", id: "A1043", wantErr: true},
		{name: "unknown field", body: `{"descripton":"typo"}`, id: "A1043", wantErr: true},
		{name: "malformed", body: `{"description":`, id: "A1043", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := Decode(strings.NewReader(tt.body), "test", tt.id)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKey, e.Identity.Key)
		})
	}
}

func TestDecodeTooLarge(t *testing.T) {
	body := `{"description":"` + strings.Repeat("a", 1<<20) + `"}`
	_, err := Decode(strings.NewReader(body), "test", "A1043")
	assert.True(t, errors.IsValidationError(err))
}

func TestOrphans(t *testing.T) {
	app, _ := cmdtest.NewApp(t, "json", cmdtest.Store())

	out, err := cmdtest.Run(t, NewCommand(app), "orphans")
	require.NoError(t, err)

	var orphans []string
	require.NoError(t, json.Unmarshal([]byte(out), &orphans))
	assert.Equal(t, []string{"ZZZ9999999"}, orphans)
}
