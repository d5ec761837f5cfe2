package view

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matt653/high-life-auto-sub000/cmd/inventory/cmd/internal/cmdtest"
	"github.com/matt653/high-life-auto-sub000/pkg/errors"
	"github.com/matt653/high-life-auto-sub000/pkg/loader"
)

func TestViewTable(t *testing.T) {
	app, _ := cmdtest.NewApp(t, "table", cmdtest.Store())

	out, err := cmdtest.Run(t, NewCommand(app), "1G1JC12345", "--provenance")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "1G1JC12345: HAVE_ENHANCED"), out)
	for _, state := range []loader.State{loader.StateInit, loader.StateHaveBase, loader.StateHaveEnhanced} {
		assert.Contains(t, out, string(state))
	}
	assert.Contains(t, out, "One owner, garage kept.")
	assert.Contains(t, out, "enhancement")
}

func TestViewJSON(t *testing.T) {
	app, _ := cmdtest.NewApp(t, "json", cmdtest.Store())

	out, err := cmdtest.Run(t, NewCommand(app), "A1043")
	require.NoError(t, err)

	var res loader.Resolution
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, loader.StateSettled, res.State)
	assert.Contains(t, res.Transitions, loader.StateHaveBase)
	require.NotNil(t, res.View)
	assert.Equal(t, 4500.0, res.View.Price)
	assert.False(t, res.View.Enhanced)
}

func TestViewNotFound(t *testing.T) {
	app, _ := cmdtest.NewApp(t, "table", cmdtest.Store())

	_, err := cmdtest.Run(t, NewCommand(app), "NOPE000000")
	assert.True(t, errors.IsNotFound(err))
}

func TestViewWatch(t *testing.T) {
	app, _ := cmdtest.NewApp(t, "table", cmdtest.Store())

	out, err := cmdtest.Run(t, NewCommand(app), "1G1JC12345", "--watch")
	require.NoError(t, err)

	base := strings.Index(out, string(loader.StateHaveBase))
	enhanced := strings.Index(out, string(loader.StateHaveEnhanced))
	require.NotEqual(t, -1, base)
	require.NotEqual(t, -1, enhanced)
	assert.Less(t, base, enhanced)
	assert.Contains(t, out, "2012 Chevrolet Malibu")
}
