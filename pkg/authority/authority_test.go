package authority

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTable(t *testing.T) {
	table := Default()

	for _, f := range ProtectedFields {
		assert.Equal(t, BaseAlways, table.Rule(f), f)
		assert.True(t, table.IsProtected(f), f)
	}

	for _, f := range []string{"mileage", "images", "videoUrl", "trim", "options", "description", "grade", "blemishes", "managerNotes"} {
		assert.Equal(t, EnhancementPreferred, table.Rule(f), f)
		assert.False(t, table.IsProtected(f), f)
	}

	assert.Equal(t,
		[]string{"baseComments", "identity", "make", "model", "price", "stockNumber", "vin", "year"},
		table.Protected())
}

func TestProtectedFieldSetIsFixed(t *testing.T) {
	assert.ElementsMatch(t,
		[]string{"price", "stockNumber", "year", "make", "vin", "model", "baseComments"},
		ProtectedFields)
}

func TestCustomTable(t *testing.T) {
	table := New(
		Field{Path: "grade*", Rule: BaseAlways, Priority: 10},
		Field{Path: "gradeLetter", Rule: EnhancementPreferred, Priority: 20},
		Field{Path: "video*", Rule: BaseAlways},
	)

	assert.Equal(t, BaseAlways, table.Rule("grade"))
	assert.Equal(t, EnhancementPreferred, table.Rule("gradeLetter"))
	assert.Equal(t, BaseAlways, table.Rule("videoUrl"))
	assert.Equal(t, EnhancementPreferred, table.Rule("price"))
	assert.Empty(t, table.Protected())
	assert.Len(t, filterByRule(table.fields, BaseAlways), 2)
}

func TestByFieldSpecificity(t *testing.T) {
	fields := []Field{
		{Path: "*", Rule: EnhancementPreferred},
		{Path: "price", Rule: BaseAlways},
	}
	f := ByField("price", fields)
	require.NotNil(t, f)
	assert.Equal(t, BaseAlways, f.Rule)

	f = ByField("mileage", fields)
	require.NotNil(t, f)
	assert.Equal(t, EnhancementPreferred, f.Rule)

	assert.Nil(t, ByField("price", nil))
}

func TestMatchesPattern(t *testing.T) {
	tests := []struct {
		path, pattern string
		want          bool
	}{
		{"price", "price", true},
		{"price", "pri*", true},
		{"videoUrl", "video?rl", true},
		{"videoUrl", "video?", false},
		{"year", "[xy]ear", true},
		{"make", "model", false},
		{"make", "[", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MatchesPattern(tt.path, tt.pattern), "%s ~ %s", tt.path, tt.pattern)
	}
}

func TestParseRule(t *testing.T) {
	r, err := ParseRule("base_always")
	require.NoError(t, err)
	assert.Equal(t, BaseAlways, r)

	r, err = ParseRule("enhancement")
	require.NoError(t, err)
	assert.Equal(t, EnhancementPreferred, r)

	_, err = ParseRule("both")
	assert.Error(t, err)
}
