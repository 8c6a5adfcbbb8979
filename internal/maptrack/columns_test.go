package maptrack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeColumnName(t *testing.T) {
	assert.Equal(t, "age", NormalizeColumnName("  Age "))
	assert.Equal(t, "vek", NormalizeColumnName("Věk"))
	assert.Equal(t, "pohlavi", NormalizeColumnName("pohlaví"))
	assert.Equal(t, "eventname", NormalizeColumnName("event_name"))
	assert.Equal(t, "statniobcanstvi", NormalizeColumnName("Státní občanství"))
	assert.Equal(t, "", NormalizeColumnName("###"))
}

func TestResolveColumnAliases(t *testing.T) {
	columns := []string{"timestamp", "event_name", "Věk", "Pohlaví", "nationality"}
	resolved := ResolveColumnAliases(columns, SocDemoAliases)

	assert.Equal(t, "Věk", resolved["age"])
	assert.Equal(t, "Pohlaví", resolved["gender"])
	assert.Equal(t, "nationality", resolved["nationality"])

	_, ok := resolved["occupation"]
	assert.False(t, ok, "unmatched fields must be absent, not empty")
}

func TestResolveColumnAliases_FirstMatchWins(t *testing.T) {
	// Canonical name is tried before any alias.
	columns := []string{"vek", "age"}
	resolved := ResolveColumnAliases(columns, map[string][]string{"age": {"vek"}})
	require.Equal(t, "age", resolved["age"])

	// Only the first dataset column match is kept.
	columns = []string{"narodnost", "country"}
	resolved = ResolveColumnAliases(columns, SocDemoAliases)
	assert.Equal(t, "narodnost", resolved["nationality"])
}

func TestResolveColumn(t *testing.T) {
	assert.Equal(t, "Vzdělání", ResolveColumn([]string{"x", "Vzdělání"}, "education", SocDemoAliases["education"]))
	assert.Equal(t, "", ResolveColumn([]string{"x"}, "education", SocDemoAliases["education"]))
}
