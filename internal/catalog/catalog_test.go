package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefinitions_CodesAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, p := range Definitions() {
		assert.False(t, seen[p.Code], "duplicate code %s", p.Code)
		seen[p.Code] = true
	}
}

func TestDefinitions_EveryEntryIsComplete(t *testing.T) {
	for _, p := range Definitions() {
		assert.NotEmpty(t, p.Code)
		assert.NotEmpty(t, p.Name)
		assert.NotEmpty(t, p.Module)
		assert.NotEqual(t, AccessNone, p.AccessLevel, "code %s has no access level", p.Code)
	}
}

func TestByCode(t *testing.T) {
	p, ok := ByCode(SettingsAdmin)
	require.True(t, ok)
	assert.Equal(t, ModuleSettings, p.Module)
	assert.Equal(t, AccessAdmin, p.AccessLevel)

	_, ok = ByCode("settings:banana")
	assert.False(t, ok)
}

func TestByModule(t *testing.T) {
	plans := ByModule(ModulePlans)
	require.Len(t, plans, 3)
	for _, p := range plans {
		assert.Equal(t, ModulePlans, p.Module)
	}

	assert.Empty(t, ByModule(Module("nonexistent")))
}

func TestCodes_MatchesDefinitions(t *testing.T) {
	codes := Codes()
	defs := Definitions()
	require.Len(t, codes, len(defs))
	for i, p := range defs {
		assert.Equal(t, p.Code, codes[i])
	}
}

func TestAccessLevelOrdering(t *testing.T) {
	assert.True(t, AccessRead < AccessWrite)
	assert.True(t, AccessWrite < AccessAdmin)
	assert.Equal(t, "Read", AccessRead.String())
	assert.Equal(t, "Admin", AccessAdmin.String())
}

func TestDefinitions_ReturnsCopy(t *testing.T) {
	a := Definitions()
	a[0].Name = "mutated"
	b := Definitions()
	assert.NotEqual(t, "mutated", b[0].Name)
}
