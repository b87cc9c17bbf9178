package shipping

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver(strict bool) *Resolver {
	return NewResolver(DefaultTable(), strict)
}

func TestResolve_CityTiers(t *testing.T) {
	r := newTestResolver(false)

	for _, provider := range []string{"smsa", "aramex", "spl", "dhl"} {
		base, err := r.Resolve("Riyadh", provider)
		require.NoError(t, err)

		hub, err := r.Resolve("Jeddah", provider)
		require.NoError(t, err)
		assert.Equal(t, base+5, hub)

		other, err := r.Resolve("UnknownTown", provider)
		require.NoError(t, err)
		assert.Equal(t, base+10, other)
	}
}

func TestResolve_BaseCosts(t *testing.T) {
	r := newTestResolver(false)

	got, err := r.Resolve("Riyadh", "smsa")
	require.NoError(t, err)
	assert.Equal(t, 25.0, got)

	got, err = r.Resolve("Dammam", "dhl")
	require.NoError(t, err)
	assert.Equal(t, 50.0, got)
}

func TestResolve_Normalization(t *testing.T) {
	r := newTestResolver(false)

	assert.Equal(t, TierMajor, r.Tier("  riyadh "))
	assert.Equal(t, TierMajor, r.Tier("الرياض"))
	assert.Equal(t, TierSecondary, r.Tier("JEDDAH"))
	assert.Equal(t, TierSecondary, r.Tier("الدمام"))
	assert.Equal(t, TierOther, r.Tier(""))
	assert.Equal(t, TierOther, r.Tier("Abha"))
}

func TestResolve_UnknownProviderFallsBack(t *testing.T) {
	r := newTestResolver(false)

	got, err := r.Resolve("Riyadh", "pigeon")
	require.NoError(t, err)
	assert.Equal(t, 25.0, got)

	got, err = r.Resolve("", "")
	require.NoError(t, err)
	assert.Equal(t, 35.0, got)
}

func TestResolve_StrictRejectsUnknownProvider(t *testing.T) {
	r := newTestResolver(true)

	_, err := r.Resolve("Riyadh", "pigeon")
	assert.ErrorIs(t, err, ErrShippingResolution)

	_, err = r.Resolve("UnknownTown", "smsa")
	assert.NoError(t, err, "unknown cities still default in strict mode")
}

func TestOptions(t *testing.T) {
	r := newTestResolver(false)

	standard, express, err := r.Options("Jeddah", "")
	require.NoError(t, err)

	assert.Equal(t, "smsa", standard.Provider)
	assert.Equal(t, 30.0, standard.Amount)
	assert.Equal(t, 3, standard.MinDays)
	assert.Equal(t, 5, standard.MaxDays)

	assert.Equal(t, "aramex", express.Provider)
	assert.Equal(t, 40.0, express.Amount)
	assert.Equal(t, 1, express.MinDays)
	assert.Equal(t, 2, express.MaxDays)
}

func TestLoadTable_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.yaml")
	data := []byte(`
major_cities: [mecca]
secondary_surcharge: 2
other_surcharge: 4
providers:
  - id: local
    name: Local Courier
    base_cost: 12.5
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	table, err := LoadTable(path)
	require.NoError(t, err)
	assert.Equal(t, "local", table.DefaultProvider)
	assert.Equal(t, "local", table.ExpressProvider)

	r := NewResolver(table, false)
	got, err := r.Resolve("Mecca", "local")
	require.NoError(t, err)
	assert.Equal(t, 12.5, got)

	got, err = r.Resolve("Riyadh", "local")
	require.NoError(t, err)
	assert.Equal(t, 16.5, got)
}

func TestParseTable_Errors(t *testing.T) {
	_, err := ParseTable([]byte("providers: []"))
	assert.Error(t, err)

	_, err = ParseTable([]byte("::not yaml"))
	assert.Error(t, err)

	_, err = LoadTable(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
