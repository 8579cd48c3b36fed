package hsm

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTable(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCoefficientTable(t *testing.T) {
	t.Parallel()

	path := writeTable(t, "spf.csv", `area_type,lane_count,collision_type,intercept,aadt_exponent,length_exponent,lanes_exponent
urban,3,sv,-5.056,0.800,0,0
Urban,3,MV,-10.131,1.360,0,0.300
`)

	table, err := LoadCoefficientTable(path)
	require.NoError(t, err)

	row, err := table.Lookup(Urban, 3, MultiVehicle)
	require.NoError(t, err)
	assert.InDelta(t, -10.131, row.Intercept, 1e-12)
	assert.InDelta(t, 0.300, row.LanesExp, 1e-12)

	_, err = table.Lookup(Rural, 3, MultiVehicle)
	assert.True(t, errors.Is(err, ErrNoMatchingSPF))
}

func TestLoadCoefficientTableRejectsDuplicates(t *testing.T) {
	t.Parallel()

	path := writeTable(t, "spf.csv", `area_type,lane_count,collision_type,intercept,aadt_exponent,length_exponent,lanes_exponent
urban,3,sv,-5.0,0.8,0,0
urban,3,sv,-4.0,0.8,0,0
`)
	_, err := LoadCoefficientTable(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestLoadCoefficientTableBadValues(t *testing.T) {
	t.Parallel()

	path := writeTable(t, "spf.csv", `area_type,lane_count,collision_type,intercept,aadt_exponent,length_exponent,lanes_exponent
urban,three,sv,-5.0,0.8,0,0
`)
	_, err := LoadCoefficientTable(path)
	assert.Error(t, err)
}

func TestLoadSeverityTable(t *testing.T) {
	t.Parallel()

	path := writeTable(t, "severity.csv", `area_type,collision_type,fi_share,pdo_share
urban,sv,0.32,0.68
urban,mv,0.14,0.36
`)

	table, err := LoadSeverityTable(path)
	require.NoError(t, err)

	split, ok := table.Lookup(Urban, SingleVehicle)
	assert.True(t, ok)
	assert.InDelta(t, 0.32, split.FI, 1e-12)

	// Shares that do not sum to one are normalized.
	split, ok = table.Lookup(Urban, MultiVehicle)
	assert.True(t, ok)
	assert.InDelta(t, 0.28, split.FI, 1e-12)
	assert.InDelta(t, 0.72, split.PDO, 1e-12)

	// Absent rows report all-PDO and not-found.
	split, ok = table.Lookup(Rural, SingleVehicle)
	assert.False(t, ok)
	assert.Zero(t, split.FI)
	assert.InDelta(t, 1.0, split.PDO, 1e-12)
}

func TestCoefficientEvaluate(t *testing.T) {
	t.Parallel()

	c := Coefficient{Intercept: -5.056, AADTExp: 0.8}
	// exp(-5.056 + 0.8*ln(36480)) * 0.261
	assert.InDelta(t, 7.4214962195519, c.Evaluate(36480, 0.261, 3), 1e-9)
}
