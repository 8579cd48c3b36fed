package hsm

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCMFSet(t *testing.T) {
	t.Parallel()

	writeConfig := func(t *testing.T, content string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "cmf.json")
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	t.Run("valid", func(t *testing.T) {
		t.Parallel()
		path := writeConfig(t, `[
			{"name": "lane_width", "value": 1.04},
			{"name": "median_width", "value": 0.96, "collisions": ["mv"]}
		]`)

		set, err := LoadCMFSet(path)
		require.NoError(t, err)
		require.Len(t, set, 2)
		assert.Equal(t, "lane_width", set[0].Name)
		assert.Equal(t, []CollisionType{MultiVehicle}, set[1].Collisions)
	})

	t.Run("rejects unknown factor name", func(t *testing.T) {
		t.Parallel()
		path := writeConfig(t, `[{"name": "guardrail", "value": 1.1}]`)
		_, err := LoadCMFSet(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown CMF")
	})

	t.Run("rejects non-positive value", func(t *testing.T) {
		t.Parallel()
		path := writeConfig(t, `[{"name": "lane_width", "value": 0}]`)
		_, err := LoadCMFSet(path)
		require.Error(t, err)
	})

	t.Run("rejects non-json extension", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "cmf.yaml")
		require.NoError(t, os.WriteFile(path, []byte("[]"), 0o644))
		_, err := LoadCMFSet(path)
		require.Error(t, err)
	})
}
