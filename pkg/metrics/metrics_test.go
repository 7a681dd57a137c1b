package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteTextfile(t *testing.T) {
	FailedUnits.Set(2)
	DriftedUnits.Set(1)
	UnitsTotal.WithLabelValues("failed", "abc123").Set(2)
	CheckStatus.WithLabelValues("units").Set(2)

	path := filepath.Join(t.TempDir(), "fleetprobe.prom")
	require.NoError(t, WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	out := string(data)
	assert.Contains(t, out, "fleetprobe_failed_units 2")
	assert.Contains(t, out, "fleetprobe_drifted_units 1")
	assert.Contains(t, out, `fleetprobe_units_total{machine="abc123",sub_state="failed"} 2`)
	assert.Contains(t, out, `fleetprobe_check_status{check="units"} 2`)
	assert.NotContains(t, out, "go_goroutines")
}

func TestWriteTextfile_BadDirectory(t *testing.T) {
	err := WriteTextfile(filepath.Join(t.TempDir(), "missing", "fleetprobe.prom"))
	assert.Error(t, err)
}
