package reconciler

import (
	"context"
	"fmt"
	"testing"

	"github.com/cuemby/fleetprobe/pkg/fleet"
	"github.com/cuemby/fleetprobe/pkg/health"
	"github.com/cuemby/fleetprobe/pkg/metrics"
	"github.com/cuemby/fleetprobe/pkg/types"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func machines(n int, role string) []types.Machine {
	out := make([]types.Machine, n)
	for i := range out {
		out[i] = types.Machine{
			ID:       fmt.Sprintf("machine-%d", i),
			Metadata: map[string]string{"role": role},
		}
	}
	return out
}

func TestClusterSizeCheck(t *testing.T) {
	defaults := Thresholds{
		Warning:  DefaultClusterSizeWarningThreshold,
		Critical: DefaultClusterSizeCriticalThreshold,
	}

	tests := []struct {
		name      string
		machines  int
		wantLevel health.Level
	}{
		{"empty cluster", 0, health.Critical},
		{"at critical threshold", 6, health.Critical},
		{"at warning threshold", 7, health.Warning},
		{"above thresholds", 8, health.OK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &fakeSource{machines: machines(tt.machines, "worker")}
			check := NewClusterSizeCheck(src, defaults)

			result, err := check.Check(context.Background())
			require.NoError(t, err)

			assert.Equal(t, tt.wantLevel, result.Level)
			assert.Contains(t, result.Message, fmt.Sprintf("The cluster size is %d", tt.machines))
		})
	}
}

func TestClusterSizeCheck_RoleMetrics(t *testing.T) {
	src := &fakeSource{machines: append(machines(3, "worker"), machines(2, "etcd")...)}

	_, err := NewClusterSizeCheck(src, Thresholds{Warning: 1, Critical: 0}).Check(context.Background())
	require.NoError(t, err)

	assert.Equal(t, float64(5), testutil.ToFloat64(metrics.MachinesTotal.WithLabelValues("all")))
	assert.Equal(t, float64(3), testutil.ToFloat64(metrics.MachinesTotal.WithLabelValues("worker")))
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.MachinesTotal.WithLabelValues("etcd")))
}

func TestClusterSizeCheck_SourceError(t *testing.T) {
	src := &fakeSource{machinesErr: fmt.Errorf("%w: timed out", fleet.ErrUpstreamUnavailable)}

	result := health.Run(context.Background(), NewClusterSizeCheck(src, Thresholds{Warning: 7, Critical: 6}))

	assert.Equal(t, health.Critical, result.Level)
	assert.Contains(t, result.Message, "timed out")
}

func TestThresholdsValidate(t *testing.T) {
	assert.NoError(t, Thresholds{Warning: 7, Critical: 6}.Validate())
	assert.NoError(t, Thresholds{Warning: 3, Critical: 3}.Validate())
	assert.Error(t, Thresholds{Warning: 3, Critical: 4}.Validate())
	assert.Error(t, Thresholds{Warning: -1, Critical: -2}.Validate())

	src := &fakeSource{}
	_, err := NewClusterSizeCheck(src, Thresholds{Warning: 1, Critical: 2}).Check(context.Background())
	assert.Error(t, err)
	assert.Empty(t, src.calls)
}
