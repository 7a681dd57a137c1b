package reconciler

import (
	"context"
	"fmt"

	"github.com/cuemby/fleetprobe/pkg/fleet"
	"github.com/cuemby/fleetprobe/pkg/health"
	"github.com/cuemby/fleetprobe/pkg/log"
	"github.com/cuemby/fleetprobe/pkg/metrics"
)

// ClusterSizeCheckName prefixes the cluster size verdict line
const ClusterSizeCheckName = "FleetClusterSize"

const (
	DefaultClusterSizeWarningThreshold  = 7
	DefaultClusterSizeCriticalThreshold = 6
)

// Thresholds are inclusive: a cluster of exactly Critical machines is critical
type Thresholds struct {
	Warning  int
	Critical int
}

// Validate checks that the critical bound is not above the warning bound
func (t Thresholds) Validate() error {
	if t.Critical < 0 || t.Warning < 0 {
		return fmt.Errorf("cluster size thresholds must not be negative")
	}
	if t.Critical > t.Warning {
		return fmt.Errorf("critical threshold (%d) is above warning threshold (%d)", t.Critical, t.Warning)
	}
	return nil
}

// ClusterSizeCheck alerts when too few machines are in the cluster
type ClusterSizeCheck struct {
	source     fleet.Source
	thresholds Thresholds
}

// NewClusterSizeCheck creates a cluster size check
func NewClusterSizeCheck(src fleet.Source, thresholds Thresholds) *ClusterSizeCheck {
	return &ClusterSizeCheck{source: src, thresholds: thresholds}
}

// Name returns the check name
func (c *ClusterSizeCheck) Name() string {
	return ClusterSizeCheckName
}

// Check counts the machines and compares the count to the thresholds
func (c *ClusterSizeCheck) Check(ctx context.Context) (health.Result, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.CheckDuration, "cluster-size")

	if err := c.thresholds.Validate(); err != nil {
		return health.Result{}, err
	}

	machines, err := c.source.ListMachines(ctx)
	if err != nil {
		return health.Result{}, fmt.Errorf("failed to list machines: %w", err)
	}

	roles := map[string]int{"all": len(machines)}
	for _, m := range machines {
		if role := m.Role(); role != "" {
			roles[role]++
		}
	}
	metrics.MachinesTotal.Reset()
	for role, n := range roles {
		metrics.MachinesTotal.WithLabelValues(role).Set(float64(n))
	}

	size := len(machines)
	logger := log.WithComponent("cluster-size")
	logger.Debug().
		Int("machines", size).
		Int("warning", c.thresholds.Warning).
		Int("critical", c.thresholds.Critical).
		Msg("counted machines")

	result := health.Result{
		Level:   health.OK,
		Message: fmt.Sprintf("The cluster size is %d", size),
	}
	switch {
	case size <= c.thresholds.Critical:
		result.Level = health.Critical
		result.Message += fmt.Sprintf(" (critical at %d or fewer)", c.thresholds.Critical)
	case size <= c.thresholds.Warning:
		result.Level = health.Warning
		result.Message += fmt.Sprintf(" (warning at %d or fewer)", c.thresholds.Warning)
	}

	return result, nil
}
