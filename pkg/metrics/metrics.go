package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds every fleetprobe metric. A private registry keeps the Go
// runtime and process collectors out of the textfile.
var Registry = prometheus.NewRegistry()

var (
	// Unit metrics
	UnitsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fleetprobe_units_total",
			Help: "Number of scheduled units by systemd sub-state and machine",
		},
		[]string{"sub_state", "machine"},
	)

	UnitFilesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fleetprobe_unit_files_total",
			Help: "Number of unit files known to the cluster",
		},
	)

	FailedUnits = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fleetprobe_failed_units",
			Help: "Number of failed units left after exclusions",
		},
	)

	DriftedUnits = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fleetprobe_drifted_units",
			Help: "Number of units whose current state differs from the desired state, after exclusions",
		},
	)

	ExcludedUnits = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fleetprobe_excluded_units",
			Help: "Number of anomalous units silenced by the exclusion policy",
		},
		[]string{"category"},
	)

	// Machine metrics
	MachinesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fleetprobe_machines_total",
			Help: "Number of machines in the cluster by role",
		},
		[]string{"role"},
	)

	// Check metrics
	CheckStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fleetprobe_check_status",
			Help: "Verdict of the last run (0 ok, 1 warning, 2 critical, 3 unknown)",
		},
		[]string{"check"},
	)

	CheckDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fleetprobe_check_duration_seconds",
			Help:    "Check duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"check"},
	)
)

func init() {
	Registry.MustRegister(UnitsTotal)
	Registry.MustRegister(UnitFilesTotal)
	Registry.MustRegister(FailedUnits)
	Registry.MustRegister(DriftedUnits)
	Registry.MustRegister(ExcludedUnits)
	Registry.MustRegister(MachinesTotal)
	Registry.MustRegister(CheckStatus)
	Registry.MustRegister(CheckDuration)
}

// WriteTextfile writes the registry in the text exposition format for the
// node_exporter textfile collector. The file is replaced atomically.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, Registry); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	return nil
}
