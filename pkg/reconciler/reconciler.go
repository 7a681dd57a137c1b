package reconciler

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/cuemby/fleetprobe/pkg/fleet"
	"github.com/cuemby/fleetprobe/pkg/health"
	"github.com/cuemby/fleetprobe/pkg/log"
	"github.com/cuemby/fleetprobe/pkg/metrics"
	"github.com/cuemby/fleetprobe/pkg/policy"
	"github.com/cuemby/fleetprobe/pkg/types"
)

const (
	// UnitsCheckName prefixes the units verdict line
	UnitsCheckName = "FleetCheck"

	healthyMessage = "Everything is going well inside the cluster"
	failedPrefix   = "Failed units: "
	driftedPrefix  = "Units in a wrong state: "
)

// DefaultFailureStates is the sub-state vocabulary that marks a unit failed
var DefaultFailureStates = []types.SubState{types.SubStateFailed}

// StrictFailureStates also treats stopped units as failed
var StrictFailureStates = []types.SubState{types.SubStateFailed, types.SubStateDead}

// Options tunes unit classification
type Options struct {
	// FailureStates lists the sub-states counted as failed (default: failed)
	FailureStates []types.SubState

	// IgnoreGlobal skips global units during drift detection. Global units
	// have no single current state, so fleet reports them inconsistently.
	IgnoreGlobal bool
}

// UnitsCheck reconciles running units and unit files into one verdict
type UnitsCheck struct {
	source  fleet.Source
	exclude *policy.Matcher
	opts    Options
}

// NewUnitsCheck creates a units check. A nil matcher excludes nothing.
func NewUnitsCheck(src fleet.Source, exclude *policy.Matcher, opts Options) *UnitsCheck {
	if len(opts.FailureStates) == 0 {
		opts.FailureStates = DefaultFailureStates
	}
	return &UnitsCheck{
		source:  src,
		exclude: exclude,
		opts:    opts,
	}
}

// Name returns the check name
func (c *UnitsCheck) Name() string {
	return UnitsCheckName
}

// Check queries both views of the cluster, one after the other, and
// reconciles them. A failed query aborts the check; no partial verdict is
// built from one view.
func (c *UnitsCheck) Check(ctx context.Context) (health.Result, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.CheckDuration, "units")

	logger := log.WithComponent("reconciler")

	running, err := c.source.ListRunningUnits(ctx)
	if err != nil {
		return health.Result{}, fmt.Errorf("failed to list units: %w", err)
	}

	files, err := c.source.ListUnitFiles(ctx)
	if err != nil {
		return health.Result{}, fmt.Errorf("failed to list unit files: %w", err)
	}

	logger.Debug().
		Int("units", len(running)).
		Int("unit_files", len(files)).
		Str("exclude", c.exclude.Pattern()).
		Msg("reconciling cluster state")

	recordUnitMetrics(running, files)

	result, excluded, err := reconcile(running, files, c.exclude, c.opts)
	if err != nil {
		return health.Result{}, err
	}

	metrics.FailedUnits.Set(float64(len(result.Failed)))
	metrics.DriftedUnits.Set(float64(len(result.Drifted)))
	metrics.ExcludedUnits.WithLabelValues("failed").Set(float64(excluded.failed))
	metrics.ExcludedUnits.WithLabelValues("drifted").Set(float64(excluded.drifted))

	return result, nil
}

// Reconcile classifies rows into failed and drifted units, drops excluded
// names from each set independently and reduces them to a verdict.
// Failed units make the verdict CRITICAL, drifted units alone make it
// WARNING. The message always reports both sets. Metrics are left to the
// caller.
func Reconcile(running []types.UnitRow, files []types.UnitFileRow, exclude *policy.Matcher, opts Options) (health.Result, error) {
	result, _, err := reconcile(running, files, exclude, opts)
	return result, err
}

// exclusions counts anomalous units silenced by the exclusion policy
type exclusions struct {
	failed  int
	drifted int
}

func reconcile(running []types.UnitRow, files []types.UnitFileRow, exclude *policy.Matcher, opts Options) (health.Result, exclusions, error) {
	failureStates := opts.FailureStates
	if len(failureStates) == 0 {
		failureStates = DefaultFailureStates
	}
	failing := make(map[types.SubState]bool, len(failureStates))
	for _, s := range failureStates {
		failing[s] = true
	}

	failed := newNameSet()
	for i, row := range running {
		if row.Name == "" {
			return health.Result{}, exclusions{}, fmt.Errorf("%w: unit row %d has an empty name", fleet.ErrMalformedOutput, i+1)
		}
		if failing[row.SubState] {
			failed.add(row.Name)
		}
	}

	drifted := newNameSet()
	for i, row := range files {
		if row.Name == "" {
			return health.Result{}, exclusions{}, fmt.Errorf("%w: unit file row %d has an empty name", fleet.ErrMalformedOutput, i+1)
		}
		if opts.IgnoreGlobal && row.Global {
			continue
		}
		if row.Drifted() {
			drifted.add(row.Name)
		}
	}

	failedUnits, excludedFailed := failed.without(exclude)
	driftedUnits, excludedDrifted := drifted.without(exclude)
	excluded := exclusions{failed: excludedFailed, drifted: excludedDrifted}

	result := health.Result{
		Level:   health.OK,
		Message: healthyMessage,
		Failed:  failedUnits,
		Drifted: driftedUnits,
	}

	var parts []string
	if len(failedUnits) > 0 {
		result.Level = health.Critical
		parts = append(parts, failedPrefix+strings.Join(failedUnits, ","))
	}
	if len(driftedUnits) > 0 {
		if result.Level < health.Warning {
			result.Level = health.Warning
		}
		parts = append(parts, driftedPrefix+strings.Join(driftedUnits, ","))
	}
	if len(parts) > 0 {
		result.Message = strings.Join(parts, "; ")
	}

	return result, excluded, nil
}

// nameSet collects unit names once each, whatever the upstream order
type nameSet map[string]struct{}

func newNameSet() nameSet {
	return make(nameSet)
}

func (s nameSet) add(name string) {
	s[name] = struct{}{}
}

// without returns the sorted names the matcher does not exclude, and how
// many it excluded
func (s nameSet) without(exclude *policy.Matcher) ([]string, int) {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)

	kept := exclude.Filter(names)
	return kept, len(names) - len(kept)
}

type unitKey struct {
	state   types.SubState
	machine string
}

func recordUnitMetrics(running []types.UnitRow, files []types.UnitFileRow) {
	counts := make(map[unitKey]int)
	for _, row := range running {
		counts[unitKey{row.SubState, row.Machine}]++
	}

	metrics.UnitsTotal.Reset()
	for key, n := range counts {
		metrics.UnitsTotal.WithLabelValues(string(key.state), key.machine).Set(float64(n))
	}
	metrics.UnitFilesTotal.Set(float64(len(files)))
}
