package types

// SubState is the scheduler's live runtime status for a unit
type SubState string

const (
	SubStateRunning SubState = "running"
	SubStateFailed  SubState = "failed"
	SubStateDead    SubState = "dead"
)

// NoState is printed by fleet when a unit has no desired or current state
const NoState = "-"

// UnitRow is one row of the running units listing
type UnitRow struct {
	Name     string
	SubState SubState

	// Machine is the id of the machine running the unit, empty when the
	// source does not report placement.
	Machine string
}

// UnitFileRow is one row of the unit files listing
type UnitFileRow struct {
	Name         string
	DesiredState string
	CurrentState string

	// Global is true for units scheduled on every machine (X-Fleet Global=true).
	// Only sources that expose unit options can set it.
	Global bool
}

// Drifted reports whether the row carries both states and they disagree.
// A NoState on either side means the comparison does not apply.
func (r UnitFileRow) Drifted() bool {
	if r.DesiredState == NoState || r.CurrentState == NoState {
		return false
	}
	return r.DesiredState != r.CurrentState
}

// Machine is a member of the fleet cluster
type Machine struct {
	ID       string
	PublicIP string
	Metadata map[string]string
}

// Role returns the machine's "role" metadata value, if any
func (m Machine) Role() string {
	return m.Metadata["role"]
}
