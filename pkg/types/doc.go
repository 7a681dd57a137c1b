/*
Package types defines the rows fleetprobe reads from a fleet cluster.

Rows are produced fresh by a data source on every query and discarded once a
verdict is emitted. Nothing here is persisted.

  - UnitRow: a unit name and its systemd sub-state (running, failed, dead, ...)
  - UnitFileRow: a unit name with its desired and current lifecycle states
  - Machine: a cluster member, used by the cluster size check

A UnitFileRow whose desired or current state is "-" has nothing to compare and
never counts as drift.
*/
package types
