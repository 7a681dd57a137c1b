/*
Package reconciler turns fleet cluster state into check verdicts.

# Units check

UnitsCheck compares two independent views of the cluster:

	ListRunningUnits   (sub-state, unit)              → failed units
	ListUnitFiles      (unit, desired, current state) → drifted units

A unit is failed when its sub-state is in the failure vocabulary ("failed" by
default, "failed" and "dead" in strict mode). A unit file has drifted when its
desired and current states differ; rows where either state is "-" are not
comparable and are skipped.

The exclusion policy is applied to each set on its own. Both sets are
deduplicated and sorted before they are joined into the message, because
fleet does not guarantee row order.

Reduction:

	failed non-empty             CRITICAL
	failed empty, drifted not    WARNING
	both empty                   OK

The level follows that precedence but the message always carries both sets:

	FleetCheck CRITICAL: Failed units: web-1.service; Units in a wrong state: web-5.service

# Cluster size check

ClusterSizeCheck counts machines. At or below the critical threshold the
verdict is CRITICAL, at or below the warning threshold it is WARNING.

Neither check retries or keeps state between runs.
*/
package reconciler
