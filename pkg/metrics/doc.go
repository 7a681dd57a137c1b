/*
Package metrics exposes what a probe run observed as Prometheus metrics.

fleetprobe is not a long running process, so nothing is served over HTTP.
Instead the gauges are filled during a run and, when a metrics file is
configured, written once in the text exposition format for the
node_exporter textfile collector:

	fleetprobe units --metrics-file /var/lib/node_exporter/fleetprobe.prom

# Metrics

	fleetprobe_units_total{sub_state,machine}   units per systemd sub-state and machine
	fleetprobe_unit_files_total                 unit files known to fleet
	fleetprobe_failed_units                     failed units after exclusions
	fleetprobe_drifted_units                    drifted units after exclusions
	fleetprobe_excluded_units{category}         anomalies silenced by the policy
	fleetprobe_machines_total{role}             machines per role ("all" for the total)
	fleetprobe_check_status{check}              last verdict (0..3)
	fleetprobe_check_duration_seconds{check}    check duration

All metrics live on Registry rather than the default registerer. The machine
label is empty when the source does not report placement (fleetctl).
*/
package metrics
