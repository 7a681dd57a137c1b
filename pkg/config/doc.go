/*
Package config resolves the probe configuration once, at process start.

Sources, highest priority first:

 1. command line flags that were explicitly set
 2. the process environment
 3. the dotenv file given with --env-file (never overrides the environment)
 4. the YAML file given with --config or FLEETPROBE_CONFIG
 5. built-in defaults

Environment variables:

	ETCD_IP, FLEET_URL                      fleet endpoint
	BLACKLIST_PATTERN, BLACKLIST_REGEXP     exclusion pattern
	FLEET_SOURCE                            exec or http
	FLEETCTL_PATH                           fleetctl binary
	FLEET_CHECK_TIMEOUT                     per query timeout, e.g. 10s
	FLEET_CHECK_STRICT                      count dead units as failed
	FLEET_IGNORE_GLOBAL                     skip global units for drift
	FLEET_CLUSTER_SIZE_WARNING_THRESHOLD    cluster size warning bound
	FLEET_CLUSTER_SIZE_ERROR_THRESHOLD      cluster size critical bound
	METRICS_FILE                            Prometheus textfile output
	LOG_LEVEL, LOG_JSON                     logging

Empty variables count as unset. An empty exclusion pattern excludes nothing.

Example config file:

	endpoint: unix:///var/run/fleet.sock
	source: http
	blacklist: '.*-backup\.service'
	timeout: 5s
	ignore_global: true
*/
package config
