/*
Package fleet reads cluster state from a fleet control plane.

Source is the only thing the checks depend on. Two transports implement it:

	ExecSource   fleetctl --endpoint <url> list-units -fields sub,unit -no-legend
	             fleetctl --endpoint <url> list-unit-files -fields unit,dstate,state -no-legend
	             fleetctl --endpoint <url> list-machines -fields machine,ip,metadata -no-legend -full

	HTTPSource   GET /fleet/v1/state
	             GET /fleet/v1/units
	             GET /fleet/v1/machines

HTTPSource follows nextPageToken pagination and accepts unix:// or file://
endpoints, which are dialed as a unix socket. It also reports whether a unit
is global (X-Fleet Global=true), which fleetctl's tabular output does not.

# Errors

Every failure wraps one of two sentinels, so callers can classify with
errors.Is:

  - ErrUpstreamUnavailable: the endpoint could not be reached, fleetctl exited
    non-zero, the API answered with a non-2xx status, or the timeout expired
  - ErrMalformedOutput: a row had too few fields, an entry had no name, or the
    API body was not valid JSON

Queries are never retried. The monitoring dispatcher owns retries across
invocations.
*/
package fleet
