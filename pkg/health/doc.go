/*
Package health defines check verdicts and how they reach the monitoring
dispatcher.

A check implements Checker and returns a Result carrying one of four levels:

	OK        exit 0
	WARNING   exit 1
	CRITICAL  exit 2
	UNKNOWN   exit 3

Run wraps a Checker so that every invocation resolves to exactly one verdict.
A failed cluster query becomes CRITICAL with the error text; errors that say
nothing about the cluster (an invalid exclusion pattern, bad flags) become
UNKNOWN. Nothing degrades to OK.

Emit prints the verdict as a single line on the writer it is given, in the
sensu plugin format, and returns the exit code:

	FleetCheck CRITICAL: Failed units: web-1.service

Keeping the mapping here lets another dispatcher convention replace it
without touching the checks.
*/
package health
