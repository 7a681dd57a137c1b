/*
Package log provides structured logging for fleetprobe using zerolog.

A probe writes exactly one verdict line to stdout, which the monitoring
dispatcher parses. Everything else, including diagnostics about the cluster
queries, goes through this package to stderr so the verdict channel stays
clean.

# Usage

	log.Init(log.Config{
		Level:      log.DebugLevel,
		JSONOutput: false,
	})

	log.Logger = log.WithRunID(runID)
	logger := log.WithCheck("units")
	logger.Debug().Int("rows", len(rows)).Msg("listed running units")

The default level is warn: a healthy probe run is silent on stderr.
Replacing Logger with a WithRunID child tags every later entry, including
those from component loggers, with the invocation id.

Context loggers:
  - WithComponent: tag entries with the package emitting them
  - WithRunID: tag entries with the invocation id
  - WithCheck: tag entries with the check name
*/
package log
