package main

import (
	"io"

	"github.com/cuemby/fleetprobe/pkg/config"
	"github.com/cuemby/fleetprobe/pkg/fleet"
	"github.com/cuemby/fleetprobe/pkg/health"
	"github.com/cuemby/fleetprobe/pkg/log"
	"github.com/cuemby/fleetprobe/pkg/metrics"
	"github.com/cuemby/fleetprobe/pkg/policy"
	"github.com/cuemby/fleetprobe/pkg/reconciler"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// probe carries the per-invocation I/O and the resulting exit code
type probe struct {
	stdout   io.Writer
	stderr   io.Writer
	lookup   config.LookupFunc
	exitCode int
}

// buildFunc turns a resolved configuration and a data source into a check
type buildFunc func(cfg *config.Config, src fleet.Source) (health.Checker, error)

func (p *probe) unitsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "units",
		Short: "Check for failed units and units drifting from their desired state",
		Long: `Check for failed units and units drifting from their desired state.

Failed units make the verdict CRITICAL. Units whose current state differs
from their desired state make it WARNING. Units matching --blacklist are
ignored in both cases.

Examples:
  # Check through fleetctl against a specific endpoint
  fleetprobe units -e http://10.1.0.10:4001

  # Ignore backup units, talk to the fleet API over its socket
  fleetprobe units --source http -e unix:///var/run/fleet.sock -b '.*-backup\.service'`,
		Args: cobra.NoArgs,
		RunE: p.runUnits,
	}
	config.BindUnitsFlags(cmd.Flags())
	return cmd
}

func (p *probe) clusterSizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cluster-size",
		Short: "Check that enough machines are in the cluster",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return p.runCheck(cmd, reconciler.ClusterSizeCheckName, "cluster-size",
				func(cfg *config.Config, src fleet.Source) (health.Checker, error) {
					return reconciler.NewClusterSizeCheck(src, cfg.Thresholds()), nil
				})
		},
	}
	config.BindClusterSizeFlags(cmd.Flags())
	return cmd
}

func (p *probe) runUnits(cmd *cobra.Command, args []string) error {
	return p.runCheck(cmd, reconciler.UnitsCheckName, "units",
		func(cfg *config.Config, src fleet.Source) (health.Checker, error) {
			exclude, err := policy.Compile(cfg.Blacklist)
			if err != nil {
				return nil, err
			}
			return reconciler.NewUnitsCheck(src, exclude, cfg.UnitsOptions()), nil
		})
}

// runCheck resolves the configuration, runs one check and emits its verdict.
// Every failure past flag parsing is reported as a verdict, never as a bare
// error.
func (p *probe) runCheck(cmd *cobra.Command, name, label string, build buildFunc) error {
	cfg, err := config.Resolve(cmd.Flags(), p.lookup)
	if err != nil {
		p.exitCode = health.Emit(p.stdout, name, health.FromError(err))
		return nil
	}

	level, _ := log.ParseLevel(cfg.LogLevel)
	log.Init(log.Config{
		Level:      level,
		JSONOutput: cfg.LogJSON,
		Output:     p.stderr,
	})
	log.Logger = log.WithRunID(uuid.New().String())
	logger := log.WithCheck(label)

	src, err := fleet.Open(cfg.SourceOptions())
	if err != nil {
		p.exitCode = health.Emit(p.stdout, name, health.FromError(err))
		return nil
	}

	checker, err := build(cfg, src)
	if err != nil {
		p.exitCode = health.Emit(p.stdout, name, health.FromError(err))
		return nil
	}

	logger.Info().
		Str("endpoint", cfg.Endpoint).
		Str("source", string(cfg.Source)).
		Msg("running check")

	result := health.Run(cmd.Context(), checker)

	logger.Info().
		Str("level", result.Level.String()).
		Dur("duration", result.Duration).
		Msg("check finished")

	metrics.CheckStatus.WithLabelValues(label).Set(float64(result.Level.ExitCode()))
	if cfg.MetricsFile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
			logger.Warn().Err(err).Str("path", cfg.MetricsFile).Msg("metrics not written")
		}
	}

	p.exitCode = health.Emit(p.stdout, checker.Name(), result)
	return nil
}
