package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/cuemby/fleetprobe/pkg/config"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, os.LookupEnv)
	stop()
	os.Exit(code)
}

// run executes one probe invocation and returns the process exit code.
// stdout receives only the verdict line.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, lookup config.LookupFunc) int {
	p := &probe{
		stdout: stdout,
		stderr: stderr,
		lookup: lookup,
	}

	root := p.rootCmd()
	root.SetArgs(args)
	root.SetOut(stderr)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUnknown
	}
	return p.exitCode
}

const exitUnknown = 3

func (p *probe) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "fleetprobe",
		Short: "Monitoring probes for fleet clusters",
		Long: `fleetprobe inspects a fleet cluster and prints a single
OK/WARNING/CRITICAL verdict line for a sensu style monitoring dispatcher.

Without a subcommand it runs the units check.

Exit codes: 0 OK, 1 WARNING, 2 CRITICAL, 3 UNKNOWN.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          p.runUnits,
	}

	root.SetVersionTemplate(fmt.Sprintf(
		"fleetprobe version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	config.BindFlags(root.PersistentFlags())
	config.BindUnitsFlags(root.Flags())

	root.AddCommand(p.unitsCmd())
	root.AddCommand(p.clusterSizeCmd())
	root.AddCommand(p.versionCmd())

	return root
}

func (p *probe) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(p.stdout, "fleetprobe version %s\nCommit: %s\nBuilt: %s\n", Version, Commit, BuildTime)
			p.exitCode = 0
			return nil
		},
	}
}
