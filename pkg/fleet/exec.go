package fleet

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/cuemby/fleetprobe/pkg/log"
	"github.com/cuemby/fleetprobe/pkg/types"
)

// ExecSource reads cluster state by running fleetctl
type ExecSource struct {
	// Binary is the fleetctl executable (default: "fleetctl" from PATH)
	Binary string

	// Endpoint is passed to fleetctl --endpoint
	Endpoint string

	// Timeout is the per-command execution timeout (default: 10 seconds)
	Timeout time.Duration
}

// NewExecSource creates a fleetctl backed source
func NewExecSource(endpoint string) *ExecSource {
	return &ExecSource{
		Binary:   "fleetctl",
		Endpoint: endpoint,
		Timeout:  DefaultTimeout,
	}
}

// WithBinary overrides the fleetctl executable. Empty keeps the current one.
func (e *ExecSource) WithBinary(binary string) *ExecSource {
	if binary != "" {
		e.Binary = binary
	}
	return e
}

// WithTimeout sets the command execution timeout
func (e *ExecSource) WithTimeout(timeout time.Duration) *ExecSource {
	e.Timeout = timeout
	return e
}

// ListRunningUnits runs list-units with the sub and unit columns
func (e *ExecSource) ListRunningUnits(ctx context.Context) ([]types.UnitRow, error) {
	out, err := e.run(ctx, "list-units", "-fields", "sub,unit", "-no-legend")
	if err != nil {
		return nil, err
	}
	return parseUnitRows(out)
}

// ListUnitFiles runs list-unit-files with the unit, dstate and state columns
func (e *ExecSource) ListUnitFiles(ctx context.Context) ([]types.UnitFileRow, error) {
	out, err := e.run(ctx, "list-unit-files", "-fields", "unit,dstate,state", "-no-legend")
	if err != nil {
		return nil, err
	}
	return parseUnitFileRows(out)
}

// ListMachines runs list-machines with full machine ids
func (e *ExecSource) ListMachines(ctx context.Context) ([]types.Machine, error) {
	out, err := e.run(ctx, "list-machines", "-fields", "machine,ip,metadata", "-no-legend", "-full")
	if err != nil {
		return nil, err
	}
	return parseMachines(out)
}

func (e *ExecSource) run(ctx context.Context, subcommand string, args ...string) ([]byte, error) {
	logger := log.WithComponent("fleet-exec")

	execCtx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	argv := append([]string{"--endpoint", e.Endpoint, subcommand}, args...)
	cmd := exec.CommandContext(execCtx, e.Binary, argv...)
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	logger.Debug().
		Str("command", subcommand).
		Dur("duration", time.Since(start)).
		Int("bytes", stdout.Len()).
		Msg("fleetctl finished")

	what := fmt.Sprintf("fleetctl %s", subcommand)
	if derr := deadlineErr(execCtx, what); derr != nil {
		return nil, derr
	}
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, unavailable(what, fmt.Errorf("%v: %s", err, msg))
		}
		return nil, unavailable(what, err)
	}

	return stdout.Bytes(), nil
}
