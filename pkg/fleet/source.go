package fleet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cuemby/fleetprobe/pkg/types"
)

var (
	// ErrUpstreamUnavailable is returned when the control plane cannot be
	// reached, answers with an error, or does not answer in time
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrMalformedOutput is returned when a row does not parse into the
	// expected fields
	ErrMalformedOutput = errors.New("malformed output")
)

// Source is a read-only view of a fleet cluster.
// Implementations are not required to be safe for concurrent use.
type Source interface {
	// ListRunningUnits returns one row per scheduled unit with its sub-state
	ListRunningUnits(ctx context.Context) ([]types.UnitRow, error)

	// ListUnitFiles returns one row per unit file with desired and current state
	ListUnitFiles(ctx context.Context) ([]types.UnitFileRow, error)

	// ListMachines returns the machines currently in the cluster
	ListMachines(ctx context.Context) ([]types.Machine, error)
}

// Kind selects the transport used to reach the control plane
type Kind string

const (
	KindExec Kind = "exec"
	KindHTTP Kind = "http"
)

// DefaultTimeout bounds a single query when the caller sets none
const DefaultTimeout = 10 * time.Second

// Options configures Open
type Options struct {
	Kind     Kind
	Endpoint string

	// Fleetctl is the fleetctl binary used by the exec transport
	Fleetctl string

	// Timeout bounds every query issued by the source
	Timeout time.Duration
}

// Open builds the Source selected by opts.Kind
func Open(opts Options) (Source, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	switch opts.Kind {
	case KindExec, "":
		return NewExecSource(opts.Endpoint).
			WithBinary(opts.Fleetctl).
			WithTimeout(timeout), nil
	case KindHTTP:
		src, err := NewHTTPSource(opts.Endpoint)
		if err != nil {
			return nil, err
		}
		return src.WithTimeout(timeout), nil
	default:
		return nil, fmt.Errorf("unknown source kind %q (want %q or %q)", opts.Kind, KindExec, KindHTTP)
	}
}

func unavailable(what string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUpstreamUnavailable, what, err)
}

func malformed(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrMalformedOutput, fmt.Sprintf(format, args...))
}

// deadlineErr rewrites a context failure into ErrUpstreamUnavailable
func deadlineErr(ctx context.Context, what string) error {
	if err := ctx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return unavailable(what, errors.New("timed out"))
		}
		return unavailable(what, err)
	}
	return nil
}
