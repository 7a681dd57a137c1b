package health

import (
	"context"
	"errors"
	"time"

	"github.com/cuemby/fleetprobe/pkg/fleet"
)

// Level is a check verdict. OK < Warning < Critical; Unknown is reserved for
// checks that could not be evaluated.
type Level int

const (
	OK Level = iota
	Warning
	Critical
	Unknown
)

// String returns the dispatcher's name for the level
func (l Level) String() string {
	switch l {
	case OK:
		return "OK"
	case Warning:
		return "WARNING"
	case Critical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// ExitCode maps the level onto the dispatcher's exit code convention
func (l Level) ExitCode() int {
	switch l {
	case OK:
		return 0
	case Warning:
		return 1
	case Critical:
		return 2
	default:
		return 3
	}
}

// Result represents the outcome of a check
type Result struct {
	Level   Level
	Message string

	// Failed and Drifted hold the sorted unit names behind a units verdict
	Failed  []string
	Drifted []string

	CheckedAt time.Time
	Duration  time.Duration
}

// Checker is the interface that all checks implement
type Checker interface {
	// Check evaluates the cluster once. An error means no verdict could be
	// reached from the data available.
	Check(ctx context.Context) (Result, error)

	// Name is printed in front of the verdict line
	Name() string
}

// Run executes a checker and always returns a verdict, turning errors into
// non-OK results with FromError
func Run(ctx context.Context, c Checker) Result {
	start := time.Now()

	result, err := c.Check(ctx)
	if err != nil {
		result = FromError(err)
	}

	result.CheckedAt = start
	result.Duration = time.Since(start)
	return result
}

// FromError converts a fatal error into a verdict. Data source failures are
// CRITICAL; anything else (bad policy, bad configuration) is UNKNOWN.
func FromError(err error) Result {
	level := Unknown
	if errors.Is(err, fleet.ErrUpstreamUnavailable) || errors.Is(err, fleet.ErrMalformedOutput) {
		level = Critical
	}
	return Result{
		Level:   level,
		Message: err.Error(),
	}
}
