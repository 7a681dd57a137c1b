package fleet

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cuemby/fleetprobe/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFleetctl writes a shell script standing in for fleetctl.
// $3 is the subcommand, after --endpoint <url>.
func fakeFleetctl(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fleetctl")
	script := "#!/bin/sh\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0755))
	return path
}

const fixtureScript = `case "$3" in
list-units)
	printf 'failed\tweb-1.service\n'
	printf 'running\t\tweb-2.service\n'
	printf '\n'
	;;
list-unit-files)
	printf 'web-3.service\tlaunched\tlaunched\n'
	printf 'web-4.service\tlaunched\t-\n'
	;;
list-machines)
	printf 'abc123\t10.0.0.1\trole=worker,region=eu\n'
	printf 'def456\t10.0.0.2\t-\n'
	;;
*)
	echo "unexpected command $3" >&2
	exit 1
	;;
esac`

func TestExecSource_ListRunningUnits(t *testing.T) {
	src := NewExecSource("http://127.0.0.1:4001").WithBinary(fakeFleetctl(t, fixtureScript))

	units, err := src.ListRunningUnits(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []types.UnitRow{
		{Name: "web-1.service", SubState: types.SubStateFailed},
		{Name: "web-2.service", SubState: types.SubStateRunning},
	}, units)
}

func TestExecSource_ListUnitFiles(t *testing.T) {
	src := NewExecSource("http://127.0.0.1:4001").WithBinary(fakeFleetctl(t, fixtureScript))

	files, err := src.ListUnitFiles(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []types.UnitFileRow{
		{Name: "web-3.service", DesiredState: "launched", CurrentState: "launched"},
		{Name: "web-4.service", DesiredState: "launched", CurrentState: types.NoState},
	}, files)
}

func TestExecSource_ListMachines(t *testing.T) {
	src := NewExecSource("http://127.0.0.1:4001").WithBinary(fakeFleetctl(t, fixtureScript))

	machines, err := src.ListMachines(context.Background())
	require.NoError(t, err)
	require.Len(t, machines, 2)

	assert.Equal(t, "abc123", machines[0].ID)
	assert.Equal(t, "worker", machines[0].Role())
	assert.Equal(t, "eu", machines[0].Metadata["region"])
	assert.Nil(t, machines[1].Metadata)
}

func TestExecSource_PassesEndpoint(t *testing.T) {
	script := `if [ "$1" != "--endpoint" ] || [ "$2" != "http://10.1.2.3:4001" ]; then
	echo "bad endpoint: $1 $2" >&2
	exit 1
fi
printf 'running\tweb-1.service\n'`
	src := NewExecSource("http://10.1.2.3:4001").WithBinary(fakeFleetctl(t, script))

	units, err := src.ListRunningUnits(context.Background())
	require.NoError(t, err)
	assert.Len(t, units, 1)
}

func TestExecSource_NonZeroExit(t *testing.T) {
	src := NewExecSource("http://127.0.0.1:4001").
		WithBinary(fakeFleetctl(t, `echo "error attempting to check latest fleet version" >&2; exit 1`))

	_, err := src.ListRunningUnits(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUpstreamUnavailable))
	assert.Contains(t, err.Error(), "latest fleet version")
}

func TestExecSource_MissingBinary(t *testing.T) {
	src := NewExecSource("http://127.0.0.1:4001").
		WithBinary(filepath.Join(t.TempDir(), "does-not-exist"))

	_, err := src.ListUnitFiles(context.Background())
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestExecSource_Timeout(t *testing.T) {
	src := NewExecSource("http://127.0.0.1:4001").
		WithBinary(fakeFleetctl(t, `exec sleep 5`)).
		WithTimeout(50 * time.Millisecond)

	start := time.Now()
	_, err := src.ListRunningUnits(context.Background())

	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.Contains(t, err.Error(), "timed out")
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestExecSource_MalformedRow(t *testing.T) {
	src := NewExecSource("http://127.0.0.1:4001").
		WithBinary(fakeFleetctl(t, `printf 'web-1.service\tlaunched\n'`))

	_, err := src.ListUnitFiles(context.Background())
	assert.ErrorIs(t, err, ErrMalformedOutput)
}
