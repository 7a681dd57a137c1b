package fleet

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/cuemby/fleetprobe/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func fleetAPI() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/fleet/v1/state", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("nextPageToken") == "page2" {
			writeJSON(w, statePage{States: []apiUnitState{
				{Name: "web-2.service", MachineID: "def456", SystemdSubState: "running"},
			}})
			return
		}
		writeJSON(w, statePage{
			States: []apiUnitState{
				{Name: "web-1.service", MachineID: "abc123", SystemdActiveState: "failed", SystemdSubState: "failed"},
			},
			NextPageToken: "page2",
		})
	})
	mux.HandleFunc("/fleet/v1/units", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, unitPage{Units: []apiUnit{
			{Name: "web-3.service", DesiredState: "launched", CurrentState: "launched"},
			{Name: "web-4.service", DesiredState: "launched", CurrentState: ""},
			{
				Name:         "agent.service",
				DesiredState: "launched",
				CurrentState: "inactive",
				Options:      []unitOption{{Section: "X-Fleet", Name: "Global", Value: "true"}},
			},
		}})
	})
	mux.HandleFunc("/fleet/v1/machines", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, machinePage{Machines: []apiMachine{
			{ID: "abc123", PrimaryIP: "10.0.0.1", Metadata: map[string]string{"role": "worker"}},
			{ID: "def456", PrimaryIP: "10.0.0.2"},
		}})
	})
	return mux
}

func TestHTTPSource_ListRunningUnitsFollowsPages(t *testing.T) {
	server := httptest.NewServer(fleetAPI())
	defer server.Close()

	src, err := NewHTTPSource(server.URL)
	require.NoError(t, err)

	units, err := src.ListRunningUnits(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []types.UnitRow{
		{Name: "web-1.service", SubState: types.SubStateFailed, Machine: "abc123"},
		{Name: "web-2.service", SubState: types.SubStateRunning, Machine: "def456"},
	}, units)
}

func TestHTTPSource_ListUnitFiles(t *testing.T) {
	server := httptest.NewServer(fleetAPI())
	defer server.Close()

	src, err := NewHTTPSource(server.URL)
	require.NoError(t, err)

	files, err := src.ListUnitFiles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []types.UnitFileRow{
		{Name: "web-3.service", DesiredState: "launched", CurrentState: "launched"},
		{Name: "web-4.service", DesiredState: "launched", CurrentState: types.NoState},
		{Name: "agent.service", DesiredState: "launched", CurrentState: "inactive", Global: true},
	}, files)
}

func TestHTTPSource_ListMachines(t *testing.T) {
	server := httptest.NewServer(fleetAPI())
	defer server.Close()

	src, err := NewHTTPSource(server.URL)
	require.NoError(t, err)

	machines, err := src.ListMachines(context.Background())
	require.NoError(t, err)
	require.Len(t, machines, 2)
	assert.Equal(t, "worker", machines[0].Role())
	assert.Equal(t, "10.0.0.2", machines[1].PublicIP)
}

func TestHTTPSource_UnixSocket(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "fleet.sock")
	listener, err := net.Listen("unix", sock)
	require.NoError(t, err)

	server := httptest.NewUnstartedServer(fleetAPI())
	server.Listener.Close()
	server.Listener = listener
	server.Start()
	defer server.Close()

	src, err := NewHTTPSource("unix://" + sock)
	require.NoError(t, err)
	assert.Equal(t, "domain-sock", src.BaseURL.Host)

	machines, err := src.ListMachines(context.Background())
	require.NoError(t, err)
	assert.Len(t, machines, 2)
}

func TestHTTPSource_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	src, err := NewHTTPSource(server.URL)
	require.NoError(t, err)

	_, err = src.ListUnitFiles(context.Background())
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.Contains(t, err.Error(), "HTTP 500")
}

func TestHTTPSource_Unreachable(t *testing.T) {
	server := httptest.NewServer(fleetAPI())
	url := server.URL
	server.Close()

	src, err := NewHTTPSource(url)
	require.NoError(t, err)

	_, err = src.ListRunningUnits(context.Background())
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestHTTPSource_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(200 * time.Millisecond):
		case <-r.Context().Done():
		}
		writeJSON(w, statePage{})
	}))
	defer server.Close()

	src, err := NewHTTPSource(server.URL)
	require.NoError(t, err)
	src.WithTimeout(50 * time.Millisecond)

	_, err = src.ListRunningUnits(context.Background())
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.Contains(t, err.Error(), "timed out")
}

func TestHTTPSource_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))
	defer server.Close()

	src, err := NewHTTPSource(server.URL)
	require.NoError(t, err)

	_, err = src.ListUnitFiles(context.Background())
	assert.ErrorIs(t, err, ErrMalformedOutput)
}

func TestHTTPSource_EmptyUnitName(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, statePage{States: []apiUnitState{{Name: "", SystemdSubState: "failed"}}})
	}))
	defer server.Close()

	src, err := NewHTTPSource(server.URL)
	require.NoError(t, err)

	_, err = src.ListRunningUnits(context.Background())
	assert.ErrorIs(t, err, ErrMalformedOutput)
}

func TestNewHTTPSource_InvalidEndpoint(t *testing.T) {
	_, err := NewHTTPSource("172.17.42.1:4001")
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	src, err := Open(Options{Kind: KindExec, Endpoint: "http://127.0.0.1:4001", Fleetctl: "/opt/bin/fleetctl"})
	require.NoError(t, err)
	execSrc, ok := src.(*ExecSource)
	require.True(t, ok)
	assert.Equal(t, "/opt/bin/fleetctl", execSrc.Binary)
	assert.Equal(t, DefaultTimeout, execSrc.Timeout)

	src, err = Open(Options{Kind: KindHTTP, Endpoint: "http://127.0.0.1:4001", Timeout: time.Second})
	require.NoError(t, err)
	httpSrc, ok := src.(*HTTPSource)
	require.True(t, ok)
	assert.Equal(t, time.Second, httpSrc.Timeout)

	_, err = Open(Options{Kind: "grpc"})
	assert.Error(t, err)
}
