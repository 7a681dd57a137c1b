package fleet

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/cuemby/fleetprobe/pkg/log"
	"github.com/cuemby/fleetprobe/pkg/types"
)

const apiPrefix = "/fleet/v1/"

// HTTPSource reads cluster state from the fleet v1 JSON API
type HTTPSource struct {
	// BaseURL is the API root (scheme and host)
	BaseURL *url.URL

	// Timeout bounds every query including pagination (default: 10 seconds)
	Timeout time.Duration

	// Client is the HTTP client to use (allows custom configuration)
	Client *http.Client
}

// NewHTTPSource creates an API backed source.
// unix:// and file:// endpoints dial the socket at the URL path.
func NewHTTPSource(endpoint string) (*HTTPSource, error) {
	ep, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid fleet endpoint %q: %w", endpoint, err)
	}

	transport := &http.Transport{}
	if ep.Scheme == "unix" || ep.Scheme == "file" {
		sockPath := ep.Path
		ep = &url.URL{Scheme: "http", Host: "domain-sock"}
		transport.DialContext = func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", sockPath)
		}
	} else if ep.Scheme == "" || ep.Host == "" {
		return nil, fmt.Errorf("invalid fleet endpoint %q: missing scheme or host", endpoint)
	}

	return &HTTPSource{
		BaseURL: ep,
		Timeout: DefaultTimeout,
		Client:  &http.Client{Transport: transport},
	}, nil
}

// WithTimeout sets the query timeout
func (h *HTTPSource) WithTimeout(timeout time.Duration) *HTTPSource {
	h.Timeout = timeout
	return h
}

type unitOption struct {
	Section string `json:"section"`
	Name    string `json:"name"`
	Value   string `json:"value"`
}

type apiUnit struct {
	Name         string       `json:"name"`
	Options      []unitOption `json:"options"`
	DesiredState string       `json:"desiredState"`
	CurrentState string       `json:"currentState"`
	MachineID    string       `json:"machineID"`
}

type apiUnitState struct {
	Name               string `json:"name"`
	Hash               string `json:"hash"`
	MachineID          string `json:"machineID"`
	SystemdLoadState   string `json:"systemdLoadState"`
	SystemdActiveState string `json:"systemdActiveState"`
	SystemdSubState    string `json:"systemdSubState"`
}

type apiMachine struct {
	ID        string            `json:"id"`
	PrimaryIP string            `json:"primaryIP"`
	Metadata  map[string]string `json:"metadata"`
}

type unitPage struct {
	Units         []apiUnit `json:"units"`
	NextPageToken string    `json:"nextPageToken"`
}

type statePage struct {
	States        []apiUnitState `json:"states"`
	NextPageToken string         `json:"nextPageToken"`
}

type machinePage struct {
	Machines      []apiMachine `json:"machines"`
	NextPageToken string       `json:"nextPageToken"`
}

// ListRunningUnits reads /fleet/v1/state
func (h *HTTPSource) ListRunningUnits(ctx context.Context) ([]types.UnitRow, error) {
	ctx, cancel := context.WithTimeout(ctx, h.Timeout)
	defer cancel()

	var rows []types.UnitRow
	token := ""
	for {
		var page statePage
		if err := h.get(ctx, "state", token, &page); err != nil {
			return nil, err
		}
		for _, s := range page.States {
			if s.Name == "" {
				return nil, malformed("state entry without unit name (machine %q)", s.MachineID)
			}
			rows = append(rows, types.UnitRow{
				Name:     s.Name,
				SubState: types.SubState(s.SystemdSubState),
				Machine:  s.MachineID,
			})
		}
		if page.NextPageToken == "" {
			return rows, nil
		}
		token = page.NextPageToken
	}
}

// ListUnitFiles reads /fleet/v1/units
func (h *HTTPSource) ListUnitFiles(ctx context.Context) ([]types.UnitFileRow, error) {
	ctx, cancel := context.WithTimeout(ctx, h.Timeout)
	defer cancel()

	var rows []types.UnitFileRow
	token := ""
	for {
		var page unitPage
		if err := h.get(ctx, "units", token, &page); err != nil {
			return nil, err
		}
		for _, u := range page.Units {
			if u.Name == "" {
				return nil, malformed("unit entry without name")
			}
			rows = append(rows, types.UnitFileRow{
				Name:         u.Name,
				DesiredState: stateOrNone(u.DesiredState),
				CurrentState: stateOrNone(u.CurrentState),
				Global:       isGlobal(u.Options),
			})
		}
		if page.NextPageToken == "" {
			return rows, nil
		}
		token = page.NextPageToken
	}
}

// ListMachines reads /fleet/v1/machines
func (h *HTTPSource) ListMachines(ctx context.Context) ([]types.Machine, error) {
	ctx, cancel := context.WithTimeout(ctx, h.Timeout)
	defer cancel()

	var machines []types.Machine
	token := ""
	for {
		var page machinePage
		if err := h.get(ctx, "machines", token, &page); err != nil {
			return nil, err
		}
		for _, m := range page.Machines {
			if m.ID == "" {
				return nil, malformed("machine entry without id")
			}
			machines = append(machines, types.Machine{ID: m.ID, PublicIP: m.PrimaryIP, Metadata: m.Metadata})
		}
		if page.NextPageToken == "" {
			return machines, nil
		}
		token = page.NextPageToken
	}
}

func (h *HTTPSource) get(ctx context.Context, collection, token string, out interface{}) error {
	logger := log.WithComponent("fleet-http")

	u := *h.BaseURL
	u.Path = apiPrefix + collection
	if token != "" {
		u.RawQuery = url.Values{"nextPageToken": {token}}.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	what := "GET " + u.Path
	start := time.Now()
	resp, err := h.Client.Do(req)
	if err != nil {
		if derr := deadlineErr(ctx, what); derr != nil {
			return derr
		}
		return unavailable(what, err)
	}
	defer resp.Body.Close()

	logger.Debug().
		Str("path", u.Path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("fleet API responded")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return unavailable(what, fmt.Errorf("HTTP %d %s", resp.StatusCode, http.StatusText(resp.StatusCode)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if derr := deadlineErr(ctx, what); derr != nil {
			return derr
		}
		return malformed("%s: %v", what, err)
	}
	return nil
}

func stateOrNone(s string) string {
	if s == "" {
		return types.NoState
	}
	return s
}

func isGlobal(opts []unitOption) bool {
	for _, o := range opts {
		if o.Section == "X-Fleet" && o.Name == "Global" && o.Value == "true" {
			return true
		}
	}
	return false
}
