package fleet

import (
	"bufio"
	"bytes"
	"strings"

	"github.com/cuemby/fleetprobe/pkg/types"
)

// fleetctl pads -no-legend columns with tabs, so a run of whitespace is a
// single separator. Blank lines carry no row.
func splitRows(out []byte) [][]string {
	var rows [][]string
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		rows = append(rows, fields)
	}
	return rows
}

func parseUnitRows(out []byte) ([]types.UnitRow, error) {
	var units []types.UnitRow
	for i, fields := range splitRows(out) {
		if len(fields) < 2 {
			return nil, malformed("list-units row %d: want 2 fields, got %d (%q)", i+1, len(fields), strings.Join(fields, " "))
		}
		units = append(units, types.UnitRow{
			SubState: types.SubState(fields[0]),
			Name:     fields[len(fields)-1],
		})
	}
	return units, nil
}

func parseUnitFileRows(out []byte) ([]types.UnitFileRow, error) {
	var files []types.UnitFileRow
	for i, fields := range splitRows(out) {
		if len(fields) < 3 {
			return nil, malformed("list-unit-files row %d: want 3 fields, got %d (%q)", i+1, len(fields), strings.Join(fields, " "))
		}
		files = append(files, types.UnitFileRow{
			Name:         fields[0],
			DesiredState: fields[len(fields)-2],
			CurrentState: fields[len(fields)-1],
		})
	}
	return files, nil
}

func parseMachines(out []byte) ([]types.Machine, error) {
	var machines []types.Machine
	for i, fields := range splitRows(out) {
		if len(fields) < 2 {
			return nil, malformed("list-machines row %d: want at least 2 fields, got %d", i+1, len(fields))
		}
		m := types.Machine{ID: fields[0], PublicIP: fields[1]}
		if len(fields) > 2 {
			m.Metadata = parseMetadata(fields[2])
		}
		machines = append(machines, m)
	}
	return machines, nil
}

// parseMetadata reads fleetctl's "k=v,k2=v2" metadata column
func parseMetadata(s string) map[string]string {
	if s == types.NoState || s == "" {
		return nil
	}
	md := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		md[k] = v
	}
	return md
}
