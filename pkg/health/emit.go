package health

import (
	"fmt"
	"io"
	"strings"
)

// Emit writes the single verdict line read by the monitoring dispatcher and
// returns the process exit code for it
func Emit(w io.Writer, checkName string, r Result) int {
	msg := strings.ReplaceAll(strings.TrimSpace(r.Message), "\n", " ")
	fmt.Fprintf(w, "%s %s: %s\n", checkName, r.Level, msg)
	return r.Level.ExitCode()
}
