package cli

import (
	"time"

	"github.com/fatih/color"
	"github.com/rodaine/table"
)

// Shared color palette: green is healthy/fast, yellow is degraded,
// red is failing/slow, cyan is structure.
var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

// newTable builds a table with the shared cyan-underline header style.
func newTable(columns ...interface{}) table.Table {
	headerFmt := color.New(color.FgCyan, color.Underline).SprintfFunc()
	return table.New(columns...).WithHeaderFormatter(headerFmt)
}

// Latency thresholds for color coding.
const (
	latencyGood = 250 * time.Millisecond
	latencyWarn = 1 * time.Second
)

// colorLatency renders d color-coded by the thresholds above.
func colorLatency(d time.Duration) string {
	s := d.Round(time.Millisecond).String()
	switch {
	case d == 0:
		return "-"
	case d < latencyGood:
		return green(s)
	case d < latencyWarn:
		return yellow(s)
	default:
		return red(s)
	}
}

// colorStatus renders ok/failed markers.
func colorStatus(ok bool) string {
	if ok {
		return green("OK")
	}
	return red("FAIL")
}
