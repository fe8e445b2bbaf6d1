package output

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/volleyhq/volley/internal/stats"
)

// Reporter formats a finished report for the console.
type Reporter struct {
	w      io.Writer
	scheme *ColorScheme
}

// NewReporter creates a reporter writing to w. Colors are disabled when
// useColor is false.
func NewReporter(w io.Writer, useColor bool) *Reporter {
	scheme := DefaultColorScheme()
	if !useColor {
		scheme = NoColorScheme()
	}
	return &Reporter{w: w, scheme: scheme}
}

// PrintReport renders the human-readable report.
func (r *Reporter) PrintReport(rep *stats.Report) {
	fmt.Fprintln(r.w)
	r.scheme.Title.Fprintln(r.w, "━━━━━━━━━━━━ Load Test Report ━━━━━━━━━━━━")

	r.line("Total Requests:", fmt.Sprintf("%d", rep.TotalRequests))
	errColor := r.scheme.Success
	if rep.TotalErrors > 0 {
		errColor = r.scheme.Error
	}
	fmt.Fprintf(r.w, "%s %s\n", r.scheme.Label.Sprint("Total Errors:  "), errColor.Sprintf("%d", rep.TotalErrors))

	if rep.Latency == nil {
		fmt.Fprintln(r.w)
		r.scheme.Warn.Fprintln(r.w, "No requests measured; latency statistics unavailable.")
		return
	}

	fmt.Fprintln(r.w)
	r.scheme.Title.Fprintln(r.w, "Latency")
	r.line("  Average:  ", formatDuration(rep.Latency.Avg))
	r.line("  Minimum:  ", formatDuration(rep.Latency.Min))
	r.line("  Maximum:  ", formatDuration(rep.Latency.Max))
	r.line("  Amplitude:", formatDuration(rep.Latency.Amplitude))
	r.line("  Std Dev:  ", formatDuration(rep.Latency.StdDev))

	if len(rep.Percentiles) > 0 {
		fmt.Fprintln(r.w)
		r.scheme.Title.Fprintln(r.w, "Percentiles")
		for _, pv := range rep.Percentiles {
			r.line(fmt.Sprintf("  p%g:", pv.P), formatDuration(pv.Value))
		}
	}

	if len(rep.Thresholds) > 0 {
		fmt.Fprintln(r.w)
		r.scheme.Title.Fprintln(r.w, "Thresholds (share of requests at or above)")
		for _, tv := range rep.Thresholds {
			r.line(fmt.Sprintf("  >=%s:", formatDuration(tv.T)), fmt.Sprintf("%.1f%%", tv.Percentage))
		}
	}
}

// PrintJSON renders the report in its JSON boundary schema.
func (r *Reporter) PrintJSON(rep *stats.Report) error {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(r.w, string(data))
	return err
}

func (r *Reporter) line(label, value string) {
	fmt.Fprintf(r.w, "%s %s\n", r.scheme.Label.Sprint(label), r.scheme.Value.Sprint(value))
}

// formatDuration rounds a duration for display.
func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Second:
		return d.Round(time.Millisecond).String()
	case d >= time.Millisecond:
		return d.Round(10 * time.Microsecond).String()
	default:
		return d.Round(time.Microsecond).String()
	}
}
