package output

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/volleyhq/volley/internal/loadtest"
	"github.com/volleyhq/volley/internal/stats"
)

// RunLog appends one line per completed request to a file, followed by
// the final report. Outcome lines arrive from many completing request
// goroutines; writes are serialized.
type RunLog struct {
	mu sync.Mutex
	f  *os.File
}

// DefaultLogPath returns the timestamped default log file name.
func DefaultLogPath() string {
	return fmt.Sprintf("volley_%d.log", time.Now().Unix())
}

// OpenRunLog opens (or creates) the log file for appending.
func OpenRunLog(path string) (*RunLog, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	return &RunLog{f: f}, nil
}

// LogOutcome writes one request line.
func (l *RunLog) LogOutcome(o loadtest.Outcome) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if o.Err != nil {
		fmt.Fprintf(l.f, "timestamp=%s latency=%s error=%q\n",
			o.Start.Format(time.RFC3339Nano), o.Elapsed, o.Err)
		return
	}
	fmt.Fprintf(l.f, "timestamp=%s latency=%s status=%d\n",
		o.Start.Format(time.RFC3339Nano), o.Elapsed, o.Status)
}

// LogReport appends the final report.
func (l *RunLog) LogReport(rep *stats.Report) {
	l.mu.Lock()
	defer l.mu.Unlock()

	fmt.Fprintln(l.f, "____________________ FINAL REPORT ____________________")
	fmt.Fprintf(l.f, "total requests: %d\n", rep.TotalRequests)
	fmt.Fprintf(l.f, "total errors:   %d\n", rep.TotalErrors)

	if rep.Latency == nil {
		fmt.Fprintln(l.f, "no requests measured for latency computation")
		return
	}

	fmt.Fprintf(l.f, "average latency:   %s\n", rep.Latency.Avg)
	fmt.Fprintf(l.f, "maximum latency:   %s\n", rep.Latency.Max)
	fmt.Fprintf(l.f, "minimum latency:   %s\n", rep.Latency.Min)
	fmt.Fprintf(l.f, "amplitude latency: %s\n", rep.Latency.Amplitude)
	fmt.Fprintf(l.f, "stddev latency:    %s\n", rep.Latency.StdDev)

	for _, pv := range rep.Percentiles {
		fmt.Fprintf(l.f, "p%g latency: %s\n", pv.P, pv.Value)
	}
	for _, tv := range rep.Thresholds {
		fmt.Fprintf(l.f, "latency >= %s: %.1f%%\n", tv.T, tv.Percentage)
	}
}

// Close closes the underlying file.
func (l *RunLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f.Close()
}
