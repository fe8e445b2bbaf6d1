// Package metrics collects running statistics during a load test for
// the live progress display. It trades exactness for cheap concurrent
// updates: latencies go into an HDR histogram, so the quantiles shown
// while the run is in flight are approximations. The final report is
// computed elsewhere from the raw latencies.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// histogram range: 1 microsecond to 1 hour, 3 significant figures.
const (
	histMin     = 1
	histMax     = 3600000000
	histSigFigs = 3
)

// Live accumulates in-run counters and latencies. Safe for concurrent
// use from completing request goroutines.
type Live struct {
	hist   *hdrhistogram.Histogram
	histMu sync.Mutex

	total  atomic.Int64
	failed atomic.Int64

	startTime time.Time
}

// NewLive creates an empty live metrics accumulator.
func NewLive() *Live {
	return &Live{
		hist:      hdrhistogram.New(histMin, histMax, histSigFigs),
		startTime: time.Now(),
	}
}

// Record adds one completed attempt.
func (l *Live) Record(elapsed time.Duration, success bool) {
	micros := elapsed.Microseconds()
	if micros < histMin {
		micros = histMin
	}
	if micros > histMax {
		micros = histMax
	}

	l.histMu.Lock()
	l.hist.RecordValue(micros)
	l.histMu.Unlock()

	l.total.Add(1)
	if !success {
		l.failed.Add(1)
	}
}

// Snapshot is a point-in-time view of the run so far.
type Snapshot struct {
	Total     int64
	Failed    int64
	ErrorRate float64 // 0.0 to 1.0
	RPS       float64
	P50       time.Duration
	P99       time.Duration
	Max       time.Duration
	Elapsed   time.Duration
}

// Snapshot returns the current counters and approximate quantiles.
func (l *Live) Snapshot() Snapshot {
	l.histMu.Lock()
	p50 := time.Duration(l.hist.ValueAtQuantile(50)) * time.Microsecond
	p99 := time.Duration(l.hist.ValueAtQuantile(99)) * time.Microsecond
	max := time.Duration(l.hist.Max()) * time.Microsecond
	l.histMu.Unlock()

	total := l.total.Load()
	failed := l.failed.Load()
	elapsed := time.Since(l.startTime)

	errorRate := 0.0
	if total > 0 {
		errorRate = float64(failed) / float64(total)
	}
	rps := 0.0
	if elapsed.Seconds() > 0 {
		rps = float64(total) / elapsed.Seconds()
	}

	return Snapshot{
		Total:     total,
		Failed:    failed,
		ErrorRate: errorRate,
		RPS:       rps,
		P50:       p50,
		P99:       p99,
		Max:       max,
		Elapsed:   elapsed,
	}
}
