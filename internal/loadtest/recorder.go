package loadtest

import (
	"errors"
	"sync"
	"time"
)

// ErrNotSealed is returned by Snapshot before the dispatcher has
// signalled drain-complete.
var ErrNotSealed = errors.New("recorder: snapshot requested before drain completed")

// Recorder is the single sink for request outcomes. Many completing
// requests append concurrently; the dispatcher seals it once the run
// has drained, after which the result set is frozen.
type Recorder struct {
	mu        sync.Mutex
	outcomes  []Outcome
	errors    int
	sealed    bool
	isSuccess func(status int) bool
}

// NewRecorder creates a recorder sized for the request budget.
// isSuccess decides which status codes count as success; outcomes with
// a transport error always count as errors.
func NewRecorder(budget int, isSuccess func(status int) bool) *Recorder {
	if isSuccess == nil {
		isSuccess = func(status int) bool { return status == 200 }
	}
	return &Recorder{
		outcomes:  make([]Outcome, 0, budget),
		isSuccess: isSuccess,
	}
}

// Record appends one outcome. Safe for concurrent use. Recording after
// Seal is a programming error and panics rather than silently
// corrupting the finalized statistics.
func (r *Recorder) Record(o Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		panic("recorder: record after seal")
	}

	r.outcomes = append(r.outcomes, o)
	if o.Err != nil || !r.isSuccess(o.Status) {
		r.errors++
	}
}

// Seal marks the result set as final. Called by the dispatcher exactly
// once, after all in-flight requests have completed.
func (r *Recorder) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed = true
}

// Snapshot returns the finalized result set. It fails with ErrNotSealed
// if the run has not drained yet.
func (r *Recorder) Snapshot() (*ResultSet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.sealed {
		return nil, ErrNotSealed
	}

	outcomes := make([]Outcome, len(r.outcomes))
	copy(outcomes, r.outcomes)
	return &ResultSet{Outcomes: outcomes, Errors: r.errors}, nil
}

// Count returns the number of outcomes recorded so far. Safe to call
// while the run is in progress.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.outcomes)
}

// ResultSet is the frozen collection of all outcomes of a run plus the
// error tally. Order follows completion and carries no meaning.
type ResultSet struct {
	Outcomes []Outcome
	Errors   int
}

// Latencies returns the elapsed time of every outcome, failed attempts
// included.
func (rs *ResultSet) Latencies() []time.Duration {
	latencies := make([]time.Duration, len(rs.Outcomes))
	for i, o := range rs.Outcomes {
		latencies[i] = o.Elapsed
	}
	return latencies
}
