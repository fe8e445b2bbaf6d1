package loadtest

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/volleyhq/volley/internal/config"
)

// Dispatcher issues exactly the budgeted number of requests at the
// configured rate, bounds concurrent in-flight requests, and drains
// before finalizing the result set.
//
// Pacing is schedule-based: the k-th request targets start+k*interval
// rather than sleeping interval after each launch, so the effective
// rate does not drift as individual request latency grows. A full
// in-flight window defers issuance but never resets the schedule; once
// a slot frees, issuance resumes against the original tick sequence.
type Dispatcher struct {
	cfg       *config.Config
	transport Transport
	recorder  *Recorder
	progress  Progress
	observe   func(Outcome)

	issued atomic.Int64
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithProgress sets the progress sink notified on each issuance.
func WithProgress(p Progress) Option {
	return func(d *Dispatcher) {
		if p != nil {
			d.progress = p
		}
	}
}

// WithObserver registers a hook invoked with every completed outcome,
// after it has been recorded. Used for live metrics and request logs.
// The hook is called from completing request goroutines and must be
// safe for concurrent use.
func WithObserver(fn func(Outcome)) Option {
	return func(d *Dispatcher) {
		d.observe = fn
	}
}

// NewDispatcher creates a dispatcher for a validated configuration.
func NewDispatcher(cfg *config.Config, transport Transport, recorder *Recorder, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		cfg:       cfg,
		transport: transport,
		recorder:  recorder,
		progress:  NopProgress{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Issued returns the number of requests issued so far. Monotonically
// increasing, safe to read while the run is in progress.
func (d *Dispatcher) Issued() int {
	return int(d.issued.Load())
}

// Run executes the load test and blocks until the result set is final.
//
// Cancelling ctx stops issuance immediately. What happens to in-flight
// requests then follows the configured interrupt policy: drain (the
// default) waits for them, cancel aborts them. Either way every issued
// request produces exactly one outcome and the recorder is sealed
// before Run returns.
func (d *Dispatcher) Run(ctx context.Context) (*ResultSet, error) {
	interval := d.cfg.Interval()

	var sem chan struct{}
	if d.cfg.MaxConcurrency > 0 {
		sem = make(chan struct{}, d.cfg.MaxConcurrency)
	}

	// In-flight requests run on their own context so that an external
	// interrupt does not tear them down under the drain policy.
	flightCtx, cancelFlight := context.WithCancel(context.Background())
	defer cancelFlight()

	var wg sync.WaitGroup
	start := time.Now()

issuance:
	for k := 0; k < d.cfg.MaxRequests; k++ {
		tick := start.Add(time.Duration(k) * interval)
		if wait := time.Until(tick); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				break issuance
			case <-timer.C:
			}
		} else if ctx.Err() != nil {
			break issuance
		}

		// Acquire an in-flight slot. Running behind schedule here is
		// recovered naturally: later ticks are already due and fire
		// without waiting.
		if sem != nil {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				break issuance
			}
		}

		d.progress.Issued(int(d.issued.Add(1)))

		wg.Add(1)
		go func() {
			defer wg.Done()
			if sem != nil {
				defer func() { <-sem }()
			}
			d.attempt(flightCtx)
		}()
	}

	if ctx.Err() != nil && d.cfg.OnInterrupt == config.InterruptCancel {
		cancelFlight()
	}

	wg.Wait()
	d.recorder.Seal()
	return d.recorder.Snapshot()
}

// attempt performs one request and records its outcome. Transport
// failures become part of the outcome; nothing propagates.
func (d *Dispatcher) attempt(ctx context.Context) {
	issuedAt := time.Now()
	status, elapsed, err := d.transport.Send(ctx)

	o := Outcome{
		Start:   issuedAt,
		Elapsed: elapsed,
		Status:  status,
		Err:     err,
	}
	d.recorder.Record(o)
	if d.observe != nil {
		d.observe(o)
	}
}
