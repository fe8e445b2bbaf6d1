package loadtest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/volleyhq/volley/internal/config"
)

// fakeTransport is a controllable Transport for dispatcher tests. It
// tracks the peak number of concurrent Send calls.
type fakeTransport struct {
	latency time.Duration
	status  int
	err     error

	inflight    atomic.Int64
	maxInflight atomic.Int64
	calls       atomic.Int64
}

func (f *fakeTransport) Send(ctx context.Context) (int, time.Duration, error) {
	cur := f.inflight.Add(1)
	for {
		max := f.maxInflight.Load()
		if cur <= max || f.maxInflight.CompareAndSwap(max, cur) {
			break
		}
	}
	defer f.inflight.Add(-1)
	f.calls.Add(1)

	if f.latency > 0 {
		select {
		case <-ctx.Done():
			return 0, f.latency, ctx.Err()
		case <-time.After(f.latency):
		}
	}
	return f.status, f.latency, f.err
}

func testConfig(qps float64, budget, maxConcurrency int) *config.Config {
	cfg := &config.Config{
		URL:            "http://localhost/test",
		Method:         "GET",
		QPS:            qps,
		Timeout:        time.Second,
		MaxRequests:    budget,
		MaxConcurrency: maxConcurrency,
		OnInterrupt:    config.InterruptDrain,
	}
	return cfg
}

func TestDispatcher_IssuesExactBudget(t *testing.T) {
	cfg := testConfig(1000, 50, 10)
	transport := &fakeTransport{status: 200, latency: time.Millisecond}
	recorder := NewRecorder(cfg.MaxRequests, cfg.IsSuccess)

	d := NewDispatcher(cfg, transport, recorder)
	rs, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(rs.Outcomes) != 50 {
		t.Errorf("len(Outcomes) = %d, want 50", len(rs.Outcomes))
	}
	if d.Issued() != 50 {
		t.Errorf("Issued() = %d, want 50", d.Issued())
	}
	if got := transport.calls.Load(); got != 50 {
		t.Errorf("transport calls = %d, want 50 (double-issued or lost)", got)
	}
	if rs.Errors != 0 {
		t.Errorf("Errors = %d, want 0", rs.Errors)
	}
}

func TestDispatcher_BoundsConcurrency(t *testing.T) {
	cfg := testConfig(2000, 40, 5)
	transport := &fakeTransport{status: 200, latency: 30 * time.Millisecond}
	recorder := NewRecorder(cfg.MaxRequests, cfg.IsSuccess)

	d := NewDispatcher(cfg, transport, recorder)
	rs, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(rs.Outcomes) != 40 {
		t.Errorf("len(Outcomes) = %d, want 40 (deferred, not dropped)", len(rs.Outcomes))
	}
	if got := transport.maxInflight.Load(); got > 5 {
		t.Errorf("peak in-flight = %d, want <= 5", got)
	}
}

func TestDispatcher_AllFailuresStillComplete(t *testing.T) {
	cfg := testConfig(1000, 20, 0)
	transport := &fakeTransport{err: errors.New("connection refused")}
	recorder := NewRecorder(cfg.MaxRequests, cfg.IsSuccess)

	d := NewDispatcher(cfg, transport, recorder)
	rs, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v (transport failures must not abort the run)", err)
	}

	if len(rs.Outcomes) != 20 {
		t.Errorf("len(Outcomes) = %d, want 20", len(rs.Outcomes))
	}
	if rs.Errors != 20 {
		t.Errorf("Errors = %d, want 20", rs.Errors)
	}
	if len(rs.Latencies()) != 20 {
		t.Errorf("len(Latencies()) = %d, want 20 (failed attempts measured)", len(rs.Latencies()))
	}
}

func TestDispatcher_ScheduleBasedPacing(t *testing.T) {
	// 10 requests at 100 qps: last tick fires at 90ms. Even with slow
	// requests the issuance schedule must not compress below that.
	cfg := testConfig(100, 10, 0)
	transport := &fakeTransport{status: 200, latency: 5 * time.Millisecond}
	recorder := NewRecorder(cfg.MaxRequests, cfg.IsSuccess)

	d := NewDispatcher(cfg, transport, recorder)
	start := time.Now()
	if _, err := d.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	elapsed := time.Since(start)

	if elapsed < 85*time.Millisecond {
		t.Errorf("run finished in %v, want >= ~90ms (pacing too fast)", elapsed)
	}
	if elapsed > 2*time.Second {
		t.Errorf("run took %v, pacing far behind schedule", elapsed)
	}
}

func TestDispatcher_CancelStopsIssuance(t *testing.T) {
	cfg := testConfig(20, 100, 0) // 50ms interval, would take ~5s
	transport := &fakeTransport{status: 200, latency: time.Millisecond}
	recorder := NewRecorder(cfg.MaxRequests, cfg.IsSuccess)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	d := NewDispatcher(cfg, transport, recorder)
	rs, err := d.Run(ctx)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if d.Issued() >= 100 {
		t.Errorf("Issued() = %d, want fewer than budget after cancellation", d.Issued())
	}
	// Drain policy: every issued request still produced an outcome.
	if len(rs.Outcomes) != d.Issued() {
		t.Errorf("len(Outcomes) = %d, want %d (one outcome per issued request)",
			len(rs.Outcomes), d.Issued())
	}
}

func TestDispatcher_InterruptCancelAbortsInflight(t *testing.T) {
	// Slow transport, bounded pool: by the time the interrupt fires a few
	// requests are stuck in flight. Under the cancel policy they must be
	// aborted promptly, and each of them must still yield an outcome.
	cfg := testConfig(1000, 100, 4)
	cfg.OnInterrupt = config.InterruptCancel
	transport := &fakeTransport{status: 200, latency: 10 * time.Second}
	recorder := NewRecorder(cfg.MaxRequests, cfg.IsSuccess)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	d := NewDispatcher(cfg, transport, recorder)
	start := time.Now()
	rs, err := d.Run(ctx)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Run() returned after %v, want prompt abort of in-flight requests", elapsed)
	}
	issued := d.Issued()
	if issued == 0 || issued >= cfg.MaxRequests {
		t.Fatalf("Issued() = %d, want a partial run", issued)
	}
	if len(rs.Outcomes) != issued {
		t.Errorf("len(Outcomes) = %d, want %d (one outcome per issued request)",
			len(rs.Outcomes), issued)
	}
	for i, o := range rs.Outcomes {
		if o.Err == nil {
			t.Errorf("outcome %d has no error, want cancellation error from aborted request", i)
		}
	}
	if rs.Errors != len(rs.Outcomes) {
		t.Errorf("Errors = %d, want %d", rs.Errors, len(rs.Outcomes))
	}
}

type recordingProgress struct {
	mu      sync.Mutex
	updates []int
}

func (p *recordingProgress) Issued(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updates = append(p.updates, n)
}

func TestDispatcher_ProgressMonotonic(t *testing.T) {
	cfg := testConfig(1000, 25, 4)
	transport := &fakeTransport{status: 200}
	recorder := NewRecorder(cfg.MaxRequests, cfg.IsSuccess)
	progress := &recordingProgress{}

	d := NewDispatcher(cfg, transport, recorder, WithProgress(progress))
	if _, err := d.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(progress.updates) != 25 {
		t.Fatalf("progress updates = %d, want 25", len(progress.updates))
	}
	for i, n := range progress.updates {
		if n != i+1 {
			t.Fatalf("update %d = %d, want %d (issuance must follow tick order)", i, n, i+1)
		}
	}
}

func TestDispatcher_ObserverSeesEveryOutcome(t *testing.T) {
	cfg := testConfig(1000, 30, 8)
	transport := &fakeTransport{status: 200, latency: time.Millisecond}
	recorder := NewRecorder(cfg.MaxRequests, cfg.IsSuccess)

	var observed atomic.Int64
	d := NewDispatcher(cfg, transport, recorder,
		WithObserver(func(Outcome) { observed.Add(1) }))

	if _, err := d.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if observed.Load() != 30 {
		t.Errorf("observed outcomes = %d, want 30", observed.Load())
	}
}

func TestDispatcher_MockScenario(t *testing.T) {
	// rate=10, budget=5, max_concurrency=5, transport always 200 in 10ms
	cfg := testConfig(10, 5, 5)
	transport := &fakeTransport{status: 200, latency: 10 * time.Millisecond}
	recorder := NewRecorder(cfg.MaxRequests, cfg.IsSuccess)

	d := NewDispatcher(cfg, transport, recorder)
	rs, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(rs.Outcomes) != 5 {
		t.Errorf("len(Outcomes) = %d, want 5", len(rs.Outcomes))
	}
	if rs.Errors != 0 {
		t.Errorf("Errors = %d, want 0", rs.Errors)
	}
	for _, o := range rs.Outcomes {
		if o.Status != 200 {
			t.Errorf("Status = %d, want 200", o.Status)
		}
		if o.Elapsed != 10*time.Millisecond {
			t.Errorf("Elapsed = %v, want 10ms", o.Elapsed)
		}
	}
}
