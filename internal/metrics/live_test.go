package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestLive_Snapshot(t *testing.T) {
	live := NewLive()

	for i := 0; i < 90; i++ {
		live.Record(10*time.Millisecond, true)
	}
	for i := 0; i < 10; i++ {
		live.Record(50*time.Millisecond, false)
	}

	s := live.Snapshot()
	if s.Total != 100 {
		t.Errorf("Total = %d, want 100", s.Total)
	}
	if s.Failed != 10 {
		t.Errorf("Failed = %d, want 10", s.Failed)
	}
	if s.ErrorRate != 0.1 {
		t.Errorf("ErrorRate = %v, want 0.1", s.ErrorRate)
	}

	// HDR quantiles are approximate; allow 1% of scale.
	if s.P50 < 9*time.Millisecond || s.P50 > 11*time.Millisecond {
		t.Errorf("P50 = %v, want ~10ms", s.P50)
	}
	if s.Max < 49*time.Millisecond || s.Max > 51*time.Millisecond {
		t.Errorf("Max = %v, want ~50ms", s.Max)
	}
}

func TestLive_EmptySnapshot(t *testing.T) {
	live := NewLive()

	s := live.Snapshot()
	if s.Total != 0 || s.Failed != 0 || s.ErrorRate != 0 {
		t.Errorf("empty snapshot = %+v, want zeros", s)
	}
}

func TestLive_ConcurrentRecord(t *testing.T) {
	live := NewLive()

	const n = 1000
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			live.Record(time.Duration(i+1)*time.Microsecond, i%2 == 0)
		}(i)
	}
	wg.Wait()

	s := live.Snapshot()
	if s.Total != n {
		t.Errorf("Total = %d, want %d", s.Total, n)
	}
	if s.Failed != n/2 {
		t.Errorf("Failed = %d, want %d", s.Failed, n/2)
	}
}
