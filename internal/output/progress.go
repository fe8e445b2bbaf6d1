package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/volleyhq/volley/internal/metrics"
)

const (
	progressWidth  = 30
	progressFilled = "█"
	progressEmpty  = "░"

	// redraw at most this often; the last update always draws
	renderInterval = 100 * time.Millisecond
)

// Bar is a single-line console progress display fed by the dispatcher's
// issuance counter and the live metrics accumulator. On non-TTY writers
// it stays silent, which makes it a valid no-op progress sink.
type Bar struct {
	w       io.Writer
	total   int
	live    *metrics.Live
	enabled bool

	mu         sync.Mutex
	lastRender time.Time
	issued     int
}

// NewBar creates a progress bar for a run issuing total requests.
// live may be nil; the bar then shows only the issuance count.
func NewBar(w io.Writer, total int, live *metrics.Live) *Bar {
	return &Bar{
		w:       w,
		total:   total,
		live:    live,
		enabled: isTerminal(w),
	}
}

// Disable turns the bar off regardless of TTY detection.
func (b *Bar) Disable() {
	b.enabled = false
}

// Issued implements the dispatcher's progress interface.
func (b *Bar) Issued(n int) {
	if !b.enabled {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.issued = n
	now := time.Now()
	if n < b.total && now.Sub(b.lastRender) < renderInterval {
		return
	}
	b.lastRender = now
	b.render(n)
}

// Finish redraws the final state and terminates the progress line. An
// interrupted run shows the count actually issued, not a full bar.
func (b *Bar) Finish() {
	if !b.enabled {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.render(b.issued)
	fmt.Fprintln(b.w)
}

func (b *Bar) render(n int) {
	if n > b.total {
		n = b.total
	}
	filled := 0
	if b.total > 0 {
		filled = n * progressWidth / b.total
	}

	var sb strings.Builder
	sb.WriteString("\r[")
	sb.WriteString(strings.Repeat(progressFilled, filled))
	sb.WriteString(strings.Repeat(progressEmpty, progressWidth-filled))
	fmt.Fprintf(&sb, "] %d/%d", n, b.total)

	if b.live != nil {
		s := b.live.Snapshot()
		if s.Total > 0 {
			fmt.Fprintf(&sb, "  p50 %s  p99 %s  err %.1f%%",
				formatDuration(s.P50), formatDuration(s.P99), s.ErrorRate*100)
		}
	}
	sb.WriteString("\033[K")

	fmt.Fprint(b.w, sb.String())
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
