// Package loadtest implements the core of the load generator: the
// dispatcher that paces request issuance against a fixed schedule and
// the recorder that accumulates per-request outcomes under concurrent
// completions.
package loadtest

import (
	"context"
	"time"
)

// Outcome is the result of one completed request attempt. It is
// immutable once recorded.
type Outcome struct {
	// Start is when the request was issued.
	Start time.Time

	// Elapsed is the time from issuance to completion. For failed
	// attempts it covers the time until the failure surfaced.
	Elapsed time.Duration

	// Status is the HTTP status code, or 0 if no response was received.
	Status int

	// Err is the transport failure, nil on a completed exchange.
	Err error
}

// Failed reports whether the attempt failed at the transport level.
func (o Outcome) Failed() bool {
	return o.Err != nil
}

// Transport sends one request to the configured target and reports the
// status code and elapsed time. Elapsed must be valid even when err is
// non-nil. The context carries cancellation; the per-request timeout is
// the transport's own concern.
type Transport interface {
	Send(ctx context.Context) (status int, elapsed time.Duration, err error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context) (int, time.Duration, error)

// Send implements Transport.
func (f TransportFunc) Send(ctx context.Context) (int, time.Duration, error) {
	return f(ctx)
}

// Progress receives issuance updates during a run. Implementations must
// be cheap; they are called from the pacing loop. A no-op implementation
// is valid.
type Progress interface {
	// Issued is called after each request is issued with the total
	// number issued so far. The value is strictly increasing.
	Issued(n int)
}

// NopProgress is a Progress that does nothing.
type NopProgress struct{}

// Issued implements Progress.
func (NopProgress) Issued(int) {}
