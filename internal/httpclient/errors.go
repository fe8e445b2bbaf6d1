package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Kind classifies a transport failure.
type Kind string

const (
	// KindTimeout marks a request that exceeded its timeout.
	KindTimeout Kind = "timeout"

	// KindConnection marks a failure to reach the target at all
	// (refused connection, DNS failure, reset).
	KindConnection Kind = "connection_error"

	// KindCanceled marks a request aborted by its context, typically
	// an operator interrupt under the cancel policy.
	KindCanceled Kind = "canceled"

	// KindProtocol marks everything else: malformed requests,
	// truncated responses, bad redirects.
	KindProtocol Kind = "protocol_error"
)

// TransportError wraps a request failure with its classification.
type TransportError struct {
	Kind Kind
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// classify maps an error out of net/http onto the failure taxonomy.
func classify(err error) *TransportError {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TransportError{Kind: KindTimeout, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &TransportError{Kind: KindTimeout, Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return &TransportError{Kind: KindCanceled, Err: err}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return &TransportError{Kind: KindConnection, Err: err}
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &TransportError{Kind: KindConnection, Err: err}
	}

	return &TransportError{Kind: KindProtocol, Err: err}
}
