// Package config defines the immutable configuration for a load test run
// and its startup validation.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// InterruptPolicy controls what happens to in-flight requests when a run
// is interrupted before the request budget is exhausted.
type InterruptPolicy string

const (
	// InterruptDrain stops issuing new requests and waits for in-flight
	// requests to complete. This is the default.
	InterruptDrain InterruptPolicy = "drain"

	// InterruptCancel stops issuing new requests and cancels in-flight
	// requests immediately.
	InterruptCancel InterruptPolicy = "cancel"
)

// Config holds everything a run needs. It is built once at startup,
// validated, and never mutated afterwards.
type Config struct {
	// Target
	URL     string
	Method  string
	Headers map[string]string
	Payload []byte

	// Pacing and budget
	QPS            float64       // target requests per second
	Timeout        time.Duration // per-request timeout
	MaxRequests    int           // total request budget
	MaxConcurrency int           // max in-flight requests; 0 means unbounded

	// Reporting
	Percentiles []float64       // percentiles to report, each in [0,100]
	Thresholds  []time.Duration // latency thresholds for exceedance reporting
	LogFile     string          // per-request log file; empty disables logging

	// AcceptAny2xx treats every 2xx status as success. When false only
	// HTTP 200 counts, matching the strictest reading of "OK".
	AcceptAny2xx bool

	// OnInterrupt selects the in-flight policy on external shutdown.
	OnInterrupt InterruptPolicy
}

// Documented defaults, shared by the CLI flags and the YAML loader.
// Numeric fields are defaulted at the input boundary, never rewritten
// here: an explicit zero must reach Validate and fail there.
const (
	DefaultQPS         = 1.0
	DefaultTimeout     = 5 * time.Second
	DefaultMaxRequests = 10
)

var allowedMethods = map[string]bool{
	"GET":    true,
	"POST":   true,
	"PUT":    true,
	"DELETE": true,
}

// ApplyDefaults normalizes the fields whose zero value can only mean
// "not provided": the method and the interrupt policy.
func (c *Config) ApplyDefaults() {
	if c.Method == "" {
		c.Method = "GET"
	}
	c.Method = strings.ToUpper(c.Method)
	if c.OnInterrupt == "" {
		c.OnInterrupt = InterruptDrain
	}
}

// Validate checks the configuration and returns every problem found.
// A run must not issue a single request with an invalid configuration.
func (c *Config) Validate() error {
	errs := &ValidationErrors{}

	if c.URL == "" {
		errs.Add("url", "url is required")
	} else {
		u, err := url.Parse(c.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs.Add("url", fmt.Sprintf("invalid url: %q", c.URL))
		}
	}

	if !allowedMethods[c.Method] {
		errs.Add("method", fmt.Sprintf("unsupported method %q (want GET, POST, PUT or DELETE)", c.Method))
	}

	if c.QPS <= 0 {
		errs.Add("qps", "qps must be > 0")
	}
	if c.Timeout <= 0 {
		errs.Add("timeout", "timeout must be > 0")
	}
	if c.MaxRequests <= 0 {
		errs.Add("max-requests", "max-requests must be > 0")
	}
	if c.MaxConcurrency < 0 {
		errs.Add("max-concurrency", "max-concurrency must be >= 0 (0 means unbounded)")
	}

	for _, p := range c.Percentiles {
		if p < 0 || p > 100 {
			errs.Add("percentiles", fmt.Sprintf("percentile %v outside [0,100]", p))
		}
	}
	for _, t := range c.Thresholds {
		if t < 0 {
			errs.Add("thresholds", fmt.Sprintf("threshold %v must be >= 0", t))
		}
	}
	for k := range c.Headers {
		if strings.TrimSpace(k) == "" {
			errs.Add("headers", "header name must not be empty")
		}
	}

	if c.OnInterrupt != InterruptDrain && c.OnInterrupt != InterruptCancel {
		errs.Add("on-interrupt", fmt.Sprintf("unknown interrupt policy %q (want drain or cancel)", c.OnInterrupt))
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// IsSuccess reports whether a status code counts as a successful request
// under the configured success policy.
func (c *Config) IsSuccess(status int) bool {
	if c.AcceptAny2xx {
		return status >= 200 && status < 300
	}
	return status == 200
}

// Interval returns the issue interval between scheduled ticks (1/QPS).
func (c *Config) Interval() time.Duration {
	return time.Duration(float64(time.Second) / c.QPS)
}
