// Package httpclient provides the HTTP transport used by the
// dispatcher: one fixed request shape, sent repeatedly, with the
// elapsed time measured whether or not the exchange succeeds.
package httpclient

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
)

// Client sends the configured request to the target. It implements the
// dispatcher's Transport interface and is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	method     string
	url        string
	headers    map[string]string
	payload    []byte
}

// Option is a function that configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithHeaders sets the headers sent with every request.
func WithHeaders(headers map[string]string) Option {
	return func(c *Client) {
		for k, v := range headers {
			c.headers[k] = v
		}
	}
}

// WithPayload sets the request body sent with every request. A payload
// that is valid JSON gets a Content-Type of application/json unless one
// was set explicitly.
func WithPayload(payload []byte) Option {
	return func(c *Client) {
		c.payload = payload
	}
}

// WithHTTPClient replaces the underlying http.Client, for tests and
// custom transports.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a client for the given method and target URL.
func New(method, url string, options ...Option) *Client {
	client := &Client{
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
		method:  method,
		url:     url,
		headers: make(map[string]string),
	}

	for _, option := range options {
		option(client)
	}

	if len(client.payload) > 0 && gjson.ValidBytes(client.payload) {
		if _, ok := client.headers["Content-Type"]; !ok {
			client.headers["Content-Type"] = "application/json"
		}
	}

	return client
}

// Send performs one request and returns the status code and elapsed
// time. On failure the status is 0, elapsed covers the time until the
// failure surfaced, and the error is a *TransportError classifying the
// cause. The response body is read in full and discarded so elapsed
// reflects the complete exchange.
func (c *Client) Send(ctx context.Context) (int, time.Duration, error) {
	start := time.Now()

	var body io.Reader
	if len(c.payload) > 0 {
		body = bytes.NewReader(c.payload)
	}

	req, err := http.NewRequestWithContext(ctx, c.method, c.url, body)
	if err != nil {
		return 0, time.Since(start), &TransportError{Kind: KindProtocol, Err: err}
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, time.Since(start), classify(err)
	}

	_, copyErr := io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	elapsed := time.Since(start)
	if copyErr != nil {
		return resp.StatusCode, elapsed, classify(copyErr)
	}

	return resp.StatusCode, elapsed, nil
}
