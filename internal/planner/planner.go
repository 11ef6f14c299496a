// Package planner calls the external route planner when a re-optimization
// window comes due.
package planner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"

	"flightops-sim/internal/logging"
)

// Request is the payload of a re-optimization call. The planner needs
// nothing beyond "run now"; the fields identify the trigger for its logs.
type Request struct {
	TriggerID    string    `json:"trigger_id"`
	SimulatedNow time.Time `json:"simulated_now"`
	Reason       string    `json:"reason"`
}

// NewRequest builds a request with a fresh trigger id.
func NewRequest(simNow time.Time, reason string) Request {
	return Request{TriggerID: uuid.New().String(), SimulatedNow: simNow, Reason: reason}
}

// Client invokes the planner.
type Client interface {
	Reoptimize(ctx context.Context, req Request) error
}

// HTTPClient posts re-optimization requests to a planner URL, retrying
// transient failures with exponential backoff.
type HTTPClient struct {
	url        string
	http       *http.Client
	maxRetries int
	initial    time.Duration
	maxBackoff time.Duration
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.http = hc }
}

// WithRetries sets how many times a failed call is retried.
func WithRetries(n int) Option {
	return func(c *HTTPClient) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithBackoff sets the initial and maximum retry delays.
func WithBackoff(initial, max time.Duration) Option {
	return func(c *HTTPClient) {
		c.initial = initial
		c.maxBackoff = max
	}
}

// NewHTTPClient returns a client for url.
func NewHTTPClient(url string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		url:        url,
		http:       &http.Client{Timeout: 10 * time.Second},
		maxRetries: 3,
		initial:    500 * time.Millisecond,
		maxBackoff: 5 * time.Second,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// StatusError is a non-2xx planner response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("planner returned %d: %s", e.Code, e.Body)
}

// Temporary reports whether retrying may help.
func (e *StatusError) Temporary() bool {
	return e.Code >= 500 || e.Code == http.StatusTooManyRequests
}

// Reoptimize posts req, retrying 5xx and transport errors.
func (c *HTTPClient) Reoptimize(ctx context.Context, req Request) error {
	log := logging.FromContext(ctx)
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode planner request: %w", err)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.initial
	bo.MaxInterval = c.maxBackoff

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		lastErr = c.post(ctx, body)
		if lastErr == nil {
			if attempt > 0 {
				log.Info("planner call succeeded after retry", "trigger_id", req.TriggerID, "attempt", attempt+1)
			}
			return nil
		}
		if se, ok := lastErr.(*StatusError); ok && !se.Temporary() {
			return lastErr
		}
		if attempt == c.maxRetries {
			break
		}
		sleep := bo.NextBackOff()
		if sleep == backoff.Stop {
			break
		}
		log.Warn("planner call failed, retrying", "trigger_id", req.TriggerID, "attempt", attempt+1, "in", sleep, "err", lastErr)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleep):
		}
	}
	return fmt.Errorf("planner unreachable after %d attempts: %w", c.maxRetries+1, lastErr)
}

func (c *HTTPClient) post(ctx context.Context, body []byte) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode, Body: string(bytes.TrimSpace(snippet))}
	}
	return nil
}

// LogClient only logs triggers. It stands in when no planner URL is set.
type LogClient struct{}

// Reoptimize logs the request.
func (LogClient) Reoptimize(ctx context.Context, req Request) error {
	logging.FromContext(ctx).Info("re-optimization due (no planner configured)",
		"trigger_id", req.TriggerID, "sim_now", req.SimulatedNow, "reason", req.Reason)
	return nil
}
