package planner

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestHTTPClientPostsRequest(t *testing.T) {
	var got Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	simNow := time.Date(2025, 1, 1, 0, 8, 0, 0, time.UTC)
	req := NewRequest(simNow, "window")
	if err := NewHTTPClient(srv.URL).Reoptimize(context.Background(), req); err != nil {
		t.Fatalf("Reoptimize: %v", err)
	}
	if got.TriggerID != req.TriggerID || !got.SimulatedNow.Equal(simNow) || got.Reason != "window" {
		t.Fatalf("planner saw %+v", got)
	}
}

func TestHTTPClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, WithRetries(3), WithBackoff(time.Millisecond, 2*time.Millisecond))
	if err := c.Reoptimize(context.Background(), NewRequest(time.Now(), "test")); err != nil {
		t.Fatalf("Reoptimize: %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("calls = %d, want 3", calls.Load())
	}
}

func TestHTTPClientDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, WithRetries(3), WithBackoff(time.Millisecond, time.Millisecond))
	err := c.Reoptimize(context.Background(), NewRequest(time.Now(), "test"))
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusBadRequest {
		t.Fatalf("err = %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1", calls.Load())
	}
}

func TestHTTPClientGivesUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, WithRetries(1), WithBackoff(time.Millisecond, time.Millisecond))
	err := c.Reoptimize(context.Background(), NewRequest(time.Now(), "test"))
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusBadGateway {
		t.Fatalf("err = %v", err)
	}
}

func TestLogClient(t *testing.T) {
	if err := (LogClient{}).Reoptimize(context.Background(), NewRequest(time.Now(), "test")); err != nil {
		t.Fatalf("LogClient: %v", err)
	}
}
