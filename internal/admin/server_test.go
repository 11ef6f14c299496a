package admin

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"flightops-sim/internal/flights"
	"flightops-sim/internal/geo"
	"flightops-sim/internal/kinematics"
	"flightops-sim/internal/planner"
	"flightops-sim/internal/sim"
	"flightops-sim/internal/simclock"
	"flightops-sim/internal/telemetry"
)

var t0 = time.Date(2025, 3, 1, 6, 0, 0, 0, time.UTC)

type stubPlanner struct{ err error }

func (p stubPlanner) Reoptimize(context.Context, planner.Request) error { return p.err }

func newTestServer(t *testing.T, p planner.Client) (*Server, *sim.Simulator, *Metrics) {
	t.Helper()
	m, err := NewMetrics(nil)
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	tracker := flights.NewTracker([]flights.Flight{{
		Code:        "LA2401",
		Origin:      geo.Point{Lat: 4.70, Lng: -74.14},
		Destination: geo.Point{Lat: 6.17, Lng: -75.43},
		Departure:   t0,
		Arrival:     t0.Add(time.Hour),
	}})
	s := sim.NewSimulator(simclock.New(simclock.DefaultWindow()), tracker,
		[]kinematics.Entity{kinematics.NewEntity("r1", geo.Point{}, 90, nil)}, nil,
		sim.WithPlanner(p), sim.WithObserver(m))
	return NewServer(s, m), s, m
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func decodeClock(t *testing.T, w *httptest.ResponseRecorder) clockView {
	t.Helper()
	var v clockView
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("decode clock: %v", err)
	}
	return v
}

func TestClockLifecycle(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)

	w := do(t, srv, http.MethodGet, "/clock", "")
	if v := decodeClock(t, w); v.State != "stopped" || v.SimulatedNow != nil || v.UntilTrigger != nil {
		t.Fatalf("initial clock = %+v", v)
	}

	w = do(t, srv, http.MethodPost, "/clock/start", `{"start":"2025-03-01T06:00:00Z","speed":60}`)
	if w.Code != http.StatusOK {
		t.Fatalf("start status = %d body=%s", w.Code, w.Body)
	}
	v := decodeClock(t, w)
	if v.State != "running" || v.Speed != 60 || !v.SimulatedNow.Equal(t0) {
		t.Fatalf("started clock = %+v", v)
	}
	if v.UntilTrigger == nil || *v.UntilTrigger != (8 * time.Minute).Seconds() {
		t.Fatalf("until trigger = %v", v.UntilTrigger)
	}

	if w = do(t, srv, http.MethodPost, "/clock/start", `{"speed":2}`); w.Code != http.StatusConflict {
		t.Fatalf("second start status = %d", w.Code)
	}
	if w = do(t, srv, http.MethodPost, "/clock/pause", ""); decodeClock(t, w).State != "paused" {
		t.Fatalf("pause failed")
	}
	if w = do(t, srv, http.MethodPost, "/clock/advance", `{"duration":"15m"}`); !decodeClock(t, w).SimulatedNow.Equal(t0.Add(15 * time.Minute)) {
		t.Fatalf("advance failed")
	}
	if w = do(t, srv, http.MethodPost, "/clock/resume", ""); decodeClock(t, w).State != "running" {
		t.Fatalf("resume failed")
	}
	if w = do(t, srv, http.MethodPost, "/clock/speed", `{"speed":-1}`); w.Code != http.StatusBadRequest {
		t.Fatalf("negative speed status = %d", w.Code)
	}
	if w = do(t, srv, http.MethodPost, "/clock/speed", `{"speed":120}`); decodeClock(t, w).Speed != 120 {
		t.Fatalf("speed not applied")
	}
	if w = do(t, srv, http.MethodPost, "/clock/time", `{"time":"2025-03-01T05:00:00Z"}`); !decodeClock(t, w).SimulatedNow.Equal(t0.Add(-time.Hour)) {
		t.Fatalf("set time failed")
	}
	if w = do(t, srv, http.MethodPost, "/clock/stop", ""); decodeClock(t, w).State != "stopped" {
		t.Fatalf("stop failed")
	}
	if w = do(t, srv, http.MethodPost, "/clock/pause", ""); w.Code != http.StatusConflict {
		t.Fatalf("pause stopped clock status = %d", w.Code)
	}
}

func TestStartDefaultsToWallNow(t *testing.T) {
	srv, s, _ := newTestServer(t, nil)
	srv.now = func() time.Time { return t0 }
	w := do(t, srv, http.MethodPost, "/clock/start", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if s.Clock().Speed() != 1 || !s.Clock().Now().Equal(t0) {
		t.Fatalf("clock = %+v", s.Clock().Snapshot())
	}
}

func TestOrdersPullTrigger(t *testing.T) {
	srv, s, _ := newTestServer(t, nil)
	if w := do(t, srv, http.MethodPost, "/orders", `{"order_id":"o1"}`); w.Code != http.StatusConflict {
		t.Fatalf("order on stopped clock status = %d", w.Code)
	}
	if err := s.Start(t0, 60); err != nil {
		t.Fatal(err)
	}
	w := do(t, srv, http.MethodPost, "/orders", `{"order_id":"o1"}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d", w.Code)
	}
	var rc sim.OrderReceipt
	if err := json.NewDecoder(w.Body).Decode(&rc); err != nil {
		t.Fatal(err)
	}
	if !rc.InWindow || !rc.NextTrigger.Equal(t0.Add(2*time.Minute)) || rc.OrderID != "o1" {
		t.Fatalf("receipt = %+v", rc)
	}
}

func TestRetrigger(t *testing.T) {
	srv, s, _ := newTestServer(t, stubPlanner{err: errors.New("planner down")})
	if w := do(t, srv, http.MethodPost, "/clock/retrigger", ""); w.Code != http.StatusConflict {
		t.Fatalf("retrigger stopped status = %d", w.Code)
	}
	if err := s.Start(t0, 1); err != nil {
		t.Fatal(err)
	}
	w := do(t, srv, http.MethodPost, "/clock/retrigger", "")
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d", w.Code)
	}
	var row telemetry.TriggerRow
	if err := json.NewDecoder(w.Body).Decode(&row); err != nil {
		t.Fatal(err)
	}
	if row.Reason != telemetry.TriggerManual || row.Error != "planner down" {
		t.Fatalf("row = %+v", row)
	}

	w = do(t, srv, http.MethodGet, "/triggers", "")
	var rows []telemetry.TriggerRow
	if err := json.NewDecoder(w.Body).Decode(&rows); err != nil || len(rows) != 1 {
		t.Fatalf("triggers = %v err=%v", rows, err)
	}

	w = do(t, srv, http.MethodGet, "/metrics", "")
	if !strings.Contains(w.Body.String(), `flightops_reoptimizations_total{reason="manual",result="error"} 1`) {
		t.Fatalf("metrics missing trigger counter:\n%s", w.Body)
	}
}

func TestFlightsAndRoutes(t *testing.T) {
	srv, s, _ := newTestServer(t, nil)
	if err := s.Start(t0.Add(30*time.Minute), 1); err != nil {
		t.Fatal(err)
	}

	w := do(t, srv, http.MethodGet, "/flights", "")
	var ps []flights.Position
	if err := json.NewDecoder(w.Body).Decode(&ps); err != nil {
		t.Fatal(err)
	}
	if len(ps) != 1 || ps[0].Phase != flights.PhaseAirborne {
		t.Fatalf("positions = %+v", ps)
	}
	w = do(t, srv, http.MethodGet, "/flights?phase=arrived", "")
	ps = nil
	if err := json.NewDecoder(w.Body).Decode(&ps); err != nil || len(ps) != 0 {
		t.Fatalf("filtered = %+v err=%v", ps, err)
	}

	w = do(t, srv, http.MethodGet, "/flights/LA2401/route?segments=4", "")
	var pts []geo.Point
	if err := json.NewDecoder(w.Body).Decode(&pts); err != nil || len(pts) != 5 {
		t.Fatalf("route = %v err=%v", pts, err)
	}
	if w = do(t, srv, http.MethodGet, "/flights/XX1/route", ""); w.Code != http.StatusNotFound {
		t.Fatalf("unknown flight status = %d", w.Code)
	}
	if w = do(t, srv, http.MethodGet, "/flights/LA2401/route?segments=0", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("bad segments status = %d", w.Code)
	}

	w = do(t, srv, http.MethodGet, "/roamers", "")
	var es []kinematics.Entity
	if err := json.NewDecoder(w.Body).Decode(&es); err != nil || len(es) != 1 || es[0].SpeedKnots != kinematics.DefaultSpeedKnots {
		t.Fatalf("roamers = %+v err=%v", es, err)
	}
}

func TestMetricsObserveTick(t *testing.T) {
	m, err := NewMetrics(nil)
	if err != nil {
		t.Fatal(err)
	}
	m.ObserveTick(simclock.Snapshot{State: simclock.Paused, Now: t0, Speed: 30}, 4)
	m.ObserveSave(nil)
	m.ObserveSave(errors.New("disk full"))

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := w.Body.String()
	for _, want := range []string{
		"flightops_clock_state 2",
		"flightops_clock_speed 30",
		"flightops_flights_airborne 4",
		`flightops_state_saves_total{result="ok"} 1`,
		`flightops_state_saves_total{result="error"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics missing %q:\n%s", want, body)
		}
	}
}

func TestHealth(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)
	if w := do(t, srv, http.MethodGet, "/health", ""); w.Code != http.StatusOK || w.Body.String() != "ok" {
		t.Fatalf("health = %d %q", w.Code, w.Body)
	}
}
