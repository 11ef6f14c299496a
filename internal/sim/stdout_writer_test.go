package sim

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"flightops-sim/internal/config"
	"flightops-sim/internal/telemetry"
)

func TestJSONStdoutWriterKinds(t *testing.T) {
	var buf bytes.Buffer
	w := &JSONStdoutWriter{out: &buf}
	ts := time.Unix(0, 0).UTC()
	if err := w.WriteBatch([]telemetry.FlightRow{{Code: "LA2401", Timestamp: ts}}); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteRoamer(telemetry.RoamerRow{ID: "r1", Timestamp: ts}); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteTrigger(telemetry.TriggerRow{TriggerID: "t1", Timestamp: ts}); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteState(telemetry.ClockStateRow{State: "running", Timestamp: ts}); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	want := []string{"flight", "roamer", "trigger", "clock"}
	if len(lines) != len(want) {
		t.Fatalf("lines = %d", len(lines))
	}
	for i, line := range lines {
		var got struct {
			Kind string          `json:"kind"`
			Row  json.RawMessage `json:"row"`
		}
		if err := json.Unmarshal([]byte(line), &got); err != nil {
			t.Fatalf("line %d: %v", i, err)
		}
		if got.Kind != want[i] {
			t.Fatalf("line %d kind = %s, want %s", i, got.Kind, want[i])
		}
	}
}

func TestColorStdoutWriterOverviewOnce(t *testing.T) {
	var buf bytes.Buffer
	cfg := &config.SimulationConfig{Flights: []config.FlightConfig{{Code: "AV88"}}}
	cfg.Clock.Speed = 60
	w := &ColorStdoutWriter{cfg: cfg, out: &buf}
	ts := time.Unix(0, 0).UTC()

	if err := w.Write(telemetry.FlightRow{Code: "AV88", Phase: "airborne", SimTime: ts}); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteTrigger(telemetry.TriggerRow{Reason: "window", Error: "boom", SimTime: ts}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if strings.Count(out, "Simulation Configuration:") != 1 {
		t.Fatalf("overview printed %d times", strings.Count(out, "Simulation Configuration:"))
	}
	if !strings.Contains(out, "flight=AV88") || !strings.Contains(out, "err=boom") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestNewStdoutWriterSelection(t *testing.T) {
	if _, ok := NewStdoutWriter(nil, true).(*ColorStdoutWriter); !ok {
		t.Fatalf("expected color writer for terminals")
	}
	if _, ok := NewStdoutWriter(nil, false).(*JSONStdoutWriter); !ok {
		t.Fatalf("expected JSON writer otherwise")
	}
}
