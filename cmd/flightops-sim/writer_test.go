package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"flightops-sim/internal/config"
	"flightops-sim/internal/sim"
	"flightops-sim/internal/telemetry"
)

func TestNewWritersPrintOnly(t *testing.T) {
	cfg := &config.SimulationConfig{}
	cfg.Outputs.Greptime.Endpoint = "greptime.invalid"
	w, tui, cleanup, err := newWriters(cfg, writerOptions{printOnly: true})
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	cleanup()
	if tui != nil {
		t.Fatalf("unexpected TUI writer")
	}
	if _, ok := w.(*sim.JSONStdoutWriter); !ok {
		t.Fatalf("expected *sim.JSONStdoutWriter, got %T", w)
	}
}

func TestNewWritersNoEndpoint(t *testing.T) {
	w, _, cleanup, err := newWriters(&config.SimulationConfig{}, writerOptions{})
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	cleanup()
	if _, ok := w.(*sim.JSONStdoutWriter); !ok {
		t.Fatalf("expected *sim.JSONStdoutWriter, got %T", w)
	}
}

func TestNewWritersLogFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flights.jsonl")
	w, _, cleanup, err := newWriters(&config.SimulationConfig{}, writerOptions{printOnly: true, logFile: path})
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	defer cleanup()
	if _, ok := w.(*sim.MultiWriter); !ok {
		t.Fatalf("expected *sim.MultiWriter, got %T", w)
	}
	if err := w.Write(telemetry.FlightRow{RunID: "r1", Code: "LA2401", Timestamp: time.Now()}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	sw, ok := w.(sim.StateWriter)
	if !ok {
		t.Fatalf("writer does not implement StateWriter")
	}
	if err := sw.WriteState(telemetry.ClockStateRow{RunID: "r1", State: "running", Speed: 60, Timestamp: time.Now()}); err != nil {
		t.Fatalf("write state failed: %v", err)
	}
	for _, p := range []string{path, path + ".clock"} {
		info, err := os.Stat(p)
		if err != nil {
			t.Fatalf("stat %s: %v", p, err)
		}
		if info.Size() == 0 {
			t.Fatalf("expected %s to be non-empty", p)
		}
	}
}

func TestNewWritersConfigLogFile(t *testing.T) {
	cfg := &config.SimulationConfig{}
	cfg.Outputs.LogFile = filepath.Join(t.TempDir(), "from-config.jsonl")
	w, _, cleanup, err := newWriters(cfg, writerOptions{printOnly: true})
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	defer cleanup()
	if _, ok := w.(*sim.MultiWriter); !ok {
		t.Fatalf("expected *sim.MultiWriter, got %T", w)
	}
	if _, err := os.Stat(cfg.Outputs.LogFile); err != nil {
		t.Fatalf("log file not created: %v", err)
	}
}
