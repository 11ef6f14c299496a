package sim

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"flightops-sim/internal/config"
	"flightops-sim/internal/telemetry"
)

type fakeProgram struct{ msgs []tea.Msg }

func (f *fakeProgram) Send(msg tea.Msg) { f.msgs = append(f.msgs, msg) }

func TestTUIWriterMessages(t *testing.T) {
	p := &fakeProgram{}
	w := &TUIWriter{program: p}
	ts := time.Unix(0, 0).UTC()
	if err := w.Write(telemetry.FlightRow{Code: "LA2401", Timestamp: ts}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if fm, ok := p.msgs[0].(flightMsg); !ok || len(fm.rows) != 1 {
		t.Fatalf("expected flightMsg, got %T", p.msgs[0])
	}
	if err := w.WriteState(telemetry.ClockStateRow{State: "running"}); err != nil {
		t.Fatalf("state: %v", err)
	}
	if _, ok := p.msgs[1].(stateMsg); !ok {
		t.Fatalf("expected stateMsg, got %T", p.msgs[1])
	}
	w.SetAdminStatus(true)
	if _, ok := p.msgs[2].(adminMsg); !ok {
		t.Fatalf("expected adminMsg, got %T", p.msgs[2])
	}
	if err := w.WriteTrigger(telemetry.TriggerRow{TriggerID: "t1", Reason: "window", SimTime: ts, Error: "down"}); err != nil {
		t.Fatalf("trigger: %v", err)
	}
	lm, ok := p.msgs[3].(logMsg)
	if !ok || !strings.Contains(lm.line, "REOPTIMIZE") || !strings.Contains(lm.line, "err=down") {
		t.Fatalf("expected trigger logMsg, got %#v", p.msgs[3])
	}
	if err := w.WriteRoamer(telemetry.RoamerRow{ID: "r1"}); err != nil {
		t.Fatalf("roamer: %v", err)
	}
	if _, ok := p.msgs[4].(roamerMsg); !ok {
		t.Fatalf("expected roamerMsg, got %T", p.msgs[4])
	}
}

func TestTUIModelFlightTable(t *testing.T) {
	m := newTUIModel(&config.SimulationConfig{})
	mi, _ := m.Update(flightMsg{rows: []telemetry.FlightRow{
		{Code: "LA2401", Phase: "airborne", Progress: 0.5, ETASeconds: 3600},
		{Code: "AV88", Phase: "scheduled"},
	}})
	m = mi.(tuiModel)
	rows := m.table.Rows()
	if len(rows) != 2 || rows[0][0] != "AV88" || rows[1][0] != "LA2401" {
		t.Fatalf("rows = %v", rows)
	}
	if rows[1][5] != "50%" || rows[1][7] != "1h0m0s" || rows[0][7] != "-" {
		t.Fatalf("row formatting = %v", rows[1])
	}

	mi, _ = m.Update(flightMsg{rows: []telemetry.FlightRow{{Code: "LA2401", Phase: "arrived", Progress: 1}}})
	m = mi.(tuiModel)
	if got := m.table.Rows(); len(got) != 2 || got[1][1] != "arrived" {
		t.Fatalf("update not applied: %v", got)
	}
}

func TestWrapToggle(t *testing.T) {
	m := newTUIModel(&config.SimulationConfig{})
	m.vp.Width = 20
	m.vp.Height = 5
	mi, _ := m.Update(logMsg{line: "one two three four five six"})
	m = mi.(tuiModel)
	if strings.Contains(m.renderLogs(), "\n") {
		t.Fatalf("expected single line before wrap")
	}
	mi, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'w'}})
	m = mi.(tuiModel)
	if !m.wrap {
		t.Fatalf("wrap not toggled")
	}
	if !strings.Contains(m.renderLogs(), "\n") {
		t.Fatalf("expected wrapped content")
	}
}

func TestScrollToggle(t *testing.T) {
	m := newTUIModel(&config.SimulationConfig{})
	m.vp.Height = 1
	m.vp.Width = 20
	mi, _ := m.Update(logMsg{line: "l1"})
	m = mi.(tuiModel)
	mi, _ = m.Update(logMsg{line: "l2"})
	m = mi.(tuiModel)
	if m.vp.YOffset != 1 {
		t.Fatalf("expected YOffset 1, got %d", m.vp.YOffset)
	}
	mi, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'s'}})
	m = mi.(tuiModel)
	if m.autoscroll {
		t.Fatalf("autoscroll should be off")
	}
	mi, _ = m.Update(logMsg{line: "l3"})
	m = mi.(tuiModel)
	if m.vp.YOffset != 1 {
		t.Fatalf("expected YOffset unchanged, got %d", m.vp.YOffset)
	}
	mi, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m = mi.(tuiModel)
	if m.vp.YOffset != 0 {
		t.Fatalf("expected YOffset 0 after scrolling up, got %d", m.vp.YOffset)
	}
	mi, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'s'}})
	m = mi.(tuiModel)
	if !m.autoscroll {
		t.Fatalf("autoscroll should be on")
	}
	if want := len(m.logs) - m.vp.Height; m.vp.YOffset != want {
		t.Fatalf("expected YOffset %d, got %d", want, m.vp.YOffset)
	}
}

func TestControlKeys(t *testing.T) {
	m := newTUIModel(&config.SimulationConfig{})
	got := make(chan string, 4)
	mi, _ := m.Update(setControlMsg{fn: func(a string) { got <- a }})
	m = mi.(tuiModel)

	keys := map[rune]string{'p': ControlPauseResume, '+': ControlFaster, '-': ControlSlower, 'r': ControlRetrigger}
	for k, want := range keys {
		mi, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{k}})
		m = mi.(tuiModel)
		select {
		case a := <-got:
			if a != want {
				t.Fatalf("key %q sent %q, want %q", k, a, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("key %q sent nothing", k)
		}
	}
}

func TestHeaderShowsClock(t *testing.T) {
	m := newTUIModel(&config.SimulationConfig{})
	if !strings.Contains(m.renderHeader(), "waiting") {
		t.Fatalf("expected waiting header")
	}
	mi, _ := m.Update(stateMsg{telemetry.ClockStateRow{State: "paused", Speed: 60, SimTime: time.Date(2025, 1, 1, 6, 0, 0, 0, time.UTC)}})
	m = mi.(tuiModel)
	h := m.renderHeader()
	if !strings.Contains(h, "PAUSED") || !strings.Contains(h, "60x") || !strings.Contains(h, "2025-01-01 06:00:00") {
		t.Fatalf("header = %q", h)
	}
}

func TestTUILogWriterSplitsLines(t *testing.T) {
	p := &fakeProgram{}
	w := &TUIWriter{program: p}
	n, err := w.LogWriter().Write([]byte("level=INFO msg=one\nlevel=WARN msg=two\n"))
	if err != nil || n == 0 {
		t.Fatalf("write = %d, %v", n, err)
	}
	if len(p.msgs) != 2 {
		t.Fatalf("expected 2 log messages, got %d", len(p.msgs))
	}
	if lm, ok := p.msgs[1].(logMsg); !ok || lm.line != "level=WARN msg=two" {
		t.Fatalf("second message = %#v", p.msgs[1])
	}
}
