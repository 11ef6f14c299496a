// Package persist saves and restores simulation clock state so that a
// restarted process resumes simulated time exactly where it stopped.
package persist

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"flightops-sim/internal/simclock"
)

// ClockKey is the storage key holding the clock record.
const ClockKey = "flightops-sim/clock"

// ErrCorrupt reports a stored record that cannot be turned back into clock state.
var ErrCorrupt = errors.New("persist: corrupt clock record")

// Record is the persisted layout. Timestamps are absolute RFC 3339 values;
// nothing is stored relative to wall-clock time.
type Record struct {
	SimulatedNow    *time.Time `json:"simulatedNow"`
	Running         bool       `json:"running"`
	Paused          bool       `json:"paused,omitempty"`
	SpeedMultiplier float64    `json:"speedMultiplier"`
	LastTriggerTime *time.Time `json:"lastTriggerTime"`
	NextTriggerTime *time.Time `json:"nextTriggerTime"`
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func timeVal(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

// RecordOf converts a clock snapshot to its persisted form.
func RecordOf(s simclock.Snapshot) Record {
	return Record{
		SimulatedNow:    timePtr(s.Now),
		Running:         s.State == simclock.Running,
		Paused:          s.State == simclock.Paused,
		SpeedMultiplier: s.Speed,
		LastTriggerTime: timePtr(s.LastTrigger),
		NextTriggerTime: timePtr(s.NextTrigger),
	}
}

// Snapshot converts the record back to clock state.
func (r Record) Snapshot() (simclock.Snapshot, error) {
	if r.Running && r.Paused {
		return simclock.Snapshot{}, fmt.Errorf("%w: both running and paused", ErrCorrupt)
	}
	state := simclock.Stopped
	switch {
	case r.Running:
		state = simclock.Running
	case r.Paused:
		state = simclock.Paused
	}
	if state == simclock.Stopped {
		return simclock.Snapshot{}, nil
	}
	if r.SimulatedNow == nil {
		return simclock.Snapshot{}, fmt.Errorf("%w: missing simulatedNow", ErrCorrupt)
	}
	if !(r.SpeedMultiplier > 0) {
		return simclock.Snapshot{}, fmt.Errorf("%w: speedMultiplier %v", ErrCorrupt, r.SpeedMultiplier)
	}
	return simclock.Snapshot{
		State:       state,
		Now:         timeVal(r.SimulatedNow),
		Speed:       r.SpeedMultiplier,
		LastTrigger: timeVal(r.LastTriggerTime),
		NextTrigger: timeVal(r.NextTriggerTime),
	}, nil
}

// Serialize encodes clock state as a JSON record.
func Serialize(s simclock.Snapshot) ([]byte, error) {
	return json.Marshal(RecordOf(s))
}

// Restore decodes a record produced by Serialize. Unknown fields and
// trailing data are treated as corruption.
func Restore(blob []byte) (simclock.Snapshot, error) {
	dec := json.NewDecoder(bytes.NewReader(blob))
	dec.DisallowUnknownFields()
	var r Record
	if err := dec.Decode(&r); err != nil {
		return simclock.Snapshot{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if dec.More() {
		return simclock.Snapshot{}, fmt.Errorf("%w: trailing data", ErrCorrupt)
	}
	return r.Snapshot()
}
