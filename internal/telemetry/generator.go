package telemetry

import (
	"time"

	"flightops-sim/internal/flights"
	"flightops-sim/internal/kinematics"
	"flightops-sim/internal/simclock"
)

// Generator turns simulation state into output rows stamped with a run id
// and the wall-clock time of emission.
type Generator struct {
	RunID string
	now   func() time.Time
}

// NewGenerator creates a generator for one simulator run.
func NewGenerator(runID string) *Generator {
	return &Generator{RunID: runID, now: time.Now}
}

// WithClock replaces the wall-clock source.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	if now != nil {
		g.now = now
	}
	return g
}

// Flight converts a derived flight position.
func (g *Generator) Flight(p flights.Position) FlightRow {
	return FlightRow{
		RunID:       g.RunID,
		Code:        p.Code,
		Phase:       string(p.Phase),
		Lat:         p.Point.Lat,
		Lng:         p.Point.Lng,
		BearingDeg:  p.BearingDeg,
		Progress:    p.Progress,
		RemainingNM: p.RemainingNM,
		ETASeconds:  p.ETA.Seconds(),
		SimTime:     p.At.UTC(),
		Timestamp:   g.now().UTC(),
	}
}

// Roamer converts a free-roaming entity observed at simulated time simNow.
func (g *Generator) Roamer(e kinematics.Entity, simNow time.Time) RoamerRow {
	return RoamerRow{
		RunID:      g.RunID,
		ID:         e.ID,
		Lat:        e.Position.Lat,
		Lng:        e.Position.Lng,
		HeadingDeg: e.HeadingDeg,
		SpeedKnots: e.SpeedKnots,
		Status:     string(e.Status),
		SimTime:    simNow.UTC(),
		Timestamp:  g.now().UTC(),
	}
}

// Trigger records a planner call. A nil err means the call succeeded.
func (g *Generator) Trigger(id, reason string, simNow, next time.Time, err error) TriggerRow {
	row := TriggerRow{
		RunID:       g.RunID,
		TriggerID:   id,
		Reason:      reason,
		SimTime:     simNow.UTC(),
		NextTrigger: next.UTC(),
		Timestamp:   g.now().UTC(),
	}
	if err != nil {
		row.Error = err.Error()
	}
	return row
}

// ClockState converts a clock snapshot.
func (g *Generator) ClockState(s simclock.Snapshot, airborne int) ClockStateRow {
	return ClockStateRow{
		RunID:       g.RunID,
		State:       s.State.String(),
		SimTime:     s.Now.UTC(),
		Speed:       s.Speed,
		NextTrigger: s.NextTrigger.UTC(),
		Airborne:    airborne,
		Timestamp:   g.now().UTC(),
	}
}
