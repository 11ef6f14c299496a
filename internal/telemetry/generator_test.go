package telemetry

import (
	"errors"
	"testing"
	"time"

	"flightops-sim/internal/flights"
	"flightops-sim/internal/geo"
	"flightops-sim/internal/kinematics"
	"flightops-sim/internal/simclock"
)

var wall = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func fixedGen() *Generator {
	return NewGenerator("run-1").WithClock(func() time.Time { return wall })
}

func TestGeneratorFlight(t *testing.T) {
	simNow := time.Date(2025, 1, 1, 1, 0, 0, 0, time.UTC)
	pos := flights.Position{
		Code:        "LA2401",
		Phase:       flights.PhaseAirborne,
		Progress:    0.5,
		Point:       geo.Point{Lat: 7, Lng: -79},
		BearingDeg:  355,
		RemainingNM: 1100,
		ETA:         90 * time.Minute,
		At:          simNow,
	}
	row := fixedGen().Flight(pos)
	if row.RunID != "run-1" || row.Code != "LA2401" || row.Phase != "airborne" {
		t.Fatalf("unexpected ids %+v", row)
	}
	if row.Lat != 7 || row.Lng != -79 || row.ETASeconds != 5400 {
		t.Fatalf("unexpected fields %+v", row)
	}
	if !row.SimTime.Equal(simNow) || !row.Timestamp.Equal(wall) {
		t.Fatalf("timestamps = %v / %v", row.SimTime, row.Timestamp)
	}
}

func TestGeneratorRoamer(t *testing.T) {
	e := kinematics.NewEntity("r1", geo.Point{Lat: 1, Lng: 2}, 90, nil)
	row := fixedGen().Roamer(e, wall)
	if row.ID != "r1" || row.SpeedKnots != kinematics.DefaultSpeedKnots || row.Status != string(kinematics.StatusEnRoute) {
		t.Fatalf("unexpected row %+v", row)
	}
}

func TestGeneratorTrigger(t *testing.T) {
	row := fixedGen().Trigger("t1", TriggerWindow, wall, wall.Add(8*time.Minute), errors.New("boom"))
	if row.Error != "boom" || row.Reason != TriggerWindow {
		t.Fatalf("unexpected row %+v", row)
	}
	ok := fixedGen().Trigger("t2", TriggerManual, wall, wall, nil)
	if ok.Error != "" {
		t.Fatalf("unexpected error field %q", ok.Error)
	}
}

func TestGeneratorClockState(t *testing.T) {
	c := simclock.New(simclock.DefaultWindow())
	if err := c.Start(wall, 2); err != nil {
		t.Fatal(err)
	}
	row := fixedGen().ClockState(c.Snapshot(), 3)
	if row.State != "running" || row.Speed != 2 || row.Airborne != 3 {
		t.Fatalf("unexpected row %+v", row)
	}
	if !row.NextTrigger.Equal(wall.Add(8 * time.Minute)) {
		t.Fatalf("next trigger = %v", row.NextTrigger)
	}
}

func TestTableNames(t *testing.T) {
	if (FlightRow{}).TableName() == "" || (TriggerRow{}).TableName() == "" {
		t.Fatalf("empty table name")
	}
}
