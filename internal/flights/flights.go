// Package flights derives live positions of scheduled flights from
// simulated time. Schedules come from outside and are never modified here.
package flights

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"flightops-sim/internal/geo"
)

// Phase describes where a flight is relative to its schedule.
type Phase string

// Flight phases.
const (
	PhaseScheduled Phase = "scheduled"
	PhaseAirborne  Phase = "airborne"
	PhaseArrived   Phase = "arrived"
)

// ErrUnknownFlight is returned when a flight code is not tracked.
var ErrUnknownFlight = errors.New("flights: unknown flight")

// Flight is an externally supplied schedule between two fixed points.
type Flight struct {
	Code        string    `json:"code" yaml:"code"`
	Origin      geo.Point `json:"origin" yaml:"origin"`
	Destination geo.Point `json:"destination" yaml:"destination"`
	Departure   time.Time `json:"departure" yaml:"departure"`
	Arrival     time.Time `json:"arrival" yaml:"arrival"`
}

// Valid reports whether the schedule is usable for progress math.
func (f Flight) Valid() bool {
	return f.Code != "" && f.Departure.Before(f.Arrival)
}

// Position is the derived state of a flight at one simulated instant.
type Position struct {
	Code        string        `json:"code"`
	Phase       Phase         `json:"phase"`
	Progress    float64       `json:"progress"`
	Point       geo.Point     `json:"point"`
	BearingDeg  float64       `json:"bearing_deg"`
	RemainingNM float64       `json:"remaining_nm"`
	ETA         time.Duration `json:"eta"`
	At          time.Time     `json:"at"`
}

// Locate computes where f is at simulated time now. Malformed schedules
// (arrival not after departure) stay at the origin as not yet departed.
func Locate(f Flight, now time.Time) Position {
	progress := geo.LinearProgress(f.Departure, f.Arrival, now)
	pt := geo.InterpolateGreatCircle(f.Origin, f.Destination, progress)

	pos := Position{
		Code:     f.Code,
		Progress: progress,
		Point:    pt,
		At:       now,
	}
	switch {
	case !f.Valid() || progress <= 0:
		pos.Phase = PhaseScheduled
		pos.BearingDeg = geo.Bearing(f.Origin, f.Destination)
		pos.RemainingNM = geo.DistanceNM(f.Origin, f.Destination)
		if f.Valid() {
			pos.ETA = f.Arrival.Sub(now)
		}
	case progress >= 1:
		pos.Phase = PhaseArrived
		pos.BearingDeg = geo.FinalBearing(f.Origin, f.Destination)
	default:
		pos.Phase = PhaseAirborne
		pos.BearingDeg = geo.Bearing(pt, f.Destination)
		pos.RemainingNM = geo.DistanceNM(pt, f.Destination)
		pos.ETA = f.Arrival.Sub(now)
	}
	return pos
}

// Route returns a curved display path for f.
func Route(f Flight, segments int) []geo.Point {
	return geo.CurvedPath(f.Origin, f.Destination, segments)
}

// Tracker holds the current flight schedules keyed by code.
type Tracker struct {
	mu      sync.RWMutex
	flights map[string]Flight
}

// NewTracker returns a tracker seeded with fs.
func NewTracker(fs []Flight) *Tracker {
	t := &Tracker{flights: make(map[string]Flight, len(fs))}
	for _, f := range fs {
		f.Code = normalizeCode(f.Code)
		t.flights[f.Code] = f
	}
	return t
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Upsert adds or replaces a flight schedule.
func (t *Tracker) Upsert(f Flight) error {
	if strings.TrimSpace(f.Code) == "" {
		return fmt.Errorf("upsert flight: empty code")
	}
	f.Code = normalizeCode(f.Code)
	t.mu.Lock()
	defer t.mu.Unlock()
	t.flights[f.Code] = f
	return nil
}

// Remove drops a flight by code.
func (t *Tracker) Remove(code string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := normalizeCode(code)
	if _, ok := t.flights[key]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFlight, code)
	}
	delete(t.flights, key)
	return nil
}

// Get returns the schedule for code.
func (t *Tracker) Get(code string) (Flight, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	f, ok := t.flights[normalizeCode(code)]
	if !ok {
		return Flight{}, fmt.Errorf("%w: %s", ErrUnknownFlight, code)
	}
	return f, nil
}

// Len returns the number of tracked flights.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.flights)
}

// Positions returns every flight located at now, ordered by code.
func (t *Tracker) Positions(now time.Time) []Position {
	t.mu.RLock()
	out := make([]Position, 0, len(t.flights))
	for _, f := range t.flights {
		out = append(out, Locate(f, now))
	}
	t.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Airborne returns only flights currently between departure and arrival.
func (t *Tracker) Airborne(now time.Time) []Position {
	var out []Position
	for _, p := range t.Positions(now) {
		if p.Phase == PhaseAirborne {
			out = append(out, p)
		}
	}
	return out
}
