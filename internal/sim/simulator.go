// Simulator driving the clock, flight positions and free-roaming entities
package sim

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"flightops-sim/internal/flights"
	"flightops-sim/internal/geo"
	"flightops-sim/internal/kinematics"
	"flightops-sim/internal/persist"
	"flightops-sim/internal/planner"
	"flightops-sim/internal/simclock"
	"flightops-sim/internal/telemetry"
)

// ErrNoPersistence is returned by Save and Restore when no store is wired.
var ErrNoPersistence = errors.New("sim: persistence not configured")

// Simulator owns the process-wide clock and everything derived from it.
// Consumers read positions through it and mutate the clock only through
// its actions.
type Simulator struct {
	runID        string
	clock        *simclock.Clock
	tracker      *flights.Tracker
	gen          *telemetry.Generator
	writer       FlightWriter
	planner      planner.Client
	bridge       *persist.Bridge
	observer     Observer
	tickInterval time.Duration
	saveInterval time.Duration
	now          func() time.Time

	mu       sync.Mutex
	roamers  []kinematics.Entity
	lastWall time.Time
	lastSim  time.Time
	lastSave time.Time
	triggers []telemetry.TriggerRow
	orders   int

	// planner calls started by the tick loop
	inflight sync.WaitGroup
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithRunID tags every output row with id instead of a random one.
func WithRunID(id string) Option {
	return func(s *Simulator) {
		if id != "" {
			s.runID = id
		}
	}
}

// WithTickInterval sets the wall-clock tick period.
func WithTickInterval(d time.Duration) Option {
	return func(s *Simulator) {
		if d > 0 {
			s.tickInterval = d
		}
	}
}

// WithPlanner sets the re-optimization client.
func WithPlanner(p planner.Client) Option {
	return func(s *Simulator) {
		if p != nil {
			s.planner = p
		}
	}
}

// WithPersistence saves the clock through b every interval and on shutdown.
// A zero interval only saves on shutdown.
func WithPersistence(b *persist.Bridge, interval time.Duration) Option {
	return func(s *Simulator) {
		s.bridge = b
		s.saveInterval = interval
	}
}

// WithObserver registers an event observer.
func WithObserver(o Observer) Option {
	return func(s *Simulator) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithWallClock replaces time.Now for tick measurement and row stamps.
func WithWallClock(now func() time.Time) Option {
	return func(s *Simulator) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSimulator wires a simulator around clock. writer may be nil to
// discard output.
func NewSimulator(clock *simclock.Clock, tracker *flights.Tracker, roamers []kinematics.Entity, writer FlightWriter, opts ...Option) *Simulator {
	s := &Simulator{
		runID:        uuid.New().String(),
		clock:        clock,
		tracker:      tracker,
		writer:       writer,
		planner:      planner.LogClient{},
		observer:     nopObserver{},
		tickInterval: time.Second,
		now:          time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.tracker == nil {
		s.tracker = flights.NewTracker(nil)
	}
	s.roamers = append([]kinematics.Entity(nil), roamers...)
	s.gen = telemetry.NewGenerator(s.runID).WithClock(s.now)
	return s
}

// RunID identifies this simulator run in output rows.
func (s *Simulator) RunID() string { return s.runID }

// Clock returns the shared simulation clock.
func (s *Simulator) Clock() *simclock.Clock { return s.clock }

// Flights returns the flight schedule tracker.
func (s *Simulator) Flights() *flights.Tracker { return s.tracker }

// Start starts the clock at initial and resets roamer integration.
func (s *Simulator) Start(initial time.Time, speed float64) error {
	if err := s.clock.Start(initial, speed); err != nil {
		return err
	}
	s.mu.Lock()
	s.lastSim = initial
	s.mu.Unlock()
	return nil
}

// FlightPositions locates every tracked flight at simulated now.
func (s *Simulator) FlightPositions() []flights.Position {
	return s.tracker.Positions(s.clock.Now())
}

// FlightRoute returns the display path for one flight.
func (s *Simulator) FlightRoute(code string, segments int) ([]geo.Point, error) {
	f, err := s.tracker.Get(code)
	if err != nil {
		return nil, err
	}
	return flights.Route(f, segments), nil
}

// Roamers returns a copy of the free-roaming entities.
func (s *Simulator) Roamers() []kinematics.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]kinematics.Entity, len(s.roamers))
	copy(out, s.roamers)
	return out
}

// SetRoamerStatus changes one entity's status, e.g. to land it.
func (s *Simulator) SetRoamerStatus(id string, st kinematics.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.roamers {
		if s.roamers[i].ID == id {
			s.roamers[i].Status = st
			return nil
		}
	}
	return fmt.Errorf("unknown roamer %q", id)
}

// OrderReceipt reports what an order arrival did to the trigger schedule.
type OrderReceipt struct {
	OrderID     string    `json:"order_id"`
	OrderTime   time.Time `json:"order_time"`
	InWindow    bool      `json:"in_window"`
	NextTrigger time.Time `json:"next_trigger,omitempty"`
}

// OrderArrived registers an incoming order. A zero orderTime means the
// order arrived at simulated now.
func (s *Simulator) OrderArrived(id string, orderTime time.Time) (OrderReceipt, error) {
	if s.clock.State() == simclock.Stopped {
		return OrderReceipt{}, simclock.ErrStopped
	}
	if id == "" {
		id = uuid.New().String()
	}
	if orderTime.IsZero() {
		orderTime = s.clock.Now()
	}
	pulled := s.clock.OnOrderArrival(orderTime)
	s.mu.Lock()
	s.orders++
	s.mu.Unlock()
	return OrderReceipt{
		OrderID:     id,
		OrderTime:   orderTime,
		InWindow:    pulled,
		NextTrigger: s.clock.Snapshot().NextTrigger,
	}, nil
}

// Orders returns how many orders arrived while the clock was active.
func (s *Simulator) Orders() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orders
}

// Trigger opens a new window and calls the planner. The window rolls even
// when the planner call fails; the failure is returned and recorded.
func (s *Simulator) Trigger(ctx context.Context, reason string) (telemetry.TriggerRow, error) {
	at, next, err := s.clock.Retrigger()
	if err != nil {
		return telemetry.TriggerRow{}, err
	}
	return s.reoptimize(ctx, reason, at, next)
}

// reoptimize calls the planner for a window seeded at simNow and records
// the outcome.
func (s *Simulator) reoptimize(ctx context.Context, reason string, simNow, next time.Time) (telemetry.TriggerRow, error) {
	req := planner.NewRequest(simNow, reason)
	callErr := s.planner.Reoptimize(ctx, req)
	row := s.gen.Trigger(req.TriggerID, reason, simNow, next, callErr)
	s.recordTrigger(row)
	if tw, ok := s.writer.(TriggerWriter); ok {
		if err := tw.WriteTrigger(row); err != nil && callErr == nil {
			return row, fmt.Errorf("write trigger: %w", err)
		}
	}
	return row, callErr
}

// Save persists the clock.
func (s *Simulator) Save(ctx context.Context) error {
	if s.bridge == nil {
		return ErrNoPersistence
	}
	err := s.bridge.Save(ctx, s.clock)
	s.observer.ObserveSave(err)
	return err
}

// Restore loads the persisted clock. On failure the clock is stopped.
func (s *Simulator) Restore(ctx context.Context) (simclock.Snapshot, error) {
	if s.bridge == nil {
		return simclock.Snapshot{}, ErrNoPersistence
	}
	snap, err := s.bridge.Load(ctx, s.clock)
	if err != nil {
		return snap, err
	}
	s.mu.Lock()
	s.lastSim = snap.Now
	s.mu.Unlock()
	return snap, nil
}
