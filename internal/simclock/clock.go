// Package simclock owns simulated time: a passive clock that advances only
// when its driver reports elapsed wall-clock time, plus the re-optimization
// window layered on top of it.
package simclock

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
)

// State is the lifecycle state of a Clock.
type State int

const (
	// Stopped clocks hold no time and no window.
	Stopped State = iota
	// Running clocks advance on Tick.
	Running
	// Paused clocks keep their time but ignore Tick.
	Paused
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Running:
		return "running"
	case Paused:
		return "paused"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Errors returned by clock actions. Except for Restore, an action that
// returns one of these leaves the clock state untouched.
var (
	ErrZeroTime        = errors.New("simclock: initial time must be set")
	ErrStopped         = errors.New("simclock: clock is stopped")
	ErrAlreadyStarted  = errors.New("simclock: clock already started")
	ErrInvalidSpeed    = errors.New("simclock: speed multiplier must be positive and finite")
	ErrNegativeElapsed = errors.New("simclock: elapsed time must not be negative")
	ErrInvalidSnapshot = errors.New("simclock: invalid snapshot")
)

// Snapshot is a copy of the clock and window state. Zero times mean unset.
type Snapshot struct {
	State       State
	Now         time.Time
	Speed       float64
	LastTrigger time.Time
	NextTrigger time.Time
}

// Running reports whether the snapshot was taken from a running clock.
func (s Snapshot) Running() bool { return s.State == Running }

// Clock is the simulated clock. The zero value is not usable; call New.
type Clock struct {
	mu     sync.Mutex
	window Window

	state State
	now   time.Time
	speed float64
	// sub-nanosecond remainder carried between ticks
	carry float64

	lastTrigger time.Time
	nextTrigger time.Time
}

// New returns a stopped clock using window w. Zero window fields take the
// package defaults.
func New(w Window) *Clock {
	return &Clock{window: w.withDefaults()}
}

func validSpeed(m float64) bool {
	return m > 0 && !math.IsInf(m, 0) && !math.IsNaN(m)
}

// Start moves a stopped clock to Running at initial and seeds the window.
func (c *Clock) Start(initial time.Time, speed float64) error {
	if !validSpeed(speed) {
		return fmt.Errorf("start at speed %v: %w", speed, ErrInvalidSpeed)
	}
	if initial.IsZero() {
		return ErrZeroTime
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Stopped {
		return ErrAlreadyStarted
	}
	c.state = Running
	c.now = initial
	c.speed = speed
	c.carry = 0
	c.seedWindowLocked(initial)
	return nil
}

// maxStep is the largest advance a single Tick applies. Larger products of
// elapsed time and speed saturate here.
const maxStep = time.Duration(math.MaxInt64)

// Tick advances simulated time by elapsed wall time × speed. Ticks on a
// clock that is not running are ignored.
func (c *Clock) Tick(elapsed time.Duration) error {
	if elapsed < 0 {
		return fmt.Errorf("tick %s: %w", elapsed, ErrNegativeElapsed)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Running {
		return nil
	}
	total := float64(elapsed)*c.speed + c.carry
	// float64(MaxInt64) rounds up to 2^63, which no Duration can hold
	if total >= float64(maxStep) {
		c.carry = 0
		c.now = c.now.Add(maxStep)
		return nil
	}
	whole := math.Trunc(total)
	c.carry = total - whole
	c.now = c.now.Add(time.Duration(whole))
	return nil
}

// SetSpeed changes the multiplier of a running or paused clock.
func (c *Clock) SetSpeed(m float64) error {
	if !validSpeed(m) {
		return fmt.Errorf("set speed %v: %w", m, ErrInvalidSpeed)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Stopped {
		return ErrStopped
	}
	c.speed = m
	return nil
}

// Pause freezes a running clock. Pausing a paused clock is a no-op.
func (c *Clock) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Stopped {
		return ErrStopped
	}
	c.state = Paused
	return nil
}

// Resume restarts a paused clock. Resuming a running clock is a no-op.
func (c *Clock) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Stopped {
		return ErrStopped
	}
	c.state = Running
	return nil
}

// Stop clears simulated time and the window. It is idempotent.
func (c *Clock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

func (c *Clock) stopLocked() {
	c.state = Stopped
	c.now = time.Time{}
	c.speed = 0
	c.carry = 0
	c.lastTrigger = time.Time{}
	c.nextTrigger = time.Time{}
}

// SetTime jumps simulated time to t. Jumping before the last trigger
// re-seeds the window at t so the trigger never lies in the future.
func (c *Clock) SetTime(t time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Stopped {
		return ErrStopped
	}
	c.now = t
	c.carry = 0
	if t.Before(c.lastTrigger) {
		c.seedWindowLocked(t)
	}
	return nil
}

// AdvanceTime moves simulated time forward by d regardless of speed. It
// works on paused clocks for manual stepping.
func (c *Clock) AdvanceTime(d time.Duration) error {
	if d < 0 {
		return fmt.Errorf("advance %s: %w", d, ErrNegativeElapsed)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Stopped {
		return ErrStopped
	}
	c.now = c.now.Add(d)
	return nil
}

// Now returns simulated now; zero when stopped.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// State returns the lifecycle state.
func (c *Clock) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Speed returns the multiplier; zero when stopped.
func (c *Clock) Speed() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speed
}

// Window returns the window configuration.
func (c *Clock) Window() Window {
	return c.window
}

// Snapshot returns a consistent copy of clock and window state.
func (c *Clock) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		State:       c.state,
		Now:         c.now,
		Speed:       c.speed,
		LastTrigger: c.lastTrigger,
		NextTrigger: c.nextTrigger,
	}
}

// Restore replaces the clock state with s. Time is taken from s as-is and
// never recomputed from wall-clock time. An invalid snapshot leaves the
// clock stopped.
func (c *Clock) Restore(s Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()

	switch s.State {
	case Stopped:
		return nil
	case Running, Paused:
	default:
		return fmt.Errorf("%w: unknown state %d", ErrInvalidSnapshot, int(s.State))
	}
	if s.Now.IsZero() {
		return fmt.Errorf("%w: missing simulated time", ErrInvalidSnapshot)
	}
	if !validSpeed(s.Speed) {
		return fmt.Errorf("%w: speed %v", ErrInvalidSnapshot, s.Speed)
	}
	if s.LastTrigger.IsZero() != s.NextTrigger.IsZero() {
		return fmt.Errorf("%w: partial window", ErrInvalidSnapshot)
	}
	if s.LastTrigger.After(s.Now) {
		return fmt.Errorf("%w: last trigger %s after now %s", ErrInvalidSnapshot, s.LastTrigger, s.Now)
	}

	c.state = s.State
	c.now = s.Now
	c.speed = s.Speed
	if s.LastTrigger.IsZero() {
		c.seedWindowLocked(s.Now)
	} else {
		c.lastTrigger = s.LastTrigger
		c.nextTrigger = s.NextTrigger
	}
	return nil
}
