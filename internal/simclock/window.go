package simclock

import "time"

const (
	// DefaultWindowLength is the span of simulated time orders batch over.
	DefaultWindowLength = 10 * time.Minute
	// DefaultTriggerLead is how long before the window closes the planner
	// is invoked.
	DefaultTriggerLead = 2 * time.Minute
)

// Window configures re-optimization windows.
type Window struct {
	Length time.Duration
	Lead   time.Duration
}

// DefaultWindow returns the 10m/2m window.
func DefaultWindow() Window {
	return Window{Length: DefaultWindowLength, Lead: DefaultTriggerLead}
}

func (w Window) withDefaults() Window {
	if w.Length <= 0 {
		w.Length = DefaultWindowLength
	}
	if w.Lead <= 0 || w.Lead >= w.Length {
		w.Lead = DefaultTriggerLead
		if w.Lead >= w.Length {
			w.Lead = w.Length / 5
		}
	}
	return w
}

func (c *Clock) seedWindowLocked(at time.Time) {
	c.lastTrigger = at
	c.nextTrigger = at.Add(c.window.Length - c.window.Lead)
}

// InOrderWindow reports whether orderTime lies inside the active window
// [last, last+length]. There is no active window unless the clock runs.
func (c *Clock) InOrderWindow(orderTime time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inWindowLocked(orderTime)
}

func (c *Clock) inWindowLocked(t time.Time) bool {
	if c.state != Running || c.lastTrigger.IsZero() {
		return false
	}
	return !t.Before(c.lastTrigger) && !t.After(c.lastTrigger.Add(c.window.Length))
}

// OnOrderArrival pulls the next trigger to now+lead when orderTime falls in
// the active window and reports whether it did. A trigger already earlier
// than now+lead is left alone, so repeated arrivals never postpone a run.
func (c *Clock) OnOrderArrival(orderTime time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.inWindowLocked(orderTime) {
		return false
	}
	candidate := c.now.Add(c.window.Lead)
	if candidate.Before(c.nextTrigger) {
		c.nextTrigger = candidate
	}
	return true
}

// Due reports whether a running clock has reached its next trigger.
func (c *Clock) Due() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == Running && !c.nextTrigger.IsZero() && !c.now.Before(c.nextTrigger)
}

// Retrigger opens a new window at simulated now. It returns the time the
// window was seeded at and the next trigger time.
func (c *Clock) Retrigger() (at, next time.Time, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Stopped {
		return time.Time{}, time.Time{}, ErrStopped
	}
	c.seedWindowLocked(c.now)
	return c.lastTrigger, c.nextTrigger, nil
}

// RetriggerIfDue rolls the window like Retrigger, but only when the clock
// is due. Concurrent callers see at most one roll per due trigger.
func (c *Clock) RetriggerIfDue() (at, next time.Time, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Running || c.nextTrigger.IsZero() || c.now.Before(c.nextTrigger) {
		return time.Time{}, time.Time{}, false
	}
	c.seedWindowLocked(c.now)
	return c.lastTrigger, c.nextTrigger, true
}

// UntilTrigger returns the simulated time left before the next trigger;
// false when there is no window.
func (c *Clock) UntilTrigger() (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Stopped || c.nextTrigger.IsZero() {
		return 0, false
	}
	return c.nextTrigger.Sub(c.now), true
}
