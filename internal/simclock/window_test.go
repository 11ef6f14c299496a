package simclock

import (
	"sync"
	"testing"
	"time"
)

func TestWindowMembershipBoundaries(t *testing.T) {
	c := startedClock(t, 1)
	cases := []struct {
		name  string
		order time.Time
		want  bool
	}{
		{"window start", t0, true},
		{"inside", t0.Add(5 * time.Minute), true},
		{"window end", t0.Add(10 * time.Minute), true},
		{"one second past end", t0.Add(10*time.Minute + time.Second), false},
		{"before start", t0.Add(-time.Nanosecond), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := c.InOrderWindow(tc.order); got != tc.want {
				t.Fatalf("InOrderWindow(%v) = %v, want %v", tc.order, got, tc.want)
			}
		})
	}
}

func TestNoWindowUnlessRunning(t *testing.T) {
	c := New(DefaultWindow())
	if c.InOrderWindow(t0) {
		t.Fatalf("stopped clock reported a window")
	}
	if c.OnOrderArrival(t0) {
		t.Fatalf("stopped clock accepted order")
	}
	c = startedClock(t, 1)
	_ = c.Pause()
	if c.InOrderWindow(t0) {
		t.Fatalf("paused clock reported a window")
	}
	if c.Due() {
		t.Fatalf("paused clock reported due")
	}
}

func TestOrderArrivalPullsTrigger(t *testing.T) {
	c := startedClock(t, 60)
	_ = c.Tick(2 * time.Second) // now = t0+2m

	if !c.OnOrderArrival(t0.Add(9 * time.Minute)) {
		t.Fatalf("order inside window not accepted")
	}
	s := c.Snapshot()
	if want := s.Now.Add(2 * time.Minute); !s.NextTrigger.Equal(want) {
		t.Fatalf("next trigger = %v, want %v", s.NextTrigger, want)
	}
	if !s.LastTrigger.Equal(t0) {
		t.Fatalf("last trigger moved to %v", s.LastTrigger)
	}
}

func TestOrderOutsideWindowUnchanged(t *testing.T) {
	c := startedClock(t, 60)
	before := c.Snapshot()
	if c.OnOrderArrival(t0.Add(11 * time.Minute)) {
		t.Fatalf("order outside window accepted")
	}
	if c.Snapshot() != before {
		t.Fatalf("state changed for out-of-window order")
	}
}

func TestRepeatedArrivalsNeverPostpone(t *testing.T) {
	c := startedClock(t, 60)
	_ = c.Tick(time.Second) // t0+1m
	c.OnOrderArrival(t0.Add(time.Minute))
	first := c.Snapshot().NextTrigger // t0+3m

	_ = c.Tick(1500 * time.Millisecond) // t0+2m30s
	if !c.OnOrderArrival(t0.Add(2 * time.Minute)) {
		t.Fatalf("second arrival rejected")
	}
	if got := c.Snapshot().NextTrigger; !got.Equal(first) {
		t.Fatalf("second arrival moved trigger from %v to %v", first, got)
	}
}

func TestDueAndRetrigger(t *testing.T) {
	c := startedClock(t, 60)
	_ = c.Tick(7 * time.Second)
	if c.Due() {
		t.Fatalf("due before next trigger")
	}
	_ = c.Tick(time.Second) // t0+8m
	if !c.Due() {
		t.Fatalf("not due at next trigger")
	}
	at, next, err := c.Retrigger()
	if err != nil {
		t.Fatalf("Retrigger: %v", err)
	}
	now := c.Now()
	if !at.Equal(now) {
		t.Fatalf("seeded at %v, want %v", at, now)
	}
	if want := now.Add(8 * time.Minute); !next.Equal(want) {
		t.Fatalf("next = %v, want %v", next, want)
	}
	if s := c.Snapshot(); !s.LastTrigger.Equal(now) {
		t.Fatalf("last trigger = %v, want %v", s.LastTrigger, now)
	}
	if c.Due() {
		t.Fatalf("still due after retrigger")
	}
	if left, ok := c.UntilTrigger(); !ok || left != 8*time.Minute {
		t.Fatalf("UntilTrigger = %v, %v", left, ok)
	}

	c.Stop()
	if _, _, err := c.Retrigger(); err == nil {
		t.Fatalf("retrigger on stopped clock succeeded")
	}
	if _, ok := c.UntilTrigger(); ok {
		t.Fatalf("stopped clock has a trigger")
	}
}

func TestWindowDefaults(t *testing.T) {
	w := Window{}.withDefaults()
	if w != DefaultWindow() {
		t.Fatalf("defaults = %+v", w)
	}
	w = Window{Length: time.Minute, Lead: 5 * time.Minute}.withDefaults()
	if w.Lead >= w.Length {
		t.Fatalf("lead %s not below length %s", w.Lead, w.Length)
	}
}

func TestRetriggerIfDueRollsOnce(t *testing.T) {
	c := startedClock(t, 60)
	if _, _, ok := c.RetriggerIfDue(); ok {
		t.Fatalf("rolled before the trigger time")
	}
	_ = c.Tick(8 * time.Second) // t0+8m

	var (
		mu    sync.Mutex
		rolls []time.Time
		wg    sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if at, _, ok := c.RetriggerIfDue(); ok {
				mu.Lock()
				rolls = append(rolls, at)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if len(rolls) != 1 {
		t.Fatalf("rolls = %d, want 1", len(rolls))
	}
	if want := t0.Add(8 * time.Minute); !rolls[0].Equal(want) {
		t.Fatalf("seeded at %v, want %v", rolls[0], want)
	}
	if s := c.Snapshot(); !s.LastTrigger.Equal(rolls[0]) {
		t.Fatalf("last trigger = %v, want %v", s.LastTrigger, rolls[0])
	}
}
