package sim

import (
	"flightops-sim/internal/simclock"
	"flightops-sim/internal/telemetry"
)

// Observer receives simulator events as they happen. The admin API uses it
// to feed metrics.
type Observer interface {
	ObserveTick(snap simclock.Snapshot, airborne int)
	ObserveTrigger(row telemetry.TriggerRow)
	ObserveSave(err error)
}

type nopObserver struct{}

func (nopObserver) ObserveTick(simclock.Snapshot, int)   {}
func (nopObserver) ObserveTrigger(telemetry.TriggerRow) {}
func (nopObserver) ObserveSave(error)                   {}

const maxRecentTriggers = 50

// RecentTriggers returns the latest trigger rows, oldest first.
func (s *Simulator) RecentTriggers() []telemetry.TriggerRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]telemetry.TriggerRow, len(s.triggers))
	copy(out, s.triggers)
	return out
}

func (s *Simulator) recordTrigger(row telemetry.TriggerRow) {
	s.mu.Lock()
	s.triggers = append(s.triggers, row)
	if len(s.triggers) > maxRecentTriggers {
		s.triggers = s.triggers[len(s.triggers)-maxRecentTriggers:]
	}
	s.mu.Unlock()
	s.observer.ObserveTrigger(row)
}
