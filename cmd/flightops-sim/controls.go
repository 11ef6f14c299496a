package main

import (
	"context"

	"flightops-sim/internal/logging"
	"flightops-sim/internal/sim"
	"flightops-sim/internal/simclock"
	"flightops-sim/internal/telemetry"
)

// applyControl runs one TUI clock control against the simulator.
func applyControl(ctx context.Context, s *sim.Simulator, action string) {
	log := logging.FromContext(ctx)
	c := s.Clock()
	var err error
	switch action {
	case sim.ControlPauseResume:
		if c.State() == simclock.Paused {
			err = c.Resume()
		} else {
			err = c.Pause()
		}
	case sim.ControlFaster:
		err = c.SetSpeed(c.Speed() * 2)
	case sim.ControlSlower:
		err = c.SetSpeed(c.Speed() / 2)
	case sim.ControlRetrigger:
		_, err = s.Trigger(ctx, telemetry.TriggerManual)
	default:
		log.Warn("unknown control", "action", action)
		return
	}
	if err != nil {
		log.Warn("control failed", "action", action, "err", err)
		return
	}
	log.Info("control applied", "action", action, "state", c.State(), "speed", c.Speed())
}
