package sim

import (
	"context"
	"time"

	"flightops-sim/internal/flights"
	"flightops-sim/internal/kinematics"
	"flightops-sim/internal/logging"
	"flightops-sim/internal/simclock"
	"flightops-sim/internal/telemetry"
)

// Run drives the clock from wall time until ctx is done, then saves the
// clock one last time.
func (s *Simulator) Run(ctx context.Context) {
	log := logging.FromContext(ctx)
	log.Info("starting simulator", "run_id", s.runID, "tick_interval", s.tickInterval)
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	s.mu.Lock()
	s.lastWall = s.now()
	s.lastSave = s.lastWall
	s.mu.Unlock()

	for {
		select {
		case <-ticker.C:
			s.tick(ctx)
		case <-ctx.Done():
			log.Info("stopping simulator")
			s.inflight.Wait()
			if s.bridge != nil {
				saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
				if err := s.Save(saveCtx); err != nil {
					log.Error("final state save failed", "err", err)
				}
				cancel()
			}
			return
		}
	}
}

// tick advances the clock by the measured wall delta, never by the nominal
// interval, then derives and writes everything that depends on it. A due
// window rolls here; its planner call runs in the background.
func (s *Simulator) tick(ctx context.Context) {
	log := logging.FromContext(ctx)

	wall := s.now()
	s.mu.Lock()
	elapsed := time.Duration(0)
	if !s.lastWall.IsZero() {
		elapsed = wall.Sub(s.lastWall)
	}
	s.lastWall = wall
	s.mu.Unlock()
	if elapsed < 0 {
		elapsed = 0
	}

	if err := s.clock.Tick(elapsed); err != nil {
		log.Error("clock tick failed", "err", err)
	}

	if at, next, ok := s.clock.RetriggerIfDue(); ok {
		s.inflight.Add(1)
		go func() {
			defer s.inflight.Done()
			row, err := s.reoptimize(ctx, telemetry.TriggerWindow, at, next)
			if err != nil {
				log.Error("re-optimization failed", "trigger_id", row.TriggerID, "err", err)
				return
			}
			log.Info("re-optimization triggered", "trigger_id", row.TriggerID, "sim_now", row.SimTime, "next", row.NextTrigger)
		}()
	}

	snap := s.clock.Snapshot()
	roamers := s.advanceRoamers(snap.Now)

	var positions []flights.Position
	airborne := 0
	if snap.State != simclock.Stopped {
		positions = s.tracker.Positions(snap.Now)
		for _, p := range positions {
			if p.Phase == flights.PhaseAirborne {
				airborne++
			}
		}
	}
	s.emit(ctx, snap, positions, roamers, airborne)
	s.observer.ObserveTick(snap, airborne)
	s.maybeSave(ctx, wall)
}

// advanceRoamers integrates roamer motion over the simulated time that
// passed since the previous tick. Backward jumps and stopped clocks move
// nothing.
func (s *Simulator) advanceRoamers(simNow time.Time) []kinematics.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	if simNow.IsZero() {
		s.lastSim = time.Time{}
		return nil
	}
	if !s.lastSim.IsZero() && simNow.After(s.lastSim) {
		minutes := simNow.Sub(s.lastSim).Minutes()
		for i := range s.roamers {
			s.roamers[i] = kinematics.Advance(s.roamers[i], minutes)
		}
	}
	s.lastSim = simNow
	out := make([]kinematics.Entity, len(s.roamers))
	copy(out, s.roamers)
	return out
}

func (s *Simulator) emit(ctx context.Context, snap simclock.Snapshot, positions []flights.Position, roamers []kinematics.Entity, airborne int) {
	if s.writer == nil {
		return
	}
	log := logging.FromContext(ctx)

	if len(positions) > 0 {
		rows := make([]telemetry.FlightRow, 0, len(positions))
		for _, p := range positions {
			rows = append(rows, s.gen.Flight(p))
		}
		if err := writeFlights(s.writer, rows); err != nil {
			log.Error("flight write failed", "err", err)
		}
	}

	if rw, ok := s.writer.(RoamerWriter); ok && len(roamers) > 0 {
		rows := make([]telemetry.RoamerRow, 0, len(roamers))
		for _, e := range roamers {
			rows = append(rows, s.gen.Roamer(e, snap.Now))
		}
		if err := writeRoamers(rw, rows); err != nil {
			log.Error("roamer write failed", "err", err)
		}
	}

	if sw, ok := s.writer.(StateWriter); ok {
		if err := sw.WriteState(s.gen.ClockState(snap, airborne)); err != nil {
			log.Error("state write failed", "err", err)
		}
	}
}

func (s *Simulator) maybeSave(ctx context.Context, wall time.Time) {
	if s.bridge == nil || s.saveInterval <= 0 {
		return
	}
	s.mu.Lock()
	due := wall.Sub(s.lastSave) >= s.saveInterval
	if due {
		s.lastSave = wall
	}
	s.mu.Unlock()
	if !due {
		return
	}
	if err := s.Save(ctx); err != nil {
		logging.FromContext(ctx).Error("state save failed", "err", err)
	}
}
