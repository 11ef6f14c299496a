package sim

import (
	"errors"

	"flightops-sim/internal/telemetry"
)

// MultiWriter fans rows out to several writers. Optional row kinds are
// forwarded only to writers that implement them.
type MultiWriter struct {
	writers []FlightWriter
}

// NewMultiWriter creates a new MultiWriter. Nil writers are skipped.
func NewMultiWriter(ws ...FlightWriter) *MultiWriter {
	mw := &MultiWriter{}
	for _, w := range ws {
		if w != nil {
			mw.writers = append(mw.writers, w)
		}
	}
	return mw
}

// Write sends a flight row to all writers.
func (mw *MultiWriter) Write(row telemetry.FlightRow) error {
	var errs []error
	for _, w := range mw.writers {
		if err := w.Write(row); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WriteBatch sends flight rows to all writers, using batch if supported.
func (mw *MultiWriter) WriteBatch(rows []telemetry.FlightRow) error {
	var errs []error
	for _, w := range mw.writers {
		if err := writeFlights(w, rows); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WriteRoamer sends a roamer row to writers that accept them.
func (mw *MultiWriter) WriteRoamer(row telemetry.RoamerRow) error {
	return mw.WriteRoamers([]telemetry.RoamerRow{row})
}

// WriteRoamers sends roamer rows to writers that accept them.
func (mw *MultiWriter) WriteRoamers(rows []telemetry.RoamerRow) error {
	var errs []error
	for _, w := range mw.writers {
		if rw, ok := w.(RoamerWriter); ok {
			if err := writeRoamers(rw, rows); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// WriteTrigger sends a trigger row to writers that accept them.
func (mw *MultiWriter) WriteTrigger(row telemetry.TriggerRow) error {
	var errs []error
	for _, w := range mw.writers {
		if tw, ok := w.(TriggerWriter); ok {
			if err := tw.WriteTrigger(row); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// WriteState sends a clock state row to writers that accept them.
func (mw *MultiWriter) WriteState(row telemetry.ClockStateRow) error {
	var errs []error
	for _, w := range mw.writers {
		if sw, ok := w.(StateWriter); ok {
			if err := sw.WriteState(row); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// SetAdminStatus forwards admin status to writers that display it.
func (mw *MultiWriter) SetAdminStatus(listening bool) {
	for _, w := range mw.writers {
		if aw, ok := w.(AdminStatusWriter); ok {
			aw.SetAdminStatus(listening)
		}
	}
}
