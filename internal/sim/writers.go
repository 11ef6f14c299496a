package sim

import "flightops-sim/internal/telemetry"

// FlightWriter is the one interface every output supports. The remaining
// writer interfaces are optional and discovered by type assertion.
type FlightWriter interface {
	Write(telemetry.FlightRow) error
}

// Optional: writers can also support batch mode
type batchWriter interface {
	WriteBatch([]telemetry.FlightRow) error
}

// RoamerWriter handles free-roaming entity rows.
type RoamerWriter interface {
	WriteRoamer(telemetry.RoamerRow) error
}

type batchRoamerWriter interface {
	WriteRoamers([]telemetry.RoamerRow) error
}

// TriggerWriter records re-optimization calls.
type TriggerWriter interface {
	WriteTrigger(telemetry.TriggerRow) error
}

// StateWriter handles per-tick clock state rows.
type StateWriter interface {
	WriteState(telemetry.ClockStateRow) error
}

// AdminStatusWriter allows writers to receive admin API status updates.
type AdminStatusWriter interface {
	SetAdminStatus(listening bool)
}

func writeFlights(w FlightWriter, rows []telemetry.FlightRow) error {
	if bw, ok := w.(batchWriter); ok {
		return bw.WriteBatch(rows)
	}
	for _, r := range rows {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	return nil
}

func writeRoamers(w RoamerWriter, rows []telemetry.RoamerRow) error {
	if bw, ok := w.(batchRoamerWriter); ok {
		return bw.WriteRoamers(rows)
	}
	for _, r := range rows {
		if err := w.WriteRoamer(r); err != nil {
			return err
		}
	}
	return nil
}
