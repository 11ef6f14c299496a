package sim

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"flightops-sim/internal/telemetry"
)

// ReplayLog replays flight rows from a JSONL log to writer. Rows sharing a
// wall timestamp were emitted by the same tick and are written as one batch.
// A speed >0 accelerates playback; speed <= 0 inserts no delay.
func ReplayLog(r io.Reader, writer FlightWriter, speed float64) error {
	dec := json.NewDecoder(r)
	var (
		batch []telemetry.FlightRow
		prev  time.Time
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := writeFlights(writer, batch)
		batch = nil
		return err
	}
	for {
		var row telemetry.FlightRow
		if err := dec.Decode(&row); err != nil {
			if err == io.EOF {
				return flush()
			}
			return err
		}
		if len(batch) > 0 && !row.Timestamp.Equal(prev) {
			if err := flush(); err != nil {
				return err
			}
			if speed > 0 {
				diff := row.Timestamp.Sub(prev)
				if speed != 1 {
					diff = time.Duration(float64(diff) / speed)
				}
				if diff > 0 {
					time.Sleep(diff)
				}
			}
		}
		batch = append(batch, row)
		prev = row.Timestamp
	}
}

// ReplayLogFile opens a file and replays its flight rows.
func ReplayLogFile(path string, writer FlightWriter, speed float64) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return ReplayLog(f, writer, speed)
}
