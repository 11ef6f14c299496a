package sim

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"flightops-sim/internal/config"
	"flightops-sim/internal/telemetry"
)

// JSONStdoutWriter prints every row kind as one JSON object per line.
type JSONStdoutWriter struct {
	out io.Writer
	mu  sync.Mutex
}

// NewJSONStdoutWriter creates a JSONStdoutWriter writing to os.Stdout.
func NewJSONStdoutWriter() *JSONStdoutWriter {
	return &JSONStdoutWriter{out: os.Stdout}
}

func (w *JSONStdoutWriter) print(kind string, row any) error {
	data, err := json.Marshal(struct {
		Kind string `json:"kind"`
		Row  any    `json:"row"`
	}{kind, row})
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_, err = fmt.Fprintln(w.out, string(data))
	return err
}

// Write outputs a flight row in JSON format.
func (w *JSONStdoutWriter) Write(row telemetry.FlightRow) error {
	return w.print("flight", row)
}

// WriteBatch outputs multiple flight rows in JSON format.
func (w *JSONStdoutWriter) WriteBatch(rows []telemetry.FlightRow) error {
	for _, r := range rows {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteRoamer outputs a roamer row in JSON format.
func (w *JSONStdoutWriter) WriteRoamer(row telemetry.RoamerRow) error {
	return w.print("roamer", row)
}

// WriteTrigger outputs a trigger row in JSON format.
func (w *JSONStdoutWriter) WriteTrigger(row telemetry.TriggerRow) error {
	return w.print("trigger", row)
}

// WriteState outputs a clock state row in JSON format.
func (w *JSONStdoutWriter) WriteState(row telemetry.ClockStateRow) error {
	return w.print("clock", row)
}

// NewStdoutWriter picks the colorized writer for terminals and JSON
// otherwise.
func NewStdoutWriter(cfg *config.SimulationConfig, colorize bool) FlightWriter {
	if colorize {
		return NewColorStdoutWriter(cfg)
	}
	return NewJSONStdoutWriter()
}
