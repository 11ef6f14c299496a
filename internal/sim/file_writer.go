package sim

import (
	"encoding/json"
	"os"
	"sync"

	"flightops-sim/internal/telemetry"
)

// FileWriter writes rows to JSONL files: flight positions to the main log
// and roamers, triggers and clock state to optional side logs. It is safe
// for concurrent use.
type FileWriter struct {
	mu         sync.Mutex
	files      []*os.File
	flightEnc  *json.Encoder
	roamerEnc  *json.Encoder
	triggerEnc *json.Encoder
	stateEnc   *json.Encoder
}

// NewFileWriter creates a FileWriter. roamerPath, triggerPath or statePath
// may be empty to skip those logs.
func NewFileWriter(flightPath, roamerPath, triggerPath, statePath string) (*FileWriter, error) {
	fw := &FileWriter{}
	open := func(path string) (*json.Encoder, error) {
		if path == "" {
			return nil, nil
		}
		f, err := os.Create(path)
		if err != nil {
			return nil, err
		}
		fw.files = append(fw.files, f)
		return json.NewEncoder(f), nil
	}
	var err error
	if fw.flightEnc, err = open(flightPath); err != nil {
		fw.Close()
		return nil, err
	}
	if fw.roamerEnc, err = open(roamerPath); err != nil {
		fw.Close()
		return nil, err
	}
	if fw.triggerEnc, err = open(triggerPath); err != nil {
		fw.Close()
		return nil, err
	}
	if fw.stateEnc, err = open(statePath); err != nil {
		fw.Close()
		return nil, err
	}
	return fw, nil
}

// Write logs a single flight row.
func (f *FileWriter) Write(row telemetry.FlightRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.flightEnc == nil {
		return nil
	}
	return f.flightEnc.Encode(row)
}

// WriteBatch logs multiple flight rows.
func (f *FileWriter) WriteBatch(rows []telemetry.FlightRow) error {
	for _, r := range rows {
		if err := f.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteRoamer logs a roamer row, if enabled.
func (f *FileWriter) WriteRoamer(row telemetry.RoamerRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.roamerEnc == nil {
		return nil
	}
	return f.roamerEnc.Encode(row)
}

// WriteTrigger logs a trigger row, if enabled.
func (f *FileWriter) WriteTrigger(row telemetry.TriggerRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.triggerEnc == nil {
		return nil
	}
	return f.triggerEnc.Encode(row)
}

// WriteState logs a clock state row, if enabled.
func (f *FileWriter) WriteState(row telemetry.ClockStateRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stateEnc == nil {
		return nil
	}
	return f.stateEnc.Encode(row)
}

// Close closes any underlying files.
func (f *FileWriter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var err error
	for _, file := range f.files {
		if e := file.Close(); e != nil && err == nil {
			err = e
		}
	}
	f.files = nil
	return err
}
