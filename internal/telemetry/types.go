// Output rows with greptime tags
package telemetry

import (
	"os"
	"time"
)

// FlightRow is one flight position sample.
type FlightRow struct {
	RunID       string    `json:"run_id"`       // TAG
	Code        string    `json:"code"`         // TAG
	Phase       string    `json:"phase"`        // FIELD
	Lat         float64   `json:"lat"`          // FIELD
	Lng         float64   `json:"lng"`          // FIELD
	BearingDeg  float64   `json:"bearing_deg"`  // FIELD
	Progress    float64   `json:"progress"`     // FIELD
	RemainingNM float64   `json:"remaining_nm"` // FIELD
	ETASeconds  float64   `json:"eta_s"`        // FIELD
	SimTime     time.Time `json:"sim_ts"`       // FIELD
	Timestamp   time.Time `json:"ts"`           // TIME INDEX
}

// RoamerRow is one free-roaming entity sample.
type RoamerRow struct {
	RunID      string    `json:"run_id"` // TAG
	ID         string    `json:"id"`     // TAG
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	HeadingDeg float64   `json:"heading_deg"`
	SpeedKnots float64   `json:"speed_knots"`
	Status     string    `json:"status"`
	SimTime    time.Time `json:"sim_ts"`
	Timestamp  time.Time `json:"ts"`
}

func tableName(env, def string) string {
	if v := os.Getenv(env); v != "" {
		return v
	}
	return def
}

// Table names used when writing to GreptimeDB. Each can be overridden via
// an environment variable.
var (
	FlightTableName  = tableName("GREPTIMEDB_TABLE", "flight_positions")
	RoamerTableName  = tableName("ROAMER_TABLE", "roamer_positions")
	TriggerTableName = tableName("TRIGGER_EVENT_TABLE", "reoptimization_triggers")
	ClockTableName   = tableName("CLOCK_STATE_TABLE", "clock_state")
)

func (FlightRow) TableName() string { return FlightTableName }

func (RoamerRow) TableName() string { return RoamerTableName }
