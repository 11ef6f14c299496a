package telemetry

import "time"

// ClockStateRow captures the clock once per tick.
type ClockStateRow struct {
	RunID       string    `json:"run_id"`
	State       string    `json:"state"`
	SimTime     time.Time `json:"sim_ts"`
	Speed       float64   `json:"speed"`
	NextTrigger time.Time `json:"next_trigger"`
	Airborne    int       `json:"airborne"`
	Timestamp   time.Time `json:"ts"`
}

func (ClockStateRow) TableName() string { return ClockTableName }
