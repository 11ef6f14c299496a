package telemetry

import "time"

// Trigger reasons.
const (
	TriggerWindow = "window"
	TriggerManual = "manual"
)

// TriggerRow records one re-optimization call.
type TriggerRow struct {
	RunID       string    `json:"run_id"`
	TriggerID   string    `json:"trigger_id"`
	Reason      string    `json:"reason"`
	SimTime     time.Time `json:"sim_ts"`
	NextTrigger time.Time `json:"next_trigger"`
	Error       string    `json:"error,omitempty"`
	Timestamp   time.Time `json:"ts"`
}

func (TriggerRow) TableName() string { return TriggerTableName }
