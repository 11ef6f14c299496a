package sim

import (
	"context"
	"fmt"
	"time"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"

	"flightops-sim/internal/telemetry"
)

// greptimeClient is the subset of the ingester client the writer needs.
type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// GreptimeDBWriter writes rows to GreptimeDB via the ingester client.
type GreptimeDBWriter struct {
	client       greptimeClient
	flightTable  string
	roamerTable  string
	triggerTable string
	stateTable   string
	timeout      time.Duration
}

// NewGreptimeDBWriter connects to GreptimeDB over gRPC.
func NewGreptimeDBWriter(host string, port int, database string) (*GreptimeDBWriter, error) {
	cfg := greptime.NewConfig(host).WithPort(port).WithDatabase(database)
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("greptime client: %w", err)
	}
	return &GreptimeDBWriter{
		client:       client,
		flightTable:  telemetry.FlightTableName,
		roamerTable:  telemetry.RoamerTableName,
		triggerTable: telemetry.TriggerTableName,
		stateTable:   telemetry.ClockTableName,
		timeout:      5 * time.Second,
	}, nil
}

func (w *GreptimeDBWriter) send(tbl *table.Table) error {
	timeout := w.timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	_, err := w.client.Write(ctx, tbl)
	return err
}

type column struct {
	name string
	kind types.ColumnType
	tag  bool
	ts   bool
}

func newTable(name string, cols []column) (*table.Table, error) {
	tbl, err := table.New(name)
	if err != nil {
		return nil, err
	}
	for _, c := range cols {
		switch {
		case c.tag:
			err = tbl.AddTagColumn(c.name, c.kind)
		case c.ts:
			err = tbl.AddTimestampColumn(c.name, c.kind)
		default:
			err = tbl.AddFieldColumn(c.name, c.kind)
		}
		if err != nil {
			return nil, fmt.Errorf("table %s column %s: %w", name, c.name, err)
		}
	}
	return tbl, nil
}

var flightColumns = []column{
	{name: "run_id", kind: types.STRING, tag: true},
	{name: "code", kind: types.STRING, tag: true},
	{name: "phase", kind: types.STRING},
	{name: "lat", kind: types.FLOAT64},
	{name: "lng", kind: types.FLOAT64},
	{name: "bearing_deg", kind: types.FLOAT64},
	{name: "progress", kind: types.FLOAT64},
	{name: "remaining_nm", kind: types.FLOAT64},
	{name: "eta_s", kind: types.FLOAT64},
	{name: "sim_ts", kind: types.TIMESTAMP_MILLISECOND},
	{name: "ts", kind: types.TIMESTAMP_MILLISECOND, ts: true},
}

// Write inserts a single flight row.
func (w *GreptimeDBWriter) Write(row telemetry.FlightRow) error {
	return w.WriteBatch([]telemetry.FlightRow{row})
}

// WriteBatch inserts multiple flight rows.
func (w *GreptimeDBWriter) WriteBatch(rows []telemetry.FlightRow) error {
	if len(rows) == 0 {
		return nil
	}
	tbl, err := newTable(w.flightTable, flightColumns)
	if err != nil {
		return err
	}
	for _, r := range rows {
		if err := tbl.AddRow(r.RunID, r.Code, r.Phase, r.Lat, r.Lng, r.BearingDeg,
			r.Progress, r.RemainingNM, r.ETASeconds, r.SimTime, r.Timestamp); err != nil {
			return err
		}
	}
	return w.send(tbl)
}

var roamerColumns = []column{
	{name: "run_id", kind: types.STRING, tag: true},
	{name: "id", kind: types.STRING, tag: true},
	{name: "lat", kind: types.FLOAT64},
	{name: "lng", kind: types.FLOAT64},
	{name: "heading_deg", kind: types.FLOAT64},
	{name: "speed_knots", kind: types.FLOAT64},
	{name: "status", kind: types.STRING},
	{name: "sim_ts", kind: types.TIMESTAMP_MILLISECOND},
	{name: "ts", kind: types.TIMESTAMP_MILLISECOND, ts: true},
}

// WriteRoamer inserts one roamer row.
func (w *GreptimeDBWriter) WriteRoamer(row telemetry.RoamerRow) error {
	return w.WriteRoamers([]telemetry.RoamerRow{row})
}

// WriteRoamers inserts roamer rows.
func (w *GreptimeDBWriter) WriteRoamers(rows []telemetry.RoamerRow) error {
	if len(rows) == 0 {
		return nil
	}
	tbl, err := newTable(w.roamerTable, roamerColumns)
	if err != nil {
		return err
	}
	for _, r := range rows {
		if err := tbl.AddRow(r.RunID, r.ID, r.Lat, r.Lng, r.HeadingDeg, r.SpeedKnots,
			r.Status, r.SimTime, r.Timestamp); err != nil {
			return err
		}
	}
	return w.send(tbl)
}

var triggerColumns = []column{
	{name: "run_id", kind: types.STRING, tag: true},
	{name: "trigger_id", kind: types.STRING},
	{name: "reason", kind: types.STRING},
	{name: "sim_ts", kind: types.TIMESTAMP_MILLISECOND},
	{name: "next_trigger", kind: types.TIMESTAMP_MILLISECOND},
	{name: "error", kind: types.STRING},
	{name: "ts", kind: types.TIMESTAMP_MILLISECOND, ts: true},
}

// WriteTrigger inserts a trigger row.
func (w *GreptimeDBWriter) WriteTrigger(r telemetry.TriggerRow) error {
	tbl, err := newTable(w.triggerTable, triggerColumns)
	if err != nil {
		return err
	}
	if err := tbl.AddRow(r.RunID, r.TriggerID, r.Reason, r.SimTime, r.NextTrigger, r.Error, r.Timestamp); err != nil {
		return err
	}
	return w.send(tbl)
}

var stateColumns = []column{
	{name: "run_id", kind: types.STRING, tag: true},
	{name: "state", kind: types.STRING},
	{name: "sim_ts", kind: types.TIMESTAMP_MILLISECOND},
	{name: "speed", kind: types.FLOAT64},
	{name: "next_trigger", kind: types.TIMESTAMP_MILLISECOND},
	{name: "airborne", kind: types.INT64},
	{name: "ts", kind: types.TIMESTAMP_MILLISECOND, ts: true},
}

// WriteState inserts a clock state row.
func (w *GreptimeDBWriter) WriteState(r telemetry.ClockStateRow) error {
	tbl, err := newTable(w.stateTable, stateColumns)
	if err != nil {
		return err
	}
	if err := tbl.AddRow(r.RunID, r.State, r.SimTime, r.Speed, r.NextTrigger, int64(r.Airborne), r.Timestamp); err != nil {
		return err
	}
	return w.send(tbl)
}
