// ColorStdoutWriter prints human-friendly, colorized rows to STDOUT.
package sim

import (
	"fmt"
	"io"
	"os"
	"sync"
	"text/tabwriter"
	"time"

	"flightops-sim/internal/config"
	"flightops-sim/internal/flights"
	"flightops-sim/internal/kinematics"
	"flightops-sim/internal/telemetry"
)

const (
	colorReset   = "\x1b[0m"
	colorRed     = "\x1b[31m"
	colorGreen   = "\x1b[32m"
	colorYellow  = "\x1b[33m"
	colorBlue    = "\x1b[34m"
	colorMagenta = "\x1b[35m"
	colorCyan    = "\x1b[36m"
	colorGray    = "\x1b[90m"
)

func colorWhite() string { return "\x1b[37m" }

// ColorStdoutWriter prints rows using ANSI colors.
type ColorStdoutWriter struct {
	cfg  *config.SimulationConfig
	out  io.Writer
	once sync.Once
	mu   sync.Mutex
}

// NewColorStdoutWriter creates a ColorStdoutWriter writing to os.Stdout.
func NewColorStdoutWriter(cfg *config.SimulationConfig) *ColorStdoutWriter {
	return &ColorStdoutWriter{cfg: cfg, out: os.Stdout}
}

func (w *ColorStdoutWriter) printOverview() {
	if w.cfg == nil {
		return
	}

	fmt.Fprintln(w.out, "Simulation Configuration:")
	tw := tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	start := w.cfg.Clock.Start
	if start == "" {
		start = "(wall clock)"
	}
	fmt.Fprintf(tw, "Start:\t%s\n", start)
	fmt.Fprintf(tw, "Speed:\t%gx\n", w.cfg.Clock.Speed)
	fmt.Fprintf(tw, "Tick:\t%s\n", w.cfg.Clock.Tick)
	fmt.Fprintf(tw, "Window / Lead:\t%s / %s\n", w.cfg.Window().Length, w.cfg.Window().Lead)
	planner := w.cfg.Planner.URL
	if planner == "" {
		planner = "(log only)"
	}
	fmt.Fprintf(tw, "Planner:\t%s\n", planner)
	tw.Flush()

	fmt.Fprintln(w.out, "\nFlights:")
	tw = tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Code\tDeparture\tArrival\n")
	for _, f := range w.cfg.Flights {
		fmt.Fprintf(tw, "%s%s%s\t%s\t%s\n", colorCyan, f.Code, colorReset, f.Departure, f.Arrival)
	}
	tw.Flush()
	fmt.Fprintln(w.out)
}

func phaseColor(p string) string {
	switch flights.Phase(p) {
	case flights.PhaseAirborne:
		return colorGreen
	case flights.PhaseScheduled:
		return colorYellow
	default:
		return colorGray
	}
}

// Write outputs a single flight row in colorized format.
func (w *ColorStdoutWriter) Write(row telemetry.FlightRow) error {
	w.once.Do(w.printOverview)
	w.mu.Lock()
	defer w.mu.Unlock()

	fmt.Fprintf(w.out, "%s[%s]%s ", colorGray, row.SimTime.Format(time.RFC3339), colorReset)
	fmt.Fprintf(w.out, "%sflight=%s%s ", colorWhite(), row.Code, colorReset)
	fmt.Fprintf(w.out, "%s%-9s%s ", phaseColor(row.Phase), row.Phase, colorReset)
	fmt.Fprintf(w.out, "%slat=%.4f%s ", colorGreen, row.Lat, colorReset)
	fmt.Fprintf(w.out, "%slng=%.4f%s ", colorYellow, row.Lng, colorReset)
	fmt.Fprintf(w.out, "%shdg=%.0f%s ", colorCyan, row.BearingDeg, colorReset)
	fmt.Fprintf(w.out, "%sprog=%.1f%%%s ", colorMagenta, row.Progress*100, colorReset)
	fmt.Fprintf(w.out, "%srem=%.0fnm%s ", colorBlue, row.RemainingNM, colorReset)
	fmt.Fprintf(w.out, "%seta=%s%s", colorGray, (time.Duration(row.ETASeconds) * time.Second).String(), colorReset)
	fmt.Fprintln(w.out)
	return nil
}

// WriteBatch outputs multiple flight rows.
func (w *ColorStdoutWriter) WriteBatch(rows []telemetry.FlightRow) error {
	for _, r := range rows {
		_ = w.Write(r)
	}
	return nil
}

// WriteRoamer prints a free-roaming entity.
func (w *ColorStdoutWriter) WriteRoamer(r telemetry.RoamerRow) error {
	w.once.Do(w.printOverview)
	w.mu.Lock()
	defer w.mu.Unlock()
	statusColor := colorGreen
	if kinematics.Status(r.Status).Terminal() {
		statusColor = colorGray
	} else if kinematics.Status(r.Status) == kinematics.StatusHolding {
		statusColor = colorYellow
	}
	fmt.Fprintf(w.out, "%s[%s]%s %sROAMER%s id=%s lat=%.4f lng=%.4f hdg=%.0f spd=%.0fkt %sstatus=%s%s\n",
		colorGray, r.SimTime.Format(time.RFC3339), colorReset,
		colorBlue, colorReset, r.ID, r.Lat, r.Lng, r.HeadingDeg, r.SpeedKnots,
		statusColor, r.Status, colorReset)
	return nil
}

// WriteTrigger prints a re-optimization call.
func (w *ColorStdoutWriter) WriteTrigger(r telemetry.TriggerRow) error {
	w.once.Do(w.printOverview)
	w.mu.Lock()
	defer w.mu.Unlock()
	c := colorMagenta
	if r.Error != "" {
		c = colorRed
	}
	fmt.Fprintf(w.out, "%s[%s]%s %sREOPTIMIZE%s reason=%s id=%s next=%s",
		colorGray, r.SimTime.Format(time.RFC3339), colorReset,
		c, colorReset, r.Reason, r.TriggerID, r.NextTrigger.Format(time.RFC3339))
	if r.Error != "" {
		fmt.Fprintf(w.out, " %serr=%s%s", colorRed, r.Error, colorReset)
	}
	fmt.Fprintln(w.out)
	return nil
}

// WriteState prints the clock state line.
func (w *ColorStdoutWriter) WriteState(row telemetry.ClockStateRow) error {
	w.once.Do(w.printOverview)
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(w.out, "%s[%s]%s %sCLOCK%s state=%s speed=%gx airborne=%d next=%s\n",
		colorGray, row.SimTime.Format(time.RFC3339), colorReset,
		colorBlue, colorReset, row.State, row.Speed, row.Airborne, row.NextTrigger.Format(time.RFC3339))
	return nil
}
