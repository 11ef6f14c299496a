package main

import (
	"os"

	"golang.org/x/term"

	"flightops-sim/internal/config"
	"flightops-sim/internal/sim"
)

type writerOptions struct {
	printOnly bool
	tui       bool
	logFile   string
}

// newWriters sets up the output stack from config and flags. The TUI
// writer is returned separately so the caller can route logs and clock
// controls through it; cleanup closes every opened resource.
func newWriters(cfg *config.SimulationConfig, opts writerOptions) (sim.FlightWriter, *sim.TUIWriter, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var (
		base sim.FlightWriter
		tui  *sim.TUIWriter
	)
	switch {
	case opts.tui:
		tui = sim.NewTUIWriter(cfg)
		closers = append(closers, func() { _ = tui.Close() })
		base = tui
	default:
		base = sim.NewStdoutWriter(cfg, term.IsTerminal(int(os.Stdout.Fd())))
	}

	writers := []sim.FlightWriter{base}
	if !opts.printOnly && cfg != nil && cfg.Outputs.Greptime.Endpoint != "" {
		g := cfg.Outputs.Greptime
		gw, err := sim.NewGreptimeDBWriter(g.Endpoint, g.Port, g.Database)
		if err != nil {
			cleanup()
			return nil, nil, nil, err
		}
		writers = append(writers, gw)
	}

	logFile := opts.logFile
	if logFile == "" && cfg != nil {
		logFile = cfg.Outputs.LogFile
	}
	if logFile != "" {
		fw, ferr := sim.NewFileWriter(logFile, logFile+".roamers", logFile+".triggers", logFile+".clock")
		if ferr != nil {
			cleanup()
			return nil, nil, nil, ferr
		}
		closers = append(closers, func() { _ = fw.Close() })
		writers = append(writers, fw)
	}

	if len(writers) == 1 {
		return base, tui, cleanup, nil
	}
	return sim.NewMultiWriter(writers...), tui, cleanup, nil
}
