package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"flightops-sim/internal/admin"
	"flightops-sim/internal/config"
	"flightops-sim/internal/flights"
	"flightops-sim/internal/logging"
	"flightops-sim/internal/persist"
	"flightops-sim/internal/planner"
	"flightops-sim/internal/sim"
	"flightops-sim/internal/simclock"
)

var (
	simPrintOnly  bool
	simConfigPath string
	simSchemaPath string
	simLogFile    string
	simTUI        bool
	simRunID      string
	simAdminAddr  string
	simNoRestore  bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the real-time flight simulator",
	Long:  "simulate drives the simulation clock from wall time, emits flight and roamer positions and calls the planner at every re-optimization trigger.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(simConfigPath, simSchemaPath)
		if err != nil {
			return err
		}
		if simNoRestore {
			cfg.Persistence.Restore = false
		}
		if simAdminAddr != "" {
			cfg.Admin.Addr = simAdminAddr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		writer, tui, cleanup, err := newWriters(cfg, writerOptions{printOnly: simPrintOnly, tui: simTUI, logFile: simLogFile})
		if err != nil {
			return err
		}
		defer cleanup()
		if tui != nil {
			ctx = logging.NewContext(ctx, logging.NewWithWriter(tui.LogWriter(), logLevel))
		}
		log := logging.FromContext(ctx)

		metrics, err := admin.NewMetrics(nil)
		if err != nil {
			return err
		}
		simulator, err := newSimulator(cfg, writer, metrics)
		if err != nil {
			return err
		}
		startClock(ctx, simulator, cfg, time.Now().UTC())

		if tui != nil {
			tui.SetControls(func(action string) { applyControl(ctx, simulator, action) })
		}

		if cfg.Admin.Addr != "off" {
			srv := admin.NewServer(simulator, metrics)
			go func() {
				if aw, ok := writer.(sim.AdminStatusWriter); ok {
					aw.SetAdminStatus(true)
					defer aw.SetAdminStatus(false)
				}
				if err := srv.Start(ctx, cfg.Admin.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("admin server failed", "addr", cfg.Admin.Addr, "err", err)
				}
			}()
		}

		simulator.Run(ctx)
		log.Info("flight simulation stopped", "run_id", simulator.RunID())
		return nil
	},
}

// newSimulator wires clock, schedules, planner and persistence from cfg.
func newSimulator(cfg *config.SimulationConfig, writer sim.FlightWriter, observer sim.Observer) (*sim.Simulator, error) {
	schedules, err := cfg.FlightSchedules()
	if err != nil {
		return nil, err
	}
	store, err := persist.NewFileStore(cfg.Persistence.Dir)
	if err != nil {
		return nil, err
	}
	return sim.NewSimulator(
		simclock.New(cfg.Window()),
		flights.NewTracker(schedules),
		cfg.RoamerEntities(),
		writer,
		sim.WithRunID(simRunID),
		sim.WithTickInterval(cfg.Clock.Tick),
		sim.WithPlanner(newPlanner(cfg)),
		sim.WithPersistence(persist.NewBridge(store), cfg.Persistence.SaveInterval),
		sim.WithObserver(observer),
	), nil
}

func newPlanner(cfg *config.SimulationConfig) planner.Client {
	if cfg.Planner.URL == "" {
		return planner.LogClient{}
	}
	return planner.NewHTTPClient(cfg.Planner.URL,
		planner.WithRetries(cfg.Planner.MaxRetries()),
		planner.WithHTTPClient(&http.Client{Timeout: cfg.Planner.Timeout}),
	)
}

// startClock restores the persisted clock when asked to, and otherwise
// starts it from config if autostart is set. A failed restore, or a saved
// clock that was stopped, leaves the clock stopped unless autostart applies.
func startClock(ctx context.Context, s *sim.Simulator, cfg *config.SimulationConfig, wallNow time.Time) {
	log := logging.FromContext(ctx)
	if cfg.Persistence.Restore {
		snap, err := s.Restore(ctx)
		switch {
		case err == nil && snap.State != simclock.Stopped:
			log.Info("clock restored", "state", snap.State, "sim_now", snap.Now, "speed", snap.Speed)
			return
		case err == nil:
			log.Info("saved clock was stopped")
		case errors.Is(err, persist.ErrNotFound):
			log.Info("no saved clock state", "dir", cfg.Persistence.Dir)
		default:
			log.Warn("clock restore failed", "err", err)
		}
	}
	if !cfg.Clock.Autostart {
		log.Info("clock stopped; start it through the admin API")
		return
	}
	start := cfg.StartTime(wallNow)
	if err := s.Start(start, cfg.Clock.Speed); err != nil {
		log.Error("clock start failed", "err", err)
		return
	}
	log.Info("clock started", "sim_now", start, "speed", cfg.Clock.Speed)
}

func init() {
	simulateCmd.Flags().BoolVar(&simPrintOnly, "print-only", false, "Print rows to STDOUT only, even when GreptimeDB is configured")
	simulateCmd.Flags().StringVar(&simConfigPath, "config", "config/simulation.yaml", "Path to simulation configuration YAML")
	simulateCmd.Flags().StringVar(&simSchemaPath, "schema", "", "Path to CUE schema file (embedded schema when empty)")
	simulateCmd.Flags().StringVar(&simLogFile, "log-file", "", "Path to export flight rows (JSONL); side logs get .roamers/.triggers/.clock suffixes")
	simulateCmd.Flags().BoolVar(&simTUI, "tui", false, "Show the interactive flight board")
	simulateCmd.Flags().StringVar(&simRunID, "run-id", "", "Run identifier tagged on every row (random when empty)")
	simulateCmd.Flags().StringVar(&simAdminAddr, "admin", "", "Admin API listen address, or \"off\" (overrides config)")
	simulateCmd.Flags().BoolVar(&simNoRestore, "no-restore", false, "Ignore persisted clock state")
}
