package main

import (
	"github.com/spf13/cobra"

	"flightops-sim/internal/config"
	"flightops-sim/internal/sim"
)

var (
	replayInput     string
	replaySpeed     float64
	replayPrintOnly bool
	replayConfig    string
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a flight log file",
	Long:  "replay feeds flight rows from a JSONL log back into GreptimeDB or STDOUT.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := &config.SimulationConfig{}
		if replayConfig != "" {
			var err error
			if cfg, err = config.Load(replayConfig, ""); err != nil {
				return err
			}
		}
		writer, _, cleanup, err := newWriters(cfg, writerOptions{printOnly: replayPrintOnly})
		if err != nil {
			return err
		}
		defer cleanup()
		return sim.ReplayLogFile(replayInput, writer, replaySpeed)
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayInput, "input", "", "Path to flight log file")
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 1.0, "Playback speed multiplier (0 for no delay)")
	replayCmd.Flags().BoolVar(&replayPrintOnly, "print-only", false, "Print rows to STDOUT instead of writing to DB")
	replayCmd.Flags().StringVar(&replayConfig, "config", "", "Simulation config providing the GreptimeDB output")
	_ = replayCmd.MarkFlagRequired("input")
}
