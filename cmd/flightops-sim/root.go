package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"flightops-sim/internal/logging"
)

var (
	logLevelFlag string
	logLevel     slog.Level
)

var rootCmd = &cobra.Command{
	Use:   "flightops-sim",
	Short: "Flight operations simulation toolkit",
	Long:  "flightops-sim runs an accelerated simulation clock that moves scheduled flights and free-roaming aircraft and triggers route re-optimization.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		lvl, err := logging.ParseLevel(logLevelFlag)
		if err != nil {
			return err
		}
		logLevel = lvl
		cmd.SetContext(logging.NewContext(cmd.Context(), logging.New(lvl)))
		return nil
	},
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(stateCmd)
	rootCmd.AddCommand(dashboardCmd)
}
