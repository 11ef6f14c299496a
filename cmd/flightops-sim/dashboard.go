package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"flightops-sim/internal/dashboard"
)

var dashboardOut string

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Render the Grafana dashboard for the GreptimeDB tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := dashboard.Render(dashboardOut)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

func init() {
	dashboardCmd.Flags().StringVar(&dashboardOut, "out", "build", "Output directory")
}
