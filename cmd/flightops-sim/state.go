package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"flightops-sim/internal/persist"
)

var stateDir string

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Show the persisted clock state",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := persist.NewFileStore(stateDir)
		if err != nil {
			return err
		}
		rec, err := persist.NewBridge(store).Peek(cmd.Context())
		if errors.Is(err, persist.ErrNotFound) {
			fmt.Fprintf(cmd.OutOrStdout(), "no saved clock state in %s\n", stateDir)
			return nil
		}
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	stateCmd.Flags().StringVar(&stateDir, "dir", "state", "State directory")
}
