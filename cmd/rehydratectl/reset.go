package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"rehydrate/internal/coordinator"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset all rehydration state",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newCoordinator(cmd)
		if err != nil {
			return err
		}

		confirmed, _ := cmd.Flags().GetBool("confirm")
		if _, err := c.Reset(confirmed); err != nil {
			if errors.Is(err, coordinator.ErrConfirmationRequired) {
				// Usage error, not a runtime failure.
				return &exitError{
					code: exitFailure,
					msg:  "Warning: this will reset all global state.\nUse --confirm to proceed with reset.",
				}
			}
			return err
		}

		fmt.Println("Global state reset successfully.")
		return nil
	},
}

func init() {
	resetCmd.Flags().Bool("confirm", false, "Confirm the reset operation")
	rootCmd.AddCommand(resetCmd)
}
