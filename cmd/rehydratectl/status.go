package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"rehydrate/internal/coordinator"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current rehydration status",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newCoordinator(cmd)
		if err != nil {
			return err
		}

		snap, err := c.Status()
		if err != nil {
			return err
		}

		fmt.Print(formatStatus(snap))
		return nil
	},
}

func formatStatus(snap coordinator.StatusSnapshot) string {
	environments := "None"
	if len(snap.ActiveEnvironments) > 0 {
		environments = strings.Join(snap.ActiveEnvironments, ", ")
	}
	last := "Never"
	if snap.LastRehydration != nil {
		last = snap.LastRehydration.Format("2006-01-02 15:04:05 MST")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "System Status:       %s\n", snap.SystemStatus)
	fmt.Fprintf(&b, "Active Environments: %s\n", environments)
	fmt.Fprintf(&b, "Last Rehydration:    %s\n", last)
	fmt.Fprintf(&b, "Total Rehydrations:  %d\n", snap.TotalRehydrations)
	return b.String()
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
