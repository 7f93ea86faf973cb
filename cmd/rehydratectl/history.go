package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"rehydrate/internal/state"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past rehydration attempts, most recent first",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newCoordinator(cmd)
		if err != nil {
			return err
		}

		limit, _ := cmd.Flags().GetInt("limit")
		records, err := c.History(limit)
		if err != nil {
			return err
		}

		fmt.Print(formatHistory(records))
		return nil
	},
}

func formatHistory(records []state.HistoryRecord) string {
	if len(records) == 0 {
		return "No rehydration history available.\n"
	}

	var b strings.Builder
	for i, rec := range records {
		fmt.Fprintf(&b, "%d. %s\n", i+1, rec.Timestamp.Format("2006-01-02 15:04:05 MST"))
		fmt.Fprintf(&b, "   Environment: %s\n", rec.Environment)
		fmt.Fprintf(&b, "   Platform:    %s\n", rec.Platform)
		fmt.Fprintf(&b, "   Status:      %s\n", rec.Status)
		if rec.ReturnCode != nil {
			fmt.Fprintf(&b, "   Return Code: %d\n", *rec.ReturnCode)
		}
	}
	return b.String()
}

func init() {
	historyCmd.Flags().IntP("limit", "l", 10, "Number of history entries to display")
	rootCmd.AddCommand(historyCmd)
}
