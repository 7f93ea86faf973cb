package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"rehydrate/internal/config"
)

var rehydrateCmd = &cobra.Command{
	Use:   "rehydrate",
	Short: "Perform global rehydration for an environment",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newCoordinator(cmd)
		if err != nil {
			return err
		}

		environment, _ := cmd.Flags().GetString("environment")
		force, _ := cmd.Flags().GetBool("force")

		ov := config.Overrides{Force: force}
		if verify, _ := cmd.Flags().GetBool("verify"); verify {
			v := true
			ov.VerifyIntegrity = &v
		}
		if noVerify, _ := cmd.Flags().GetBool("no-verify"); noVerify {
			v := false
			ov.VerifyIntegrity = &v
		}
		if cmd.Flags().Changed("timeout") {
			t, _ := cmd.Flags().GetInt("timeout")
			ov.TimeoutSeconds = &t
		}

		res, err := c.Rehydrate(cmd.Context(), environment, ov)
		if err != nil {
			return err
		}

		fmt.Println(res.Message)
		if res.PersistErr != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", res.PersistErr)
		}

		if res.Skipped {
			return &exitError{code: exitSkipped}
		}
		if !res.Success {
			return &exitError{code: exitFailure}
		}
		return nil
	},
}

func init() {
	rehydrateCmd.Flags().StringP("environment", "e", "", "Target environment (e.g. production, staging, development)")
	rehydrateCmd.Flags().BoolP("verify", "v", false, "Verify system integrity after rehydration")
	rehydrateCmd.Flags().Bool("no-verify", false, "Skip system integrity verification")
	rehydrateCmd.Flags().BoolP("force", "f", false, "Force rehydration even if already hydrated")
	rehydrateCmd.Flags().Int("timeout", 0, "Routine timeout in seconds (overrides configuration)")
	rehydrateCmd.MarkFlagsMutuallyExclusive("verify", "no-verify")
	rootCmd.AddCommand(rehydrateCmd)
}
