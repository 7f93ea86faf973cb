package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"rehydrate/internal/config"
	"rehydrate/internal/coordinator"
	"rehydrate/internal/invoker"
	"rehydrate/internal/logging"
	"rehydrate/internal/platform"
	"rehydrate/internal/state"
)

var rootCmd = &cobra.Command{
	Use:   "rehydratectl",
	Short: "Cross-platform global rehydration coordinator",
	Long: `rehydratectl restores a target environment to a known-good operational
state by dispatching the platform's restoration routine, recording every
attempt in a durable history.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Exit codes for the rehydrate operation. A guard-blocked call is
// routine operational behavior, distinct from a routine failure.
const (
	exitFailure = 1
	exitSkipped = 2
)

// exitError carries a specific process exit code up through cobra.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

// Execute runs the root command and maps errors to exit codes.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			if ee.msg != "" {
				fmt.Fprintln(os.Stderr, ee.msg)
			}
			os.Exit(ee.code)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", config.ResolveFilePath(os.Environ()), "Path to the configuration file")
	rootCmd.PersistentFlags().String("manifest", platform.ResolveManifestPath(os.Environ()), "Path to the routine manifest")
	rootCmd.PersistentFlags().String("state", state.ResolvePath(os.Environ()), "Path to the state file")
}

// newCoordinator assembles the coordinator from the persistent flags.
func newCoordinator(cmd *cobra.Command) (*coordinator.Coordinator, error) {
	configPath, _ := cmd.Flags().GetString("config")
	manifestPath, _ := cmd.Flags().GetString("manifest")
	statePath, _ := cmd.Flags().GetString("state")

	file, err := config.LoadFile(configPath)
	if err != nil {
		return nil, err
	}
	resolver := config.NewResolver(file)

	manifest, err := platform.LoadManifest(manifestPath)
	if err != nil {
		return nil, err
	}

	log := logging.New(resolver.LogLevel())
	store := state.NewStore(statePath)

	return coordinator.New(store, resolver, manifest, platform.Current(), &invoker.Exec{}, log), nil
}
