package main

import (
	"os"

	"github.com/maloquacious/semver"
	"github.com/spf13/cobra"

	"github.com/DaDevFox/task-systems/household-core/internal/logging"
)

var version = semver.Version{Minor: 1, PreRelease: "alpha", Build: semver.Commit()}

var configFile string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logging.WithError(err).Error("command failed")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "household",
		Short:         "Household inventory tracker core",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: household.yaml in ./config or .)")

	rootCmd.AddCommand(
		newServeCmd(),
		newDBCmd(),
		newSeedCmd(),
		newAlertsCmd(),
		newJobsCmd(),
		newVersionCmd(),
	)
	return rootCmd
}
