package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "jobrunner",
	Short: "Recurring job scheduler for tenant run templates",
}

func init() {
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(pollCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(envfileCmd)
}

func Execute() error {
	return rootCmd.Execute()
}
