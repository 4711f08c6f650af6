package cmd

import (
	"context"
	"fmt"
	"golang-jobrunner/internal/status"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Run a single scheduler pass and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		appDep, err := NewAppDependency(ctx)
		if err != nil {
			return fmt.Errorf("failed to create app dependency: %w", err)
		}
		defer func() {
			if err := appDep.Close(); err != nil {
				log.Printf("Failed to close app dependency: %v", err)
			}
		}()

		collector := status.NewCollector(appDep.log)
		err = appDep.Services().SchedulerService.Execute(status.NewContext(ctx, collector))
		for _, msg := range collector.Messages() {
			fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s\n", msg.Severity, msg.Text)
		}
		return err
	},
}
