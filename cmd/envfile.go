package cmd

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/spf13/cobra"
)

var envfileCmd = &cobra.Command{
	Use:   "envfile <runtemplate-id>",
	Short: "Print the composed environment of a run template as KEY='value' lines",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid run template id %q", args[0])
		}

		ctx := context.Background()
		appDep, err := NewAppDependency(ctx)
		if err != nil {
			return fmt.Errorf("failed to create app dependency: %w", err)
		}
		defer func() {
			if err := appDep.Close(); err != nil {
				log.Printf("Failed to close app dependency: %v", err)
			}
		}()

		out, err := appDep.Services().RunTemplateService.EnvFile(ctx, uint(id))
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), out)
		return err
	},
}
