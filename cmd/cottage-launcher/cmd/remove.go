package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// removeCmd deletes an instance's directory.
var removeCmd = &cobra.Command{
	Use:   "remove <instance>",
	Short: "Remove an installed instance.",
	Long: `Deletes the instance's directory, including its runtime, settings, and
saves. The shared library cache is untouched; other instances keep every
library they reference.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
		defer stop()

		environment, err := loadEnv(ctx)
		if err != nil {
			return err
		}

		if err = environment.installer.Remove(ctx, args[0]); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Removed instance %q\n", args[0])

		return nil
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.AddCommand(removeCmd)
}
