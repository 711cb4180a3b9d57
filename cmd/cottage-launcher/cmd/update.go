package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	// updateVersion optionally pins the catalog version to update to.
	updateVersion string

	// updateCmd re-installs an instance against a newer pack version.
	updateCmd = &cobra.Command{
		Use:   "update <instance>",
		Short: "Update an instance to a newer pack version.",
		Long: `Resolves the instance's pack again and re-materializes the instance:
new files are fetched, unchanged files are kept, and files the new version
no longer ships are removed. User-added content stays in place.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			environment, err := loadEnv(ctx)
			if err != nil {
				return err
			}

			inst, err := environment.installer.Update(ctx, args[0], updateVersion)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			fmt.Fprintf(out, "Updated %q to version %s (game %s)\n",
				inst.Slug, inst.PackVersion, inst.GameVersion)

			for _, warning := range inst.Warnings {
				fmt.Fprintf(out, "warning: %s\n", warning)
			}

			return nil
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	updateCmd.Flags().StringVarP(&updateVersion, "version", "v", "", "exact catalog version id to update to")

	rootCmd.AddCommand(updateCmd)
}
