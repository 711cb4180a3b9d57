package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	// modVersion optionally pins an exact catalog version for mod add.
	modVersion string

	// modCmd groups content management on an existing instance.
	modCmd = &cobra.Command{
		Use:   "mod",
		Short: "Manage mods and other content in an instance.",
	}

	// modAddCmd installs one content project into an instance.
	modAddCmd = &cobra.Command{
		Use:   "add <instance> <project-id>",
		Short: "Add a mod, resource pack, or shader to an instance.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			environment, err := loadEnv(ctx)
			if err != nil {
				return err
			}

			inst, err := environment.installer.AddContent(ctx, args[0], args[1], modVersion)
			if err != nil {
				return err
			}

			added := inst.Content[len(inst.Content)-1]

			fmt.Fprintf(cmd.OutOrStdout(), "Added %s to %q\n", added.FileName, inst.Slug)

			return nil
		},
	}

	// modRemoveCmd removes recorded content from an instance.
	modRemoveCmd = &cobra.Command{
		Use:   "remove <instance> <project-id-or-file>",
		Short: "Remove previously added content from an instance.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			environment, err := loadEnv(ctx)
			if err != nil {
				return err
			}

			inst, err := environment.installer.RemoveContent(ctx, args[0], args[1])
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s from %q\n", args[1], inst.Slug)

			return nil
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	modAddCmd.Flags().StringVarP(&modVersion, "version", "v", "", "exact catalog version id to add")

	modCmd.AddCommand(modAddCmd, modRemoveCmd)
	rootCmd.AddCommand(modCmd)
}
