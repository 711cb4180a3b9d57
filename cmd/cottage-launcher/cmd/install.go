package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/WillHanighen/CottageLauncher/internal/service/installer"
)

var (
	// installSlug optionally overrides the derived instance name.
	installSlug string
	// installVersion optionally pins an exact catalog version.
	installVersion string

	// installCmd creates a new instance from a catalog pack.
	installCmd = &cobra.Command{
		Use:   "install <pack-id>",
		Short: "Install a pack as a new instance.",
		Long: `Resolves a pack from the catalog and materializes a launch-ready instance:
shared libraries land in the library cache, pack files in the instance
directory, and a matching Java runtime is provisioned alongside.

The pack can be named by catalog id or slug. Without --version the newest
compatible version is installed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			environment, err := loadEnv(ctx)
			if err != nil {
				return err
			}

			inst, err := environment.installer.Create(ctx, &installer.CreateRequest{
				Slug:      installSlug,
				PackID:    args[0],
				VersionID: installVersion,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			fmt.Fprintf(out, "Installed %s as instance %q (game %s, loader %s)\n",
				inst.Name, inst.Slug, inst.GameVersion, inst.LoaderVersion)

			for _, warning := range inst.Warnings {
				fmt.Fprintf(out, "warning: %s\n", warning)
			}

			return nil
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	installCmd.Flags().StringVarP(&installSlug, "name", "n", "", "instance name (derived from the pack title if omitted)")
	installCmd.Flags().StringVarP(&installVersion, "version", "v", "", "exact catalog version id to install")

	rootCmd.AddCommand(installCmd)
}
