package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/WillHanighen/CottageLauncher/internal/service/selfupdate"
)

// upgradeCmd updates the launcher binary itself from the release channel.
var upgradeCmd = &cobra.Command{
	Use:   "upgrade",
	Short: "Update the launcher to the latest release.",
	Long: `Compares the running binary against the release channel's published
digests and replaces it in place when a newer build is available. The swap
is atomic and verified, so a failed download never leaves a broken launcher.`,
	Args: cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
		defer stop()

		return selfupdate.Run(ctx, &selfupdate.Options{
			ConfigPath: configPath,
		})
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.AddCommand(upgradeCmd)
}
