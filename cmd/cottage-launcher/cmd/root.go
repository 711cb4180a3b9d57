package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/WillHanighen/CottageLauncher/internal/config"
	"github.com/WillHanighen/CottageLauncher/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string

	// rootCmd represents the base command of the launcher CLI.
	rootCmd = &cobra.Command{
		Use:   "cottage-launcher",
		Short: "Install and launch modpack instances.",
		Long: `Cottage Launcher installs modpack instances from a Modrinth-compatible
catalog and launches them.

Each instance gets its own directory, runtime, and settings; libraries are
verified against their published checksums and shared across instances
through a content-addressed cache.`,
		SilenceUsage: true,
	}
)

// Execute runs the launcher CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
}
