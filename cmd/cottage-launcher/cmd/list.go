package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// listCmd prints the installed instances.
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed instances.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
		defer stop()

		environment, err := loadEnv(ctx)
		if err != nil {
			return err
		}

		list, err := environment.repo.List(ctx)
		if err != nil {
			return err
		}

		if len(list) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No instances installed.")

			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "INSTANCE\tPACK\tGAME\tSTATUS\tLAST LAUNCHED")

		for _, inst := range list {
			lastLaunched := "never"
			if inst.LastLaunchedAt != nil {
				lastLaunched = inst.LastLaunchedAt.Local().Format("2006-01-02 15:04")
			}

			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				inst.Slug, inst.Name, inst.GameVersion, inst.Status, lastLaunched)
		}

		return w.Flush()
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.AddCommand(listCmd)
}
