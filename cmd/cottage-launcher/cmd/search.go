package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	// searchLimit caps how many results are shown.
	searchLimit int

	// searchCmd queries the catalog for packs.
	searchCmd = &cobra.Command{
		Use:   "search <query>...",
		Short: "Search the catalog for packs.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			environment, err := loadEnv(ctx)
			if err != nil {
				return err
			}

			hits, err := environment.catalog.Search(ctx, strings.Join(args, " "), searchLimit)
			if err != nil {
				return err
			}

			if len(hits) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No packs found.")

				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SLUG\tTITLE\tDOWNLOADS\tDESCRIPTION")

			for _, hit := range hits {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
					hit.Slug, hit.Title, hit.Downloads, truncate(hit.Description, 60))
			}

			return w.Flush()
		},
	}
)

// truncate shortens s to at most n runes for table output.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}

	return string(runes[:n-1]) + "…"
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "l", 0, "maximum number of results")

	rootCmd.AddCommand(searchCmd)
}
