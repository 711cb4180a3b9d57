package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/WillHanighen/CottageLauncher/internal/launch"
	"github.com/WillHanighen/CottageLauncher/internal/logger"
)

// stopGrace is how long a terminating game gets to save and exit before it
// is killed.
const stopGrace = 30 * time.Second

var (
	// launchDetach leaves the game running instead of waiting on it.
	launchDetach bool

	// launchCmd starts an installed instance's game process.
	launchCmd = &cobra.Command{
		Use:   "launch <instance>",
		Short: "Launch an installed instance.",
		Long: `Starts the instance's game process with a freshly computed classpath and
streams its output to the instance's launch log.

By default the command waits for the game to exit; interrupting it asks the
game to shut down gracefully first. With --detach the game keeps running
after the command returns.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			environment, err := loadEnv(ctx)
			if err != nil {
				return err
			}

			handle, err := environment.launcher.Launch(ctx, args[0])
			if err != nil {
				return err
			}

			if launchDetach {
				fmt.Fprintf(cmd.OutOrStdout(), "Launched %s (pid %d)\n", args[0], handle.PID())

				return nil
			}

			err = handle.Wait(ctx)

			switch {
			case errors.Is(err, context.Canceled):
				logger.Info(ctx, "Stopping game")

				return handle.Stop(stopGrace)
			case err != nil:
				var exitErr *launch.GameExitError
				if errors.As(err, &exitErr) {
					// The game ran and died on its own; relay, don't fail.
					logger.WarnKV(ctx, "Game exited with an error", "code", exitErr.Code)

					return nil
				}

				return err
			default:
				return nil
			}
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	launchCmd.Flags().BoolVarP(&launchDetach, "detach", "d", false, "do not wait for the game to exit")

	rootCmd.AddCommand(launchCmd)
}
