package cli

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ward-launcher/ward/internal/config"
	"github.com/ward-launcher/ward/internal/logging"
	"github.com/ward-launcher/ward/internal/reaper"
)

func newReapCmd() *cobra.Command {
	grace := graceFromEnv()
	var id string

	cmd := &cobra.Command{
		Use:   "reap [--id ID] [--grace DURATION] -- COMMAND [ARG...]",
		Short: "Supervise a command until its whole process tree has exited",
		Long: `Reap starts COMMAND as the root of a supervised process tree and exits only
once every descendant, however deeply reparented, has terminated. The exit
code mirrors the root: its own code for a clean exit, 128+N when signal N
killed it.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.New()
			defer log.Sync()

			sup, err := reaper.New(args, reaper.Config{
				ID:          id,
				GracePeriod: grace,
				Logger:      log,
			})
			if err != nil {
				log.Error("invalid invocation", zap.Error(err))
				return exitCodeError(reaper.ExitCodeLaunchFailure)
			}

			code, err := sup.Run()
			if err != nil {
				log.Error("supervision failed", zap.Error(err))
			}
			if code != 0 {
				return exitCodeError(code)
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&grace, "grace", grace,
		"How long the tree may take to exit voluntarily after a termination request")
	cmd.Flags().StringVar(&id, "id", "", "Launch identifier used in log output")

	return cmd
}

func graceFromEnv() time.Duration {
	if value := os.Getenv(config.EnvGrace); value != "" {
		if grace, err := time.ParseDuration(value); err == nil && grace > 0 {
			return grace
		}
	}
	return reaper.DefaultGracePeriod
}
