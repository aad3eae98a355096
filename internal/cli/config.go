package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ward-launcher/ward/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Work with launch configuration files",
	}
	cmd.AddCommand(newConfigCheckCmd())
	return cmd
}

func newConfigCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check FILE.toml",
		Short: "Validate a launch configuration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			launch, err := config.FromFile(args[0])
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Launch %s loaded from %s\n", launch.GameID, args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "  exe:    %s\n", launch.Exe)
			fmt.Fprintf(cmd.OutOrStdout(), "  prefix: %s\n", launch.Prefix)
			fmt.Fprintf(cmd.OutOrStdout(), "  proton: %s\n", launch.Proton)
			if len(launch.LaunchArgs) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "  args:   %v\n", launch.LaunchArgs)
			}
			return nil
		},
	}
	return cmd
}
