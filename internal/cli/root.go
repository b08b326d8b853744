package cli

import (
	"github.com/spf13/cobra"

	"lms-progress-service/internal/config"
)

var (
	port       string
	configPath string
)

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

// newRootCmd wires the subcommands. The --port flag wins over PORT and the
// config file; both of those are resolved by config.Load.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "lms-progress-service",
		Short:        "Course progress, enrollment and learning analytics service",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&port, "port", "", "port to listen on (overrides PORT and server.port)")
	cmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "path to YAML config (default from CONFIG_PATH)")
	cmd.AddCommand(NewStartCmd(&configPath, &port))
	cmd.AddCommand(NewMigrateCmd(&configPath))
	return cmd
}
