package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kubev2v/guest-inspection-agent/internal/config"
)

// envPrefix prefixes the environment variables bound to flags: --server-http-port is INSPECTOR_SERVER_HTTP_PORT.
const envPrefix = "INSPECTOR"

func NewRootCommand(cfg *config.Configuration) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "guest-inspection-agent",
		Short:        "Inspect the operating system of newly defined virtual machines",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn or error")
	cmd.PersistentFlags().StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format: console or json")

	cmd.AddCommand(
		NewRunCommand(cfg),
		NewInspectCommand(cfg),
	)

	return cmd
}

// Execute is the main entry point called from main.go.
func Execute() error {
	return NewRootCommand(config.NewConfigurationWithOptionsAndDefaults()).ExecuteContext(context.Background())
}
