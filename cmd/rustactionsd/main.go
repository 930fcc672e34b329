// Command rustactionsd runs the rustactions daemon without the CLI wrapper,
// for service managers that expect a dedicated binary.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"rustactions/internal/config"
	"rustactions/internal/daemonrun"
)

func newRootCommand() *cobra.Command {
	var configPath string
	var logLevel string
	var development bool
	cmd := &cobra.Command{
		Use:           "rustactionsd",
		Short:         "Run the rustactions daemon",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, _, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				LogLevel:    logLevel,
				Development: development,
			})
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", os.Getenv("RUSTACTIONS_CONFIG"), "Configuration file path")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override logging.level")
	cmd.Flags().BoolVar(&development, "development", false, "Include source locations in logs")
	return cmd
}

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
