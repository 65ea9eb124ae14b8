package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	var (
		cfgFile  string
		logLevel string
	)

	rootCmd := &cobra.Command{
		Use:   "data-logger",
		Short: "Background logger for force/torque sensors and robot joint states",
		Long: `data-logger samples a live data source in one of several logging modes,
keeps every reading in memory and writes one output per channel when the
session is stopped.

Modes:
  ft-sensor     poll a force/torque sensor, one averaged row per reading
  joint-angles  record joint events pushed by a robot controller

Stopping (SIGINT/SIGTERM or --duration) always drains the buffers before exit.

Hot-reload: When a config file is specified, log level changes are applied
without requiring a restart.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		NewRunCmd(&cfgFile, &logLevel),
		NewValidateCmd(&cfgFile),
		NewVersionCmd(),
	)

	return rootCmd
}

// Execute builds and runs the CLI.
func Execute() error {
	return NewRootCmd().Execute()
}
