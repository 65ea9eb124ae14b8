package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/GabrielNunesIT/data-logger/internal/config"
	"github.com/GabrielNunesIT/data-logger/internal/sampler"
)

// NewValidateCmd creates the validate command.
func NewValidateCmd(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgFile)
			if err != nil {
				return fmt.Errorf("configuration error: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("configuration error: %w", err)
			}

			registry := sampler.DefaultRegistry()
			factory, err := registry.Lookup(cfg.Worker.Mode)
			if err != nil {
				return fmt.Errorf("worker configuration error: %w (available: %s)", err, strings.Join(registry.Modes(), ", "))
			}
			if err := sampler.CheckChannels(factory(cfg.Sampler), cfg.Worker.Channels); err != nil {
				return fmt.Errorf("worker configuration error: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Configuration valid:\n")
			fmt.Fprintf(out, "  Worker:   %s (mode %s, %d channels)\n", cfg.Worker.Name, cfg.Worker.Mode, len(cfg.Worker.Channels))
			fmt.Fprintf(out, "  Source:   %s\n", cfg.Source.Kind)
			fmt.Fprintf(out, "  Sinks:    %s\n", strings.Join(enabledSinks(cfg.Sinks), ", "))
			return nil
		},
	}
}

func enabledSinks(cfg config.SinkConfig) []string {
	var names []string
	if cfg.File.Enabled {
		names = append(names, "file")
	}
	if cfg.Stdout.Enabled {
		names = append(names, "stdout")
	}
	if cfg.Influx.Enabled {
		names = append(names, "influx")
	}
	if cfg.Elasticsearch.Enabled {
		names = append(names, "elasticsearch")
	}
	return names
}
