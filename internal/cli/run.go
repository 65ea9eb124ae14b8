package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/GabrielNunesIT/data-logger/internal/config"
	"github.com/GabrielNunesIT/data-logger/internal/metrics"
	"github.com/GabrielNunesIT/data-logger/internal/worker"
)

// NewRunCmd creates the run command.
func NewRunCmd(cfgFile, logLevel *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start a logging session and flush it on shutdown",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorker(cmd, cfgFile, logLevel)
		},
	}

	// Worker flags
	cmd.Flags().String("mode", "", "logging mode (ft-sensor, joint-angles)")
	cmd.Flags().String("name", "", "worker name")
	cmd.Flags().StringSlice("channel", nil, "channel identifier, one output per channel (repeatable)")
	cmd.Flags().Duration("duration", 0, "stop automatically after this long (0 = until signalled)")

	// Source flags
	cmd.Flags().String("source", "", "data source (sim, mqtt)")

	// Sink flags
	cmd.Flags().String("output-dir", "", "directory for channel files (enables file sink)")
	cmd.Flags().Bool("stdout", false, "enable stdout sink")
	cmd.Flags().String("stdout-format", "", "stdout output format (json, text)")

	// Hot-reload flag
	cmd.Flags().Bool("hot-reload", true, "apply log level changes from the config file while running")

	return cmd
}

func runWorker(cmd *cobra.Command, cfgFile, logLevel *string) error {
	cfg, err := config.Load(*cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	applyCLIOverrides(cmd, cfg)
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log, level, syncLog := SetupLogging(cfg.LogLevel, cfg.LogFile)
	defer syncLog()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src, err := buildSource(ctx, cfg.Source, log)
	if err != nil {
		return fmt.Errorf("creating source: %w", err)
	}
	defer func() {
		if err := src.Close(); err != nil {
			log.Warnf("source close error: %v", err)
		}
	}()

	snk, err := buildSinks(cfg.Sinks, log)
	if err != nil {
		return fmt.Errorf("creating sinks: %w", err)
	}
	defer func() {
		if err := snk.Close(); err != nil {
			log.Warnf("sink close error: %v", err)
		}
	}()

	w, err := worker.New(cfg.Worker, src, snk, log, worker.WithSamplerConfig(cfg.Sampler))
	if err != nil {
		return fmt.Errorf("creating worker: %w", err)
	}

	if !w.WaitStartup(cfg.Worker.StartupTimeout) {
		log.Warnf("worker did not start within %v: state=%s", cfg.Worker.StartupTimeout, w.State())
	} else {
		log.Infof("logging session started: worker=%s, session=%s, mode=%s, source=%s, sinks=%d",
			w.Name(), w.SessionID(), cfg.Worker.Mode, cfg.Source.Kind, len(snk.Sinks()))
		notifySystemd(log, daemon.SdNotifyReady)
	}

	g, gCtx := errgroup.WithContext(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan)

	g.Go(func() error {
		return handleSignals(gCtx, cancel, sigChan, cfgFile, level, log)
	})

	g.Go(func() error {
		select {
		case <-w.Done():
			log.Warn("worker terminated without a stop request")
			cancel()
		case <-gCtx.Done():
		}
		return nil
	})

	if d := cfg.Worker.Duration; d > 0 {
		g.Go(func() error {
			t := time.NewTimer(d)
			defer t.Stop()
			select {
			case <-t.C:
				log.Infof("duration elapsed: %v", d)
				cancel()
			case <-gCtx.Done():
			}
			return nil
		})
	}

	if cfg.Metrics.Enabled {
		srv := metrics.NewServer(cfg.Metrics.Address, func() error {
			if !w.Running() {
				return fmt.Errorf("worker %s is %s", w.Name(), w.State())
			}
			return nil
		}, log)
		g.Go(func() error {
			return srv.Run(gCtx)
		})
	}

	hotReloadEnabled, _ := cmd.Flags().GetBool("hot-reload")
	if *cfgFile != "" && hotReloadEnabled {
		if err := startConfigWatcher(gCtx, g, *cfgFile, cfg, level, log); err != nil {
			log.Warnf("failed to start config watcher: %v", err)
		}
	}

	groupErr := g.Wait()

	notifySystemd(log, daemon.SdNotifyStopping)
	if err := w.Stop(); err != nil && !errors.Is(err, worker.ErrAlreadyStopped) {
		log.Warnf("stop failed: %v", err)
	}

	if !w.WaitTerminated(cfg.Worker.TerminateTimeout) {
		return fmt.Errorf("worker %s did not terminate within %v", w.Name(), cfg.Worker.TerminateTimeout)
	}

	if err := w.Err(); err != nil {
		return fmt.Errorf("logging session failed: %w", err)
	}
	if groupErr != nil {
		return groupErr
	}

	log.Info("logging session complete")
	return nil
}

func startConfigWatcher(ctx context.Context, g *errgroup.Group, path string, initial *config.Config, level zap.AtomicLevel, log *zap.SugaredLogger) error {
	watcher := config.NewConfigWatcher(path, initial, log)
	if err := watcher.Start(ctx); err != nil {
		return err
	}

	log.Infof("hot-reload enabled: config=%s", path)

	g.Go(func() error {
		for {
			select {
			case newCfg := <-watcher.Changes():
				applyLogLevel(level, newCfg.LogLevel, log)
			case err := <-watcher.Errors():
				log.Errorf("config watcher error: %v", err)
			case <-ctx.Done():
				return nil
			}
		}
	})
	return nil
}

func handleSignals(ctx context.Context, cancel context.CancelFunc, sigChan <-chan os.Signal, cfgFile *string, level zap.AtomicLevel, log *zap.SugaredLogger) error {
	for {
		select {
		case sig := <-sigChan:
			switch sig {
			case syscall.SIGHUP:
				log.Info("received SIGHUP, reloading log level")
				newCfg, err := config.Load(*cfgFile)
				if err != nil {
					log.Errorf("failed to reload config: %v", err)
					continue
				}
				applyLogLevel(level, newCfg.LogLevel, log)
			case syscall.SIGINT, syscall.SIGTERM:
				log.Infof("received shutdown signal: %v", sig)
				cancel()
				return nil
			}
		case <-ctx.Done():
			return nil
		}
	}
}

func applyLogLevel(level zap.AtomicLevel, name string, log *zap.SugaredLogger) {
	next := ParseLevel(name)
	if level.Level() == next {
		return
	}
	level.SetLevel(next)
	log.Infof("log level changed: level=%s", next)
}

func notifySystemd(log *zap.SugaredLogger, state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		log.Warnf("sd_notify failed: state=%s, error=%v", state, err)
		return
	}
	if !sent {
		log.Debugf("sd_notify not supported: state=%s", state)
	}
}

func applyCLIOverrides(cmd *cobra.Command, cfg *config.Config) {
	if v, _ := cmd.Flags().GetString("mode"); v != "" {
		cfg.Worker.Mode = v
	}
	if v, _ := cmd.Flags().GetString("name"); v != "" {
		cfg.Worker.Name = v
	}
	if channels, _ := cmd.Flags().GetStringSlice("channel"); len(channels) > 0 {
		cfg.Worker.Channels = channels
	}
	if cmd.Flags().Changed("duration") {
		cfg.Worker.Duration, _ = cmd.Flags().GetDuration("duration")
	}
	if v, _ := cmd.Flags().GetString("source"); v != "" {
		cfg.Source.Kind = v
	}
	if dir, _ := cmd.Flags().GetString("output-dir"); dir != "" {
		cfg.Sinks.File.Enabled = true
		cfg.Sinks.File.Dir = dir
	}
	if v, _ := cmd.Flags().GetBool("stdout"); v {
		cfg.Sinks.Stdout.Enabled = true
	}
	if format, _ := cmd.Flags().GetString("stdout-format"); format != "" {
		cfg.Sinks.Stdout.Format = format
	}
}
