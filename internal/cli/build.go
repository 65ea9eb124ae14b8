package cli

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/GabrielNunesIT/data-logger/internal/config"
	"github.com/GabrielNunesIT/data-logger/internal/sink"
	"github.com/GabrielNunesIT/data-logger/internal/source"
)

// managedSource is a data source the run command owns.
type managedSource interface {
	source.DataSource
	Close() error
}

// buildSource creates and connects the configured data source.
func buildSource(ctx context.Context, cfg config.SourceConfig, log *zap.SugaredLogger) (managedSource, error) {
	switch cfg.Kind {
	case config.SourceSim:
		src := source.NewSimSource(cfg.Sim, log)
		if err := src.Start(context.Background()); err != nil {
			return nil, fmt.Errorf("starting sim source: %w", err)
		}
		return src, nil

	case config.SourceMQTT:
		src := source.NewMQTTSource(cfg.MQTT, log)
		if err := src.Connect(ctx); err != nil {
			return nil, err
		}
		return src, nil

	default:
		return nil, fmt.Errorf("unknown source kind %q", cfg.Kind)
	}
}

// buildSinks creates every enabled sink behind one fan-out.
func buildSinks(cfg config.SinkConfig, log *zap.SugaredLogger) (*sink.Multi, error) {
	var sinks []sink.Sink

	if cfg.File.Enabled {
		sinks = append(sinks, sink.NewFileSink(cfg.File, log))
	}
	if cfg.Stdout.Enabled {
		sinks = append(sinks, sink.NewStdoutSink(cfg.Stdout, log))
	}
	if cfg.Influx.Enabled {
		sinks = append(sinks, sink.NewInfluxSink(cfg.Influx, log))
	}
	if cfg.Elasticsearch.Enabled {
		sinks = append(sinks, sink.NewElasticsearchSink(cfg.Elasticsearch, log))
	}

	if len(sinks) == 0 {
		return nil, fmt.Errorf("no sinks enabled")
	}

	log.Debugf("built %d sinks", len(sinks))
	return sink.NewMulti(sinks...), nil
}
