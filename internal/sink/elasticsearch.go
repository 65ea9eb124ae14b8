package sink

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esutil"
	"github.com/goccy/go-json"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/GabrielNunesIT/data-logger/internal/config"
)

// IndexerFactory creates a new BulkIndexer.
type IndexerFactory func(cfg config.ElasticsearchSinkConfig) (esutil.BulkIndexer, error)

// ElasticsearchOption configures the ElasticsearchSink.
type ElasticsearchOption func(*ElasticsearchSink)

// WithIndexerFactory sets a custom factory for creating the BulkIndexer.
// This is primarily used for testing to inject a mock indexer.
func WithIndexerFactory(f IndexerFactory) ElasticsearchOption {
	return func(s *ElasticsearchSink) {
		s.factory = f
	}
}

// ElasticsearchSink indexes one document per record.
type ElasticsearchSink struct {
	cfg     config.ElasticsearchSinkConfig
	factory IndexerFactory
	logger  *zap.SugaredLogger
}

// NewElasticsearchSink creates a new Elasticsearch sink.
func NewElasticsearchSink(cfg config.ElasticsearchSinkConfig, log *zap.SugaredLogger, opts ...ElasticsearchOption) *ElasticsearchSink {
	s := &ElasticsearchSink{
		cfg:    cfg,
		logger: log.Named("ElasticsearchSink"),
	}

	// Default factory creates real client and indexer
	s.factory = func(cfg config.ElasticsearchSinkConfig) (esutil.BulkIndexer, error) {
		esCfg := elasticsearch.Config{
			Addresses: cfg.Addresses,
		}

		if cfg.Username != "" {
			esCfg.Username = cfg.Username
			esCfg.Password = cfg.Password
		}

		client, err := elasticsearch.NewClient(esCfg)
		if err != nil {
			return nil, fmt.Errorf("creating elasticsearch client: %w", err)
		}

		return esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
			Client:        client,
			Index:         cfg.Index,
			NumWorkers:    2,
			FlushBytes:    5e+6, // 5MB
			FlushInterval: cfg.FlushInterval,
		})
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the sink identifier.
func (s *ElasticsearchSink) Name() string {
	return "elasticsearch"
}

type recordDoc struct {
	Timestamp string `json:"@timestamp"`
	Worker    string `json:"worker"`
	Session   string `json:"session"`
	Channel   string `json:"channel"`
	Seq       int    `json:"seq"`
	Value     any    `json:"value"`
}

// Write indexes the snapshot through one bulk indexer and closes it.
// Per-item failures reported by the indexer are attributed to their channel.
func (s *ElasticsearchSink) Write(ctx context.Context, snap *Snapshot) error {
	indexer, err := s.factory(s.cfg)
	if err != nil {
		return err
	}

	var (
		mu       sync.Mutex
		failures = make(map[string]error)
	)
	onFailure := func(channel string) func(context.Context, esutil.BulkIndexerItem, esutil.BulkIndexerResponseItem, error) {
		return func(_ context.Context, _ esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
			if err == nil {
				err = fmt.Errorf("%s: %s", res.Error.Type, res.Error.Reason)
			}
			mu.Lock()
			failures[channel] = multierr.Append(failures[channel], err)
			mu.Unlock()
		}
	}

	var errs error
	for _, ch := range snap.Channels {
		if err := s.addChannel(ctx, indexer, snap, ch, onFailure(ch.Name)); err != nil {
			s.logger.Errorf("channel index failed: channel=%s, error=%v", ch.Name, err)
			channelFailed(&errs, s.Name(), ch.Name, err)
		}
	}

	if err := indexer.Close(ctx); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("closing bulk indexer: %w", err))
	}

	// OnFailure callbacks have all run once Close returns.
	mu.Lock()
	defer mu.Unlock()
	for _, ch := range snap.Channels {
		if err, ok := failures[ch.Name]; ok {
			s.logger.Errorf("documents rejected: channel=%s, error=%v", ch.Name, err)
			channelFailed(&errs, s.Name(), ch.Name, err)
		}
	}
	return errs
}

func (s *ElasticsearchSink) addChannel(ctx context.Context, indexer esutil.BulkIndexer, snap *Snapshot, ch Channel,
	onFailure func(context.Context, esutil.BulkIndexerItem, esutil.BulkIndexerResponseItem, error)) error {
	for i, r := range ch.Records {
		data, err := json.Marshal(recordDoc{
			Timestamp: snap.Start.Add(time.Duration(i)).Format(time.RFC3339Nano),
			Worker:    snap.Worker,
			Session:   snap.Session,
			Channel:   ch.Name,
			Seq:       i,
			Value:     jsonValue(r),
		})
		if err != nil {
			return err
		}

		err = indexer.Add(ctx, esutil.BulkIndexerItem{
			Action:    "index",
			Body:      bytes.NewReader(data),
			OnFailure: onFailure,
		})
		if err != nil {
			return fmt.Errorf("adding document %d: %w", i, err)
		}
	}
	return nil
}
