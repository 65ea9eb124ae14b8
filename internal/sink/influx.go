package sink

import (
	"context"
	"fmt"
	"strconv"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"go.uber.org/zap"

	"github.com/GabrielNunesIT/data-logger/internal/config"
	"github.com/GabrielNunesIT/data-logger/internal/model"
)

// influxBatchSize bounds the points sent in one blocking write.
const influxBatchSize = 5000

// InfluxOption configures the InfluxSink.
type InfluxOption func(*InfluxSink)

// WithWriteAPI replaces the client-backed write API.
func WithWriteAPI(w api.WriteAPIBlocking) InfluxOption {
	return func(s *InfluxSink) {
		s.writeAPI = w
	}
}

// InfluxSink writes one point per record to InfluxDB.
// Records of a channel are spaced one nanosecond apart after the session
// start so their order survives as time order.
type InfluxSink struct {
	cfg      config.InfluxSinkConfig
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	logger   *zap.SugaredLogger
}

// NewInfluxSink creates a new InfluxDB sink.
func NewInfluxSink(cfg config.InfluxSinkConfig, log *zap.SugaredLogger, opts ...InfluxOption) *InfluxSink {
	if cfg.Measurement == "" {
		cfg.Measurement = "datalogger"
	}

	s := &InfluxSink{
		cfg:    cfg,
		logger: log.Named("InfluxSink"),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.writeAPI == nil {
		s.client = influxdb2.NewClient(cfg.URL, cfg.Token)
		s.writeAPI = s.client.WriteAPIBlocking(cfg.Org, cfg.Bucket)
	}
	return s
}

// Name returns the sink identifier.
func (s *InfluxSink) Name() string {
	return "influx"
}

// Write sends every channel as its own series.
func (s *InfluxSink) Write(ctx context.Context, snap *Snapshot) error {
	var errs error
	for _, ch := range snap.Channels {
		if err := s.writeChannel(ctx, snap, ch); err != nil {
			s.logger.Errorf("channel write failed: channel=%s, error=%v", ch.Name, err)
			channelFailed(&errs, s.Name(), ch.Name, err)
			continue
		}
		s.logger.Debugf("channel written: channel=%s, points=%d", ch.Name, len(ch.Records))
	}
	return errs
}

func (s *InfluxSink) writeChannel(ctx context.Context, snap *Snapshot, ch Channel) error {
	tags := map[string]string{
		"worker":  snap.Worker,
		"session": snap.Session,
		"channel": ch.Name,
	}

	batch := make([]*write.Point, 0, min(len(ch.Records), influxBatchSize))
	for i, r := range ch.Records {
		batch = append(batch, influxdb2.NewPoint(
			s.cfg.Measurement,
			tags,
			pointFields(r, i),
			snap.Start.Add(time.Duration(i)),
		))
		if len(batch) == influxBatchSize {
			if err := s.writeAPI.WritePoint(ctx, batch...); err != nil {
				return fmt.Errorf("writing points: %w", err)
			}
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		if err := s.writeAPI.WritePoint(ctx, batch...); err != nil {
			return fmt.Errorf("writing points: %w", err)
		}
	}
	return nil
}

// pointFields stores a scalar as "value" and a vector as v0..vn.
func pointFields(v model.Value, seq int) map[string]interface{} {
	fields := map[string]interface{}{"seq": int64(seq)}
	switch x := v.(type) {
	case model.Scalar:
		fields["value"] = float64(x)
	case model.Vector:
		for i, f := range x {
			fields["v"+strconv.Itoa(i)] = f
		}
	}
	return fields
}

// Close releases the client connection.
func (s *InfluxSink) Close() error {
	if s.client != nil {
		s.client.Close()
	}
	return nil
}
