// Package sink defines where a finished logging session is flushed to, and the
// implementations for files, stdout, InfluxDB and Elasticsearch.
package sink

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/GabrielNunesIT/data-logger/internal/metrics"
	"github.com/GabrielNunesIT/data-logger/internal/model"
)

// Sink receives the sealed buffers of a worker once, during drain.
type Sink interface {
	// Write persists every channel of snap. All channels are attempted; a
	// failing channel is reported as a *ChannelError in the returned error.
	Write(ctx context.Context, snap *Snapshot) error

	// Name returns a unique identifier for this sink.
	Name() string
}

// Channel is one named record sequence, in append order.
type Channel struct {
	Name    string
	Records []model.Value
}

// Snapshot is the flushed state of one session.
type Snapshot struct {
	Worker   string
	Session  string
	Start    time.Time
	Channels []Channel
}

// NewSnapshot pairs channel names with buffered records by index.
func NewSnapshot(worker, session string, start time.Time, names []string, records [][]model.Value) *Snapshot {
	s := &Snapshot{
		Worker:   worker,
		Session:  session,
		Start:    start,
		Channels: make([]Channel, len(names)),
	}
	for i, name := range names {
		s.Channels[i].Name = name
		if i < len(records) {
			s.Channels[i].Records = records[i]
		}
	}
	return s
}

// Records returns the total number of records across channels.
func (s *Snapshot) Records() int {
	n := 0
	for _, ch := range s.Channels {
		n += len(ch.Records)
	}
	return n
}

// ChannelError reports that one channel could not be flushed to a sink.
type ChannelError struct {
	Sink    string
	Channel string
	Err     error
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("sink %s: channel %s: %v", e.Sink, e.Channel, e.Err)
}

func (e *ChannelError) Unwrap() error {
	return e.Err
}

// FailedChannels lists the channels named by the ChannelErrors inside err.
func FailedChannels(err error) []string {
	var out []string
	for _, e := range multierr.Errors(err) {
		var ce *ChannelError
		if errors.As(e, &ce) {
			out = append(out, ce.Channel)
		}
	}
	return out
}

func channelFailed(errs *error, sink, channel string, err error) {
	metrics.FlushErrorsTotal.WithLabelValues(sink).Inc()
	*errs = multierr.Append(*errs, &ChannelError{Sink: sink, Channel: channel, Err: err})
}

// Multi fans a snapshot out to several sinks.
type Multi struct {
	sinks []Sink
}

// NewMulti creates a fan-out sink. Every sink is attempted even when an earlier one fails.
func NewMulti(sinks ...Sink) *Multi {
	return &Multi{sinks: sinks}
}

// Name returns the sink identifier.
func (m *Multi) Name() string {
	return "multi"
}

// Sinks returns the wrapped sinks.
func (m *Multi) Sinks() []Sink {
	return m.sinks
}

// Write forwards snap to every sink and combines their errors.
func (m *Multi) Write(ctx context.Context, snap *Snapshot) error {
	var errs error
	for _, s := range m.sinks {
		if err := s.Write(ctx, snap); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

// Close closes every wrapped sink that holds resources.
func (m *Multi) Close() error {
	var errs error
	for _, s := range m.sinks {
		if c, ok := s.(interface{ Close() error }); ok {
			errs = multierr.Append(errs, c.Close())
		}
	}
	return errs
}
