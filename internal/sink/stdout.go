package sink

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/GabrielNunesIT/data-logger/internal/config"
	"github.com/GabrielNunesIT/data-logger/internal/model"
)

// StdoutSink prints every record to standard output.
type StdoutSink struct {
	cfg    config.StdoutSinkConfig
	writer io.Writer
	mu     sync.Mutex
	logger *zap.SugaredLogger
}

// NewStdoutSink creates a new stdout sink.
func NewStdoutSink(cfg config.StdoutSinkConfig, log *zap.SugaredLogger) *StdoutSink {
	return NewStdoutSinkWithWriter(cfg, os.Stdout, log)
}

// NewStdoutSinkWithWriter creates a stdout sink with a custom writer (for testing).
func NewStdoutSinkWithWriter(cfg config.StdoutSinkConfig, w io.Writer, log *zap.SugaredLogger) *StdoutSink {
	return &StdoutSink{
		cfg:    cfg,
		writer: w,
		logger: log.Named("StdoutSink"),
	}
}

// Name returns the sink identifier.
func (s *StdoutSink) Name() string {
	return "stdout"
}

// recordJSON is the json line format.
type recordJSON struct {
	Worker  string `json:"worker"`
	Session string `json:"session"`
	Channel string `json:"channel"`
	Seq     int    `json:"seq"`
	Value   any    `json:"value"`
}

// Write prints the snapshot channel by channel.
func (s *StdoutSink) Write(_ context.Context, snap *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bw := bufio.NewWriter(s.writer)

	var errs error
	for _, ch := range snap.Channels {
		for i, r := range ch.Records {
			var line []byte
			var err error

			switch s.cfg.Format {
			case "json":
				line, err = json.Marshal(recordJSON{
					Worker:  snap.Worker,
					Session: snap.Session,
					Channel: ch.Name,
					Seq:     i,
					Value:   jsonValue(r),
				})
			default:
				line = fmt.Appendf(nil, "%s\t%s", ch.Name, model.FormatValue(r))
			}
			if err == nil {
				_, err = bw.Write(append(line, '\n'))
			}
			if err != nil {
				channelFailed(&errs, s.Name(), ch.Name, err)
				break
			}
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flushing stdout: %w", err)
	}
	s.logger.Debugf("snapshot printed: format=%s, records=%d", s.cfg.Format, snap.Records())
	return errs
}

// jsonValue maps a record to a plain number or number array.
func jsonValue(v model.Value) any {
	switch x := v.(type) {
	case model.Scalar:
		return float64(x)
	case model.Vector:
		return []float64(x)
	default:
		return nil
	}
}
