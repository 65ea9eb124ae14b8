package sink

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/GabrielNunesIT/data-logger/internal/config"
	"github.com/GabrielNunesIT/data-logger/internal/model"
)

// FileFactory opens the output file of one channel.
type FileFactory func(path string) (io.WriteCloser, error)

// FileOption configures the FileSink.
type FileOption func(*FileSink)

// WithFileFactory sets a custom factory for opening channel files.
func WithFileFactory(f FileFactory) FileOption {
	return func(s *FileSink) {
		s.factory = f
	}
}

// FileSink writes one text file per channel, one record per line.
type FileSink struct {
	cfg     config.FileSinkConfig
	factory FileFactory
	logger  *zap.SugaredLogger
}

// NewFileSink creates a new file sink.
func NewFileSink(cfg config.FileSinkConfig, log *zap.SugaredLogger, opts ...FileOption) *FileSink {
	if cfg.Extension == "" {
		cfg.Extension = ".txt"
	}

	s := &FileSink{
		cfg:    cfg,
		logger: log.Named("FileSink"),
	}

	// Default factory truncates or creates the file, creating the directory first
	s.factory = func(path string) (io.WriteCloser, error) {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
		return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the sink identifier.
func (s *FileSink) Name() string {
	return "file"
}

// Path returns the output path of a channel.
func (s *FileSink) Path(channel string) string {
	return filepath.Join(s.cfg.Dir, channel+s.cfg.Extension)
}

// Write writes every channel to its own file.
func (s *FileSink) Write(_ context.Context, snap *Snapshot) error {
	var errs error
	for _, ch := range snap.Channels {
		path := s.Path(ch.Name)
		if err := s.writeChannel(path, ch.Records); err != nil {
			s.logger.Errorf("channel flush failed: channel=%s, path=%s, error=%v", ch.Name, path, err)
			channelFailed(&errs, s.Name(), ch.Name, err)
			continue
		}
		s.logger.Debugf("channel flushed: channel=%s, path=%s, records=%d", ch.Name, path, len(ch.Records))
	}
	return errs
}

func (s *FileSink) writeChannel(path string, records []model.Value) (err error) {
	w, err := s.factory(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() {
		if cerr := w.Close(); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("closing %s: %w", path, cerr))
		}
	}()

	bw := bufio.NewWriter(w)
	for _, r := range records {
		if _, err := bw.WriteString(model.FormatValue(r)); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		if err := bw.WriteByte('\n'); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
