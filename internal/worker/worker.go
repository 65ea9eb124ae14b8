// Package worker runs one logging session: it samples a data source with the
// strategy selected by mode until stopped, then drains the buffers to a sink.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/looplab/fsm"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/GabrielNunesIT/data-logger/internal/config"
	"github.com/GabrielNunesIT/data-logger/internal/model"
	"github.com/GabrielNunesIT/data-logger/internal/sampler"
	"github.com/GabrielNunesIT/data-logger/internal/sink"
	"github.com/GabrielNunesIT/data-logger/internal/source"
)

// Option configures a Worker.
type Option func(*Worker)

// WithRegistry resolves the mode against r instead of the default registry.
func WithRegistry(r *sampler.Registry) Option {
	return func(w *Worker) {
		w.registry = r
	}
}

// WithSamplerConfig tunes the strategy built for the worker.
func WithSamplerConfig(cfg config.SamplerConfig) Option {
	return func(w *Worker) {
		w.samplerCfg = cfg
	}
}

// Worker is a single-use background logger.
//
// The run loop starts as soon as New returns. Stop only requests termination;
// WaitTerminated reports when every buffered record has been handed to the sink.
type Worker struct {
	name      string
	mode      string
	channels  []string
	sessionID string

	src        source.DataSource
	snk        sink.Sink
	registry   *sampler.Registry
	samplerCfg config.SamplerConfig
	strategy   sampler.Strategy
	logger     *zap.SugaredLogger

	lifecycle  *fsm.FSM
	started    chan struct{}
	terminated chan struct{}

	errMu    sync.Mutex
	fatalErr error
	flushErr error
}

// New validates the configuration and starts the worker in the background.
func New(cfg config.WorkerConfig, src source.DataSource, snk sink.Sink, log *zap.SugaredLogger, opts ...Option) (*Worker, error) {
	w := &Worker{
		name:      cfg.Name,
		mode:      cfg.Mode,
		channels:  append([]string(nil), cfg.Channels...),
		sessionID: uuid.NewString(),
		src:       src,
		snk:       snk,
		registry:  sampler.DefaultRegistry(),
		samplerCfg: config.SamplerConfig{
			ReadTimeout:  time.Second,
			IdleInterval: time.Second,
		},
		started:    make(chan struct{}),
		terminated: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	configErr := func(err error) error {
		return &ConfigurationError{Worker: w.name, Mode: w.mode, Err: err}
	}

	if src == nil {
		return nil, configErr(errors.New("no data source"))
	}
	if snk == nil {
		return nil, configErr(errors.New("no sink"))
	}

	factory, err := w.registry.Lookup(cfg.Mode)
	if err != nil {
		return nil, configErr(err)
	}
	w.strategy = factory(w.samplerCfg)
	if err := sampler.CheckChannels(w.strategy, w.channels); err != nil {
		return nil, configErr(err)
	}

	logger := log.Named("Worker").With("worker", w.name, "session", w.sessionID)
	if cfg.LogLevel != "" {
		lvl, err := zapcore.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, configErr(fmt.Errorf("log level: %w", err))
		}
		logger = logger.WithOptions(zap.IncreaseLevel(lvl))
	}
	w.logger = logger

	w.lifecycle = w.newLifecycle()

	go w.run()
	return w, nil
}

// Name returns the worker identity.
func (w *Worker) Name() string {
	return w.name
}

// SessionID returns the unique id of this run.
func (w *Worker) SessionID() string {
	return w.sessionID
}

// State returns the current lifecycle state.
func (w *Worker) State() string {
	return w.lifecycle.Current()
}

// Running reports whether the worker is sampling.
func (w *Worker) Running() bool {
	return w.lifecycle.Is(StateRunning)
}

// WaitStartup blocks until the worker is running. It returns false on timeout
// or when the worker terminated without ever running. A timeout <= 0 waits forever.
func (w *Worker) WaitStartup(timeout time.Duration) bool {
	select {
	case <-w.started:
		return true
	default:
	}

	timer, stop := after(timeout)
	defer stop()

	select {
	case <-w.started:
		return true
	case <-w.terminated:
		select {
		case <-w.started:
			return true
		default:
			return false
		}
	case <-timer:
		return false
	}
}

// WaitTerminated blocks until the buffers have been flushed. A timeout <= 0 waits forever.
func (w *Worker) WaitTerminated(timeout time.Duration) bool {
	timer, stop := after(timeout)
	defer stop()

	select {
	case <-w.terminated:
		return true
	case <-timer:
		return false
	}
}

// Done is closed once the worker has terminated.
func (w *Worker) Done() <-chan struct{} {
	return w.terminated
}

// Stop requests termination and returns immediately. It fails with a
// *LifecycleError when the worker is not running or about to run.
func (w *Worker) Stop() error {
	if err := w.lifecycle.Event(context.Background(), eventStop); err != nil {
		w.logger.Warnf("stop rejected: state=%s", w.lifecycle.Current())
		return &LifecycleError{Worker: w.name, State: w.lifecycle.Current()}
	}
	w.logger.Info("stop requested")
	return nil
}

// Err returns the fatal loop error and any flush errors once the worker has
// terminated. It returns nil before termination.
func (w *Worker) Err() error {
	select {
	case <-w.terminated:
	default:
		return nil
	}

	w.errMu.Lock()
	defer w.errMu.Unlock()
	return multierr.Append(w.fatalErr, w.flushErr)
}

func (w *Worker) run() {
	ctx := context.Background()
	defer close(w.terminated)

	sess := &sampler.Session{
		Source:  w.src,
		Buffers: model.NewBuffers(len(w.channels)),
		Start:   time.Now(),
		Logger:  w.logger,
	}

	if err := w.lifecycle.Event(ctx, eventStart); err != nil {
		w.logger.Info("stopped before start, skipping sampling")
	} else {
		close(w.started)
		w.logger.Infof("logging started: mode=%s, channels=%d", w.mode, len(w.channels))
		w.sample(ctx, sess)
	}

	w.drain(ctx, sess)
}

func (w *Worker) sample(ctx context.Context, sess *sampler.Session) {
	if err := w.strategy.Begin(ctx, sess); err != nil {
		w.fail(err)
		return
	}

	ticks := 0
	for w.lifecycle.Is(StateRunning) {
		if err := w.strategy.Tick(ctx, sess); err != nil {
			w.fail(err)
			return
		}
		ticks++
	}
	w.logger.Debugf("sampling loop exited: ticks=%d", ticks)
}

// drain performs the shutdown sequence: unsubscribe, wait for the source to
// go idle, seal, flush. Nothing may append once the buffers are sealed.
func (w *Worker) drain(ctx context.Context, sess *sampler.Session) {
	if err := w.lifecycle.Event(ctx, eventDrain); err != nil {
		w.logger.Warnf("drain transition failed: error=%v", err)
	}

	if err := w.strategy.End(ctx, sess); err != nil {
		w.fail(err)
	}
	if err := w.src.WaitIdle(ctx); err != nil {
		w.logger.Warnf("waiting for source idle: error=%v", err)
	}

	sess.Buffers.Seal()
	snap := sink.NewSnapshot(w.name, w.sessionID, sess.Start, w.channels, sess.Buffers.Snapshot())

	if err := w.snk.Write(ctx, snap); err != nil {
		w.logger.Errorf("flush incomplete: sink=%s, failed_channels=%v, error=%v", w.snk.Name(), sink.FailedChannels(err), err)
		w.errMu.Lock()
		w.flushErr = err
		w.errMu.Unlock()
	} else {
		w.logger.Infof("flush complete: sink=%s, channels=%d, records=%d", w.snk.Name(), len(snap.Channels), snap.Records())
	}

	if err := w.lifecycle.Event(ctx, eventTerminate); err != nil {
		w.logger.Warnf("terminate transition failed: error=%v", err)
	}
}

func (w *Worker) fail(err error) {
	cerr := &ConfigurationError{Worker: w.name, Mode: w.mode, Err: err}
	w.logger.Errorf("sampling aborted: error=%v", cerr)

	w.errMu.Lock()
	defer w.errMu.Unlock()
	w.fatalErr = multierr.Append(w.fatalErr, cerr)
}

// after returns a channel that fires after d, or never when d <= 0.
func after(d time.Duration) (<-chan time.Time, func()) {
	if d <= 0 {
		return nil, func() {}
	}
	t := time.NewTimer(d)
	return t.C, func() { t.Stop() }
}
