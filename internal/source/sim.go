package source

import (
	"context"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/GabrielNunesIT/data-logger/internal/config"
)

// SimSource produces synthetic force/torque batches and joint events.
// Readings are paced by a token bucket so ReadSamples behaves like a sensor
// delivering at cfg.RateHz.
type SimSource struct {
	cfg     config.SimConfig
	hub     *hub
	limiter *rate.Limiter
	logger  *zap.SugaredLogger
	start   time.Time

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSimSource creates a simulated source. Call Start to emit events.
func NewSimSource(cfg config.SimConfig, log *zap.SugaredLogger) *SimSource {
	if cfg.RateHz <= 0 {
		cfg.RateHz = 10
	}
	if cfg.SamplesPerBatch <= 0 {
		cfg.SamplesPerBatch = 1
	}
	if cfg.Joints <= 0 {
		cfg.Joints = 6
	}

	return &SimSource{
		cfg:     cfg,
		hub:     newHub(),
		limiter: rate.NewLimiter(rate.Limit(cfg.RateHz), 1),
		logger:  log.Named("SimSource"),
		start:   time.Now(),
	}
}

// Start launches the event generator. It runs until ctx is cancelled or Close is called.
func (s *SimSource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	interval := time.Duration(float64(time.Second) / s.cfg.RateHz)
	go s.eventLoop(ctx, interval)

	s.logger.Debugf("sim source started: rate_hz=%.1f, joints=%d", s.cfg.RateHz, s.cfg.Joints)
	return nil
}

// Close stops the event generator and waits for it to exit.
func (s *SimSource) Close() error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

func (s *SimSource) eventLoop(ctx context.Context, interval time.Duration) {
	defer close(s.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("sim event loop stopped")
			return
		case now := <-ticker.C:
			s.hub.dispatch(s.event(now))
		}
	}
}

func (s *SimSource) event(now time.Time) Event {
	t := now.Sub(s.start).Seconds()
	actual := make([]float64, s.cfg.Joints)
	commanded := make([]float64, s.cfg.Joints)
	for j := range actual {
		phase := float64(j) * math.Pi / float64(s.cfg.Joints)
		commanded[j] = math.Sin(t + phase)
		actual[j] = math.Sin(t + phase - 0.01)
	}
	return Event{
		Time:      float64(now.UnixNano()) / 1e9,
		Actual:    actual,
		Commanded: commanded,
	}
}

// ReadSamples waits for the next pacing slot and returns a synthetic batch.
func (s *SimSource) ReadSamples(ctx context.Context, timeout time.Duration) (*Reading, error) {
	r := s.limiter.Reserve()
	delay := r.Delay()
	if delay > timeout {
		r.Cancel()
		if err := sleepCtx(ctx, timeout); err != nil {
			return nil, err
		}
		return nil, ErrNoData
	}
	if err := sleepCtx(ctx, delay); err != nil {
		r.Cancel()
		return nil, err
	}

	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	t := time.Since(s.start).Seconds()
	reading := &Reading{
		Info: [][]float64{{float64(seq), 0, 0}},
	}
	for i := 0; i < s.cfg.SamplesPerBatch; i++ {
		ti := t + float64(i)*1e-3
		reading.Force = append(reading.Force, []float64{math.Sin(ti), math.Cos(ti), 9.81})
		reading.Torque = append(reading.Torque, []float64{0.1 * math.Cos(ti), 0.1 * math.Sin(ti), 0})
	}
	return reading, nil
}

// Subscribe registers h for simulated joint events.
func (s *SimSource) Subscribe(h Handler) (Subscription, error) {
	return s.hub.subscribe(h), nil
}

// Unsubscribe removes a handler.
func (s *SimSource) Unsubscribe(sub Subscription) error {
	s.hub.unsubscribe(sub)
	return nil
}

// WaitIdle blocks until no event dispatch is in flight.
func (s *SimSource) WaitIdle(ctx context.Context) error {
	return s.hub.waitIdle(ctx)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
