package sampler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/GabrielNunesIT/data-logger/internal/config"
	"github.com/GabrielNunesIT/data-logger/internal/metrics"
	"github.com/GabrielNunesIT/data-logger/internal/model"
	"github.com/GabrielNunesIT/data-logger/internal/source"
)

// Subscription records joint events delivered by the source. Ticks only idle.
type Subscription struct {
	idle       time.Duration
	sub        source.Subscription
	subscribed bool
}

// NewSubscription is the Factory for config.ModeJointAngles.
func NewSubscription(cfg config.SamplerConfig) Strategy {
	idle := cfg.IdleInterval
	if idle <= 0 {
		idle = time.Second
	}
	return &Subscription{idle: idle}
}

func (s *Subscription) Mode() string     { return config.ModeJointAngles }
func (s *Subscription) MinChannels() int { return 3 }

// Begin registers the event handler. Rows are time, actual, commanded.
func (s *Subscription) Begin(_ context.Context, sess *Session) error {
	id, err := sess.Source.Subscribe(func(ev source.Event) {
		metrics.EventsReceivedTotal.Inc()
		err := sess.Buffers.AppendRow(
			model.Scalar(ev.Time),
			model.Vector(ev.Actual).Clone(),
			model.Vector(ev.Commanded).Clone(),
		)
		if errors.Is(err, model.ErrSealed) {
			sess.Logger.Debugf("event after seal dropped: time=%v", ev.Time)
			return
		}
		metrics.RecordsAppendedTotal.WithLabelValues(s.Mode()).Inc()
	})
	if err != nil {
		return fmt.Errorf("subscribing to events: %w", err)
	}

	s.sub = id
	s.subscribed = true
	sess.Logger.Debugf("subscribed to events: subscription=%d", id)
	return nil
}

// Tick idles so the loop can observe a stop request.
func (s *Subscription) Tick(ctx context.Context, _ *Session) error {
	metrics.TicksTotal.WithLabelValues(s.Mode()).Inc()
	// Cancellation only cuts the idle short.
	_ = sleepCtx(ctx, s.idle)
	return nil
}

// End removes the handler. After it returns the handler no longer runs.
func (s *Subscription) End(_ context.Context, sess *Session) error {
	if !s.subscribed {
		return nil
	}
	s.subscribed = false
	if err := sess.Source.Unsubscribe(s.sub); err != nil {
		return fmt.Errorf("unsubscribing: %w", err)
	}
	sess.Logger.Debugf("unsubscribed from events: subscription=%d", s.sub)
	return nil
}
