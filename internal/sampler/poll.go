package sampler

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"golang.org/x/time/rate"
	"gonum.org/v1/gonum/stat"

	"github.com/GabrielNunesIT/data-logger/internal/config"
	"github.com/GabrielNunesIT/data-logger/internal/metrics"
	"github.com/GabrielNunesIT/data-logger/internal/model"
	"github.com/GabrielNunesIT/data-logger/internal/source"
)

// pollRowWidth is info(3) + force(3) + torque(3) + elapsed.
const pollRowWidth = 10

// Poll reads a force/torque batch on every tick and appends one averaged row.
type Poll struct {
	readTimeout time.Duration
	limiter     *rate.Limiter
	lastElapsed float64
}

// NewPoll is the Factory for config.ModeForceTorque.
func NewPoll(cfg config.SamplerConfig) Strategy {
	p := &Poll{
		readTimeout: cfg.ReadTimeout,
		lastElapsed: math.Inf(-1),
	}
	if p.readTimeout <= 0 {
		p.readTimeout = time.Second
	}
	if cfg.PollRateHz > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(cfg.PollRateHz), 1)
	}
	return p
}

func (p *Poll) Mode() string     { return config.ModeForceTorque }
func (p *Poll) MinChannels() int { return pollRowWidth }

func (p *Poll) Begin(context.Context, *Session) error { return nil }
func (p *Poll) End(context.Context, *Session) error   { return nil }

// Tick performs one bounded read. Absent data and driver errors leave the buffers untouched.
func (p *Poll) Tick(ctx context.Context, s *Session) error {
	metrics.TicksTotal.WithLabelValues(p.Mode()).Inc()

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil
		}
	}

	reading, err := s.Source.ReadSamples(ctx, p.readTimeout)
	if errors.Is(err, source.ErrNoData) {
		metrics.AbsentReadsTotal.Inc()
		return nil
	}
	if err != nil {
		metrics.ReadErrorsTotal.Inc()
		s.Logger.Warnf("read failed, skipping tick: error=%v", err)
		return nil
	}

	row, err := p.row(reading, s.Elapsed())
	if err != nil {
		metrics.ReadErrorsTotal.Inc()
		s.Logger.Warnf("malformed reading, skipping tick: error=%v", err)
		return nil
	}

	if err := s.Buffers.AppendRow(row...); err != nil {
		return fmt.Errorf("appending row: %w", err)
	}
	metrics.RecordsAppendedTotal.WithLabelValues(p.Mode()).Inc()
	return nil
}

func (p *Poll) row(r *source.Reading, elapsed float64) ([]model.Value, error) {
	if len(r.Info) == 0 || len(r.Info[0]) < 3 {
		return nil, errors.New("info vector needs 3 values")
	}
	force, err := axisMeans(r.Force)
	if err != nil {
		return nil, fmt.Errorf("force: %w", err)
	}
	torque, err := axisMeans(r.Torque)
	if err != nil {
		return nil, fmt.Errorf("torque: %w", err)
	}

	// Two reads inside one clock tick must still produce distinct timestamps.
	if elapsed <= p.lastElapsed {
		elapsed = math.Nextafter(p.lastElapsed, math.Inf(1))
	}
	p.lastElapsed = elapsed

	row := make([]model.Value, 0, pollRowWidth)
	for _, v := range r.Info[0][:3] {
		row = append(row, model.Scalar(v))
	}
	for _, v := range force {
		row = append(row, model.Scalar(v))
	}
	for _, v := range torque {
		row = append(row, model.Scalar(v))
	}
	return append(row, model.Scalar(elapsed)), nil
}

// axisMeans reduces samples x 3 to the per-axis arithmetic mean.
func axisMeans(samples [][]float64) ([3]float64, error) {
	var out [3]float64
	if len(samples) == 0 {
		return out, errors.New("no samples")
	}

	col := make([]float64, len(samples))
	for axis := range out {
		for i, s := range samples {
			if len(s) < 3 {
				return out, fmt.Errorf("sample %d has %d axes", i, len(s))
			}
			col[i] = s[axis]
		}
		out[axis] = stat.Mean(col, nil)
	}
	return out, nil
}
