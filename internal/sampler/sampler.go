// Package sampler implements the sampling strategies a worker can run and the
// registry that resolves a configured mode to one of them.
package sampler

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GabrielNunesIT/data-logger/internal/config"
	"github.com/GabrielNunesIT/data-logger/internal/model"
	"github.com/GabrielNunesIT/data-logger/internal/source"
)

var (
	// ErrUnknownMode is returned when no strategy is registered for a mode.
	ErrUnknownMode = errors.New("unknown logging mode")

	// ErrTooFewChannels is returned when a strategy produces more values per row
	// than there are configured channels.
	ErrTooFewChannels = errors.New("too few channels for mode")
)

// Session is what a strategy works on during one run.
type Session struct {
	Source  source.DataSource
	Buffers *model.Buffers
	Start   time.Time
	Logger  *zap.SugaredLogger
}

// Elapsed returns seconds since the session start.
func (s *Session) Elapsed() float64 {
	return time.Since(s.Start).Seconds()
}

// Strategy is one sampling mode. A worker calls Begin once, Tick repeatedly
// while running, and End once before draining. Any returned error is fatal to
// the run loop.
type Strategy interface {
	Mode() string

	// MinChannels is the number of values appended per row. Configurations with
	// zero channels are always accepted.
	MinChannels() int

	Begin(ctx context.Context, s *Session) error
	Tick(ctx context.Context, s *Session) error
	End(ctx context.Context, s *Session) error
}

// Factory builds a fresh strategy for one worker run.
type Factory func(cfg config.SamplerConfig) Strategy

// Registry maps mode names to strategy factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry returns a registry with the built-in modes.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(config.ModeForceTorque, NewPoll)
	r.Register(config.ModeJointAngles, NewSubscription)
	return r
}

// Register adds or replaces the factory for mode.
func (r *Registry) Register(mode string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[mode] = f
}

// Lookup returns the factory for mode.
func (r *Registry) Lookup(mode string) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.factories[mode]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	return f, nil
}

// Modes lists the registered modes, sorted.
func (r *Registry) Modes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	modes := make([]string, 0, len(r.factories))
	for m := range r.factories {
		modes = append(modes, m)
	}
	slices.Sort(modes)
	return modes
}

// CheckChannels verifies that channels can hold one row of s.
func CheckChannels(s Strategy, channels []string) error {
	if len(channels) == 0 || len(channels) >= s.MinChannels() {
		return nil
	}
	return fmt.Errorf("%w: mode %s needs %d, got %d", ErrTooFewChannels, s.Mode(), s.MinChannels(), len(channels))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
