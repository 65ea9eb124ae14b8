package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/GabrielNunesIT/data-logger/internal/source"
)

// DataSource is a scripted source.DataSource.
//
// ReadSamples sleeps ReadDelay (bounded by the caller's timeout) and then asks
// Next for the n-th reading. Events are pushed with Emit, which dispatches
// synchronously on the caller's goroutine.
type DataSource struct {
	Next         func(n int) (*source.Reading, error)
	ReadDelay    time.Duration
	SubscribeErr error

	mu    sync.Mutex
	reads int

	hmu      sync.RWMutex
	nextID   source.Subscription
	handlers map[source.Subscription]source.Handler
	unsubs   int
	idles    int
}

// NewDataSource returns a source that serves next on every read.
func NewDataSource(next func(n int) (*source.Reading, error)) *DataSource {
	return &DataSource{
		Next:     next,
		handlers: make(map[source.Subscription]source.Handler),
	}
}

// Steady returns a Next func that always yields one valid reading of 3-axis samples.
func Steady() func(int) (*source.Reading, error) {
	return func(n int) (*source.Reading, error) {
		return &source.Reading{
			Info:   [][]float64{{float64(n), 0, 1}},
			Force:  [][]float64{{1, 2, 3}, {3, 4, 5}},
			Torque: [][]float64{{0.1, 0.2, 0.3}},
		}, nil
	}
}

func (d *DataSource) ReadSamples(ctx context.Context, timeout time.Duration) (*source.Reading, error) {
	delay := d.ReadDelay
	absent := false
	if delay > timeout {
		delay, absent = timeout, true
	}
	if delay > 0 {
		t := time.NewTimer(delay)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		}
	}
	if absent || d.Next == nil {
		return nil, source.ErrNoData
	}

	d.mu.Lock()
	n := d.reads
	d.reads++
	d.mu.Unlock()

	return d.Next(n)
}

// Reads returns how many times Next was consulted.
func (d *DataSource) Reads() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reads
}

func (d *DataSource) Subscribe(h source.Handler) (source.Subscription, error) {
	if d.SubscribeErr != nil {
		return 0, d.SubscribeErr
	}
	d.hmu.Lock()
	defer d.hmu.Unlock()
	d.nextID++
	d.handlers[d.nextID] = h
	return d.nextID, nil
}

func (d *DataSource) Unsubscribe(s source.Subscription) error {
	d.hmu.Lock()
	defer d.hmu.Unlock()
	delete(d.handlers, s)
	d.unsubs++
	return nil
}

func (d *DataSource) WaitIdle(ctx context.Context) error {
	d.hmu.Lock()
	d.idles++
	d.hmu.Unlock()
	return ctx.Err()
}

// Emit delivers ev to every handler and reports how many received it.
func (d *DataSource) Emit(ev source.Event) int {
	d.hmu.RLock()
	defer d.hmu.RUnlock()
	for _, h := range d.handlers {
		h(ev)
	}
	return len(d.handlers)
}

// Subscribers returns the number of registered handlers.
func (d *DataSource) Subscribers() int {
	d.hmu.RLock()
	defer d.hmu.RUnlock()
	return len(d.handlers)
}

// Calls reports Unsubscribe and WaitIdle call counts.
func (d *DataSource) Calls() (unsubscribes, idleWaits int) {
	d.hmu.RLock()
	defer d.hmu.RUnlock()
	return d.unsubs, d.idles
}
