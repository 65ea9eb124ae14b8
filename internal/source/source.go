// Package source defines the data source contract consumed by the sampling
// strategies, and the drivers that implement it.
package source

import (
	"context"
	"errors"
	"time"
)

// ErrNoData is returned by ReadSamples when no reading arrived within the timeout.
// It is the "absent" sentinel: callers treat it as an empty tick, not a failure.
var ErrNoData = errors.New("no data available")

// Reading is one synchronous batch from a force/torque sensor.
// Every field is samples x axes; Info carries the sensor status vector.
type Reading struct {
	Info   [][]float64 `json:"info"`
	Force  [][]float64 `json:"force"`
	Torque [][]float64 `json:"torque"`
}

// Event is one asynchronous notification from a robot controller.
type Event struct {
	// Time is the controller timestamp in seconds.
	Time      float64   `json:"time"`
	Actual    []float64 `json:"actual"`
	Commanded []float64 `json:"commanded"`
}

// Handler receives events. It runs on a goroutine owned by the source.
type Handler func(Event)

// Subscription identifies a registered Handler.
type Subscription uint64

// DataSource is what a logging worker samples from.
type DataSource interface {
	// ReadSamples blocks until a new reading is available or timeout elapses,
	// in which case it returns ErrNoData.
	ReadSamples(ctx context.Context, timeout time.Duration) (*Reading, error)

	// Subscribe registers h for every subsequent event.
	Subscribe(h Handler) (Subscription, error)

	// Unsubscribe removes a handler. Once it returns, h is not running and will
	// not be called again. Unknown subscriptions are ignored.
	Unsubscribe(s Subscription) error

	// WaitIdle blocks until no event dispatch is in flight.
	WaitIdle(ctx context.Context) error
}
