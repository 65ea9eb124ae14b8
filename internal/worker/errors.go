package worker

import (
	"errors"
	"fmt"
)

// ErrAlreadyStopped is wrapped by LifecycleError when Stop is called on a
// worker that is no longer running.
var ErrAlreadyStopped = errors.New("worker already stopped")

// ConfigurationError reports a worker that cannot sample: an unknown mode, a
// channel list that does not fit the mode, or a fatal strategy failure.
type ConfigurationError struct {
	Worker string
	Mode   string
	Err    error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("worker %s: mode %q: %v", e.Worker, e.Mode, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// LifecycleError reports a lifecycle call made in the wrong state.
type LifecycleError struct {
	Worker string
	State  string
}

func (e *LifecycleError) Error() string {
	return fmt.Sprintf("worker %s: %v (state %s)", e.Worker, ErrAlreadyStopped, e.State)
}

func (e *LifecycleError) Unwrap() error {
	return ErrAlreadyStopped
}
