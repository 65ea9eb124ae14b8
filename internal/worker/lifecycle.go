package worker

import (
	"context"

	"github.com/looplab/fsm"

	"github.com/GabrielNunesIT/data-logger/internal/metrics"
)

// Lifecycle states. Transitions only move forward; terminated is absorbing.
const (
	StateNotStarted    = "not_started"
	StateRunning       = "running"
	StateStopRequested = "stop_requested"
	StateDraining      = "draining"
	StateTerminated    = "terminated"
)

const (
	eventStart     = "start"
	eventStop      = "stop"
	eventDrain     = "drain"
	eventTerminate = "terminate"
)

func (w *Worker) newLifecycle() *fsm.FSM {
	return fsm.NewFSM(
		StateNotStarted,
		fsm.Events{
			{Name: eventStart, Src: []string{StateNotStarted}, Dst: StateRunning},
			{Name: eventStop, Src: []string{StateNotStarted, StateRunning}, Dst: StateStopRequested},
			{Name: eventDrain, Src: []string{StateRunning, StateStopRequested}, Dst: StateDraining},
			{Name: eventTerminate, Src: []string{StateDraining}, Dst: StateTerminated},
		},
		fsm.Callbacks{
			// Callbacks run under the fsm lock and must not query or drive it.
			"enter_state": func(_ context.Context, e *fsm.Event) {
				w.logger.Debugf("state transition: event=%s, from=%s, to=%s", e.Event, e.Src, e.Dst)
				if e.Dst == StateRunning {
					metrics.WorkerRunning.WithLabelValues(w.name).Set(1)
				} else if e.Src == StateRunning {
					metrics.WorkerRunning.WithLabelValues(w.name).Set(0)
				}
			},
		},
	)
}
