// Package metrics holds the Prometheus collectors of the data logger and the
// HTTP endpoint that exposes them together with liveness and readiness checks.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TicksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datalogger_ticks_total",
			Help: "Sampling ticks executed, by mode",
		},
		[]string{"mode"},
	)

	AbsentReadsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "datalogger_absent_reads_total",
			Help: "Poll ticks on which the source had no new reading",
		},
	)

	ReadErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "datalogger_read_errors_total",
			Help: "Poll ticks on which the source read failed",
		},
	)

	RecordsAppendedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datalogger_records_appended_total",
			Help: "Rows appended to the channel buffers, by mode",
		},
		[]string{"mode"},
	)

	EventsReceivedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "datalogger_events_received_total",
			Help: "Asynchronous events delivered to a subscription handler",
		},
	)

	FlushErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datalogger_flush_errors_total",
			Help: "Channels that failed to flush, by sink",
		},
		[]string{"sink"},
	)

	SourceDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datalogger_source_dropped_total",
			Help: "Messages dropped by a source driver, by reason",
		},
		[]string{"reason"},
	)

	WorkerRunning = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "datalogger_worker_running",
			Help: "1 while the named worker is sampling",
		},
		[]string{"worker"},
	)
)
