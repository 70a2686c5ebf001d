package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Status label values for EventsTotal.
const (
	StatusIndexed = "indexed"
	StatusDropped = "dropped"
)

var (
	// Events handled by the indexer, by outcome
	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventlog_events_total",
			Help: "Total number of events handled",
		},
		[]string{"status"},
	)

	// Dropped events by the pipeline stage that failed
	FailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventlog_failures_total",
			Help: "Total number of dropped events by failing stage",
		},
		[]string{"stage"},
	)

	DocumentBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eventlog_document_bytes_total",
			Help: "Total bytes of documents handed to the sender",
		},
	)

	DispatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "eventlog_dispatch_duration_seconds",
			Help:    "Duration of sender push calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Dead letter writes by outcome
	DeadLettersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventlog_dead_letters_total",
			Help: "Total number of dead letter records written",
		},
		[]string{"status"},
	)
)
