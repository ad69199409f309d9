// Package metrics exposes the engine's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ChatTurns counts completed chat turns.
	ChatTurns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "athena_chat_turns_total",
		Help: "Completed chat turns.",
	})

	// Retrievals counts retrieval calls by outcome (ok, degraded, empty_scope).
	Retrievals = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "athena_retrievals_total",
		Help: "Retrieval calls by outcome.",
	}, []string{"outcome"})

	// RetrievalDuration observes end-to-end retrieval latency.
	RetrievalDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "athena_retrieval_duration_seconds",
		Help:    "End-to-end retrieval latency.",
		Buckets: prometheus.DefBuckets,
	})

	// Compressions counts history compressions by outcome (ok, noop, error).
	Compressions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "athena_history_compressions_total",
		Help: "History compressions by outcome.",
	}, []string{"outcome"})

	// DocumentsIngested counts ingestion pipelines by outcome (ok, error).
	DocumentsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "athena_documents_ingested_total",
		Help: "Document ingestions by outcome.",
	}, []string{"outcome"})
)
