// Package metrics provides Prometheus collectors for chat turns, external calls and ingestion.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Replies counts chat turns by outcome.
	// Labels: outcome (answered, no_context, failed, clarification)
	Replies *prometheus.CounterVec

	// ExternalCalls tracks latency of embedding, index and generation calls.
	// Labels: component, result (success, error)
	ExternalCalls *prometheus.HistogramVec

	// ChunksIngested counts chunks upserted into the vector index.
	ChunksIngested prometheus.Counter

	// DocumentsSkipped counts unchanged documents skipped by ingestion.
	DocumentsSkipped prometheus.Counter

	// ActiveSessions is the number of live chat sessions.
	ActiveSessions prometheus.Gauge
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Replies: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "optimedix",
				Subsystem: "chat",
				Name:      "replies_total",
				Help:      "Total number of chat replies by outcome",
			},
			[]string{"outcome"},
		),
		ExternalCalls: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "optimedix",
				Subsystem: "remote",
				Name:      "call_duration_seconds",
				Help:      "Duration of external service calls in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"component", "result"},
		),
		ChunksIngested: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: "optimedix",
				Subsystem: "ingest",
				Name:      "chunks_total",
				Help:      "Total number of chunks upserted into the vector index",
			},
		),
		DocumentsSkipped: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: "optimedix",
				Subsystem: "ingest",
				Name:      "documents_skipped_total",
				Help:      "Total number of unchanged documents skipped during ingestion",
			},
		),
		ActiveSessions: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "optimedix",
				Subsystem: "chat",
				Name:      "active_sessions",
				Help:      "Number of chat sessions currently held in memory",
			},
		),
	}
}

// ObserveReply counts one reply.
func (m *Metrics) ObserveReply(outcome string) {
	if m == nil {
		return
	}
	m.Replies.WithLabelValues(outcome).Inc()
}

// ObserveCall records one external call that started at start.
func (m *Metrics) ObserveCall(component string, start time.Time, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.ExternalCalls.WithLabelValues(component, result).Observe(time.Since(start).Seconds())
}

// AddChunks counts upserted chunks.
func (m *Metrics) AddChunks(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ChunksIngested.Add(float64(n))
}

// AddSkipped counts skipped documents.
func (m *Metrics) AddSkipped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.DocumentsSkipped.Add(float64(n))
}

// SetSessions records the live session count.
func (m *Metrics) SetSessions(n int) {
	if m == nil {
		return
	}
	m.ActiveSessions.Set(float64(n))
}
