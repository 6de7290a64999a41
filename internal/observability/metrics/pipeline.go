package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type PipelineMetrics struct {
	registry *prometheus.Registry

	populateTotal    *prometheus.CounterVec
	populateDuration *prometheus.HistogramVec
	chunksIndexed    *prometheus.CounterVec

	queryTotal      *prometheus.CounterVec
	queryDuration   *prometheus.HistogramVec
	retrievedChunks prometheus.Histogram
}

func NewPipelineMetrics(service string) *PipelineMetrics {
	registry := prometheus.NewRegistry()

	populateTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rag",
			Subsystem: "populate",
			Name:      "run_total",
			Help:      "Total population runs by status.",
		},
		[]string{"service", "status"},
	)
	populateDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rag",
			Subsystem: "populate",
			Name:      "run_duration_seconds",
			Help:      "Population run duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	chunksIndexed := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rag",
			Subsystem: "populate",
			Name:      "chunks_total",
			Help:      "Indexed chunks by outcome (added, updated, unchanged).",
		},
		[]string{"service", "outcome"},
	)
	queryTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rag",
			Subsystem: "query",
			Name:      "answer_total",
			Help:      "Total answered questions by status.",
		},
		[]string{"service", "status"},
	)
	queryDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rag",
			Subsystem: "query",
			Name:      "answer_duration_seconds",
			Help:      "End-to-end answer latency in seconds by status.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"service", "status"},
	)
	retrievedChunks := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "rag",
			Subsystem: "query",
			Name:      "retrieved_chunks",
			Help:      "Number of context chunks handed to the generator per answer.",
			Buckets:   []float64{0, 1, 2, 4, 8, 16, 32},
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(populateTotal, populateDuration, chunksIndexed, queryTotal, queryDuration, retrievedChunks)

	return &PipelineMetrics{
		registry:         registry,
		populateTotal:    populateTotal,
		populateDuration: populateDuration,
		chunksIndexed:    chunksIndexed,
		queryTotal:       queryTotal,
		queryDuration:    queryDuration,
		retrievedChunks:  retrievedChunks,
	}
}

func (m *PipelineMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *PipelineMetrics) ObserveRun(service string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.populateTotal.WithLabelValues(service, status).Inc()
	m.populateDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *PipelineMetrics) AddChunks(service string, added, updated, unchanged int) {
	m.chunksIndexed.WithLabelValues(service, "added").Add(float64(added))
	m.chunksIndexed.WithLabelValues(service, "updated").Add(float64(updated))
	m.chunksIndexed.WithLabelValues(service, "unchanged").Add(float64(unchanged))
}

func (m *PipelineMetrics) ObserveAnswer(service string, duration time.Duration, contextChunks int, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.queryTotal.WithLabelValues(service, status).Inc()
	m.queryDuration.WithLabelValues(service, status).Observe(duration.Seconds())
	if err == nil {
		m.retrievedChunks.Observe(float64(contextChunks))
	}
}
