// Package metrics provides Prometheus collectors for the pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "localrag"

// Recorder implements pipeline.Recorder on top of Prometheus collectors.
type Recorder struct {
	registry *prometheus.Registry

	// AnswersTotal counts answers by outcome.
	// Labels: outcome (no_match, low_confidence, matched, generation_failed)
	AnswersTotal *prometheus.CounterVec

	// AnswerDuration tracks end-to-end answer latency.
	AnswerDuration prometheus.Histogram

	// GenerationAttempts counts generation calls per answer.
	// Labels: attempts
	GenerationAttempts *prometheus.CounterVec

	// ChunksIngested counts chunks seen by ingestion.
	// Labels: status (added, existing)
	ChunksIngested *prometheus.CounterVec

	// IngestFailures counts aborted ingestion runs.
	IngestFailures prometheus.Counter
}

// NewRecorder registers collectors on a fresh registry that also carries the
// Go runtime and process collectors.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		AnswersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "answer",
				Name:      "total",
				Help:      "Total number of answers by outcome",
			},
			[]string{"outcome"},
		),
		AnswerDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "answer",
				Name:      "duration_seconds",
				Help:      "Duration of answer requests in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
		),
		GenerationAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "generation",
				Name:      "answers_by_attempts_total",
				Help:      "Answers grouped by the number of generation attempts they needed",
			},
			[]string{"attempts"},
		),
		ChunksIngested: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ingest",
				Name:      "chunks_total",
				Help:      "Chunks processed by ingestion by status",
			},
			[]string{"status"},
		),
		IngestFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ingest",
				Name:      "failures_total",
				Help:      "Ingestion runs aborted by a storage or embedding error",
			},
		),
	}
}

func (r *Recorder) ObserveAnswer(kind string, attempts int, elapsed time.Duration) {
	r.AnswersTotal.WithLabelValues(kind).Inc()
	r.AnswerDuration.Observe(elapsed.Seconds())
	if attempts > 0 {
		r.GenerationAttempts.WithLabelValues(strconv.Itoa(attempts)).Inc()
	}
}

func (r *Recorder) ObserveIngest(added, existing int, failed bool) {
	r.ChunksIngested.WithLabelValues("added").Add(float64(added))
	r.ChunksIngested.WithLabelValues("existing").Add(float64(existing))
	if failed {
		r.IngestFailures.Inc()
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
