// Package metrics collects and serves the worker's Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what the worker reports to.
type Recorder interface {
	RecordJob(outcome string)
	RecordResume(outcome string)
	RecordAgentLatency(d time.Duration)
}

const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"

	OutcomeAnalyzed      = "analyzed"
	OutcomeDownloadError = "download_error"
	OutcomeExtractError  = "extract_error"
	OutcomeRejected      = "rejected"
	OutcomeAgentError    = "agent_error"
	OutcomeDecodeError   = "decode_error"
)

type Collector struct {
	jobs         *prometheus.CounterVec
	resumes      *prometheus.CounterVec
	agentLatency prometheus.Histogram
}

// NewCollector registers the worker metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobmatch_jobs_total",
			Help: "Analysis jobs processed, by outcome.",
		}, []string{"outcome"}),
		resumes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobmatch_resumes_total",
			Help: "Resumes processed, by outcome.",
		}, []string{"outcome"}),
		agentLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "jobmatch_agent_latency_seconds",
			Help:    "Time spent waiting on the analysis agent.",
			Buckets: []float64{1, 2.5, 5, 10, 20, 40, 80, 160},
		}),
	}
	reg.MustRegister(c.jobs, c.resumes, c.agentLatency)
	return c
}

func (c *Collector) RecordJob(outcome string) {
	c.jobs.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordResume(outcome string) {
	c.resumes.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordAgentLatency(d time.Duration) {
	c.agentLatency.Observe(d.Seconds())
}

// NewRouter serves /healthz and /metrics for gatherer.
func NewRouter(gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return r
}
