// Package metrics holds the Prometheus collectors for the ingestion pipeline
// and the HTTP surface.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	// Pipeline metrics, labelled by stage: fetched, screened, skipped,
	// drafted, rejected, saved, failed.
	PipelinePosts *prometheus.CounterVec
	PipelineRuns  *prometheus.CounterVec
	RunDuration   prometheus.Histogram

	// HTTP metrics
	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// New registers every collector on a fresh registry, so several instances
// can coexist in one process (tests do this).
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		PipelinePosts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "goldmines_pipeline_posts_total",
			Help: "Posts seen by the ingestion pipeline, by stage outcome",
		}, []string{"stage"}),

		PipelineRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "goldmines_pipeline_runs_total",
			Help: "Pipeline runs by result",
		}, []string{"result"}),

		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "goldmines_pipeline_run_duration_seconds",
			Help:    "Wall time of one pipeline run",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}),

		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "goldmines_http_requests_total",
			Help: "HTTP requests by route pattern and status code",
		}, []string{"method", "route", "status"}),

		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "goldmines_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60}, // generate-idea waits on the LLM
		}, []string{"method", "route"}),
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
