// Package metrics exports Prometheus collectors for the advisory service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advisor_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"endpoint", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "advisor_request_duration_seconds",
			Help: "HTTP request duration in seconds",
		},
		[]string{"endpoint"},
	)

	PipelineAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "advisor_pipeline_attempts_total",
			Help: "Total pipeline attempts, including retries",
		},
	)

	PipelineFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "advisor_pipeline_failures_total",
			Help: "Pipeline attempts abandoned due to parse or upstream failure",
		},
	)

	PipelineExhausted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "advisor_pipeline_exhausted_total",
			Help: "Runs that failed after exhausting the retry budget",
		},
	)

	TokensCounted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advisor_tokens_total",
			Help: "Tokens counted over pipeline context and model output",
		},
		[]string{"kind"},
	)
)
