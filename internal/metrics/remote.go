package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ragchat"

// Remote provider and pipeline metrics.
var (
	RemoteRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_requests_total",
			Help:      "Total number of calls to remote providers",
		},
		[]string{"service", "op", "status"},
	)

	RemoteRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "remote_request_duration_seconds",
			Help:      "Remote provider call duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		},
		[]string{"service", "op"},
	)

	RemoteTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_tokens_total",
			Help:      "Tokens consumed by remote providers",
		},
		[]string{"service", "op"},
	)

	RetryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retry_attempts_total",
			Help:      "Retry decisions taken after a failed remote call",
		},
		[]string{"operation", "outcome"}, // "retry" / "exhausted" / "permanent"
	)

	PipelineStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_stage_duration_seconds",
			Help:      "Duration of retrieval and chat pipeline stages, retries included",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		},
		[]string{"stage", "status"},
	)
)

var registerOnce sync.Once

// RegisterRemoteMetrics registers remote provider and pipeline metrics. Called once from the composition root.
func RegisterRemoteMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RemoteRequestsTotal,
			RemoteRequestDuration,
			RemoteTokensTotal,
			RetryAttemptsTotal,
			PipelineStageDuration,
		)
	})
}

// ObserveRemote records one remote call outcome.
func ObserveRemote(service, op, status string, seconds float64) {
	RemoteRequestsTotal.WithLabelValues(service, op, status).Inc()
	RemoteRequestDuration.WithLabelValues(service, op).Observe(seconds)
}
