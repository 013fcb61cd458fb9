// Package metrics exposes Prometheus collectors for the exchange pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the collectors recorded by the chat service.
type Metrics struct {
	ExchangesTotal    *prometheus.CounterVec
	LimitDenialsTotal *prometheus.CounterVec
	ModelLatency      *prometheus.HistogramVec
	RetrievalFailures prometheus.Counter
}

// New registers the chat collectors on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ExchangesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chatgram",
			Name:      "exchanges_total",
			Help:      "Inbound message exchanges by persona and outcome.",
		}, []string{"persona", "outcome"}),
		LimitDenialsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chatgram",
			Name:      "limit_denials_total",
			Help:      "Limit denials by violated dimension.",
		}, []string{"dimension"}),
		ModelLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "chatgram",
			Name:      "model_latency_seconds",
			Help:      "Model invocation latency.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}, []string{"persona"}),
		RetrievalFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "chatgram",
			Name:      "retrieval_failures_total",
			Help:      "Retrieval gate failures that degraded to no injected context.",
		}),
	}
}

// NewNop returns collectors bound to a throwaway registry, for tests and
// callers that do not scrape.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
