package transport

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mixport_provider_requests_total",
		Help: "Provider HTTP requests by endpoint and final status class.",
	}, []string{"endpoint", "status"})

	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mixport_provider_retries_total",
		Help: "Provider HTTP attempts retried after a retryable failure.",
	}, []string{"endpoint"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mixport_provider_request_duration_seconds",
		Help:    "Wall time of Provider HTTP requests, including retries.",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})
)
