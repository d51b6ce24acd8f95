package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "supportgate_http_requests_total",
		Help: "HTTP requests by method, route and status",
	}, []string{"method", "endpoint", "status"})

	LatencyBucket = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "supportgate_latency_bucket",
		Help:    "Request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	RequestLogRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "supportgate_request_log_records_total",
		Help: "Request log records emitted, by outcome",
	}, []string{"outcome"})

	RequestLogDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "supportgate_request_log_dropped_total",
		Help: "Request log records not delivered to a secondary sink",
	}, []string{"sink"})

	HandlerPanics = promauto.NewCounter(prometheus.CounterOpts{
		Name: "supportgate_handler_panics_total",
		Help: "Handler panics recovered by the request pipeline",
	})
)
