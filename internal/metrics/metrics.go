package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	RequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_requests_latency_seconds",
			Help:    "Latency of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// Diaries
	DiariesCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "diaries_created_total",
			Help: "Total diaries saved",
		},
		[]string{"sentiment"}, // positive|neutral|negative
	)
	QuotaRejections = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "diary_quota_rejections_total",
			Help: "Total submissions refused by the daily limit",
		},
	)

	// Classifier
	ClassifierFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sentiment_classifier_failures_total",
			Help: "Total failed sentiment classifications",
		},
	)
	ClassifierLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sentiment_classifier_latency_seconds",
			Help:    "Latency of sentiment classification calls.",
			Buckets: prometheus.DefBuckets,
		},
	)

	initOnce sync.Once
)

// Handler serves the /metrics endpoint.
var Handler = promhttp.Handler

// Init registers every collector with the default registry. Safe to call
// more than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(RequestsTotal)
		prometheus.MustRegister(RequestLatency)
		prometheus.MustRegister(DiariesCreated)
		prometheus.MustRegister(QuotaRejections)
		prometheus.MustRegister(ClassifierFailures)
		prometheus.MustRegister(ClassifierLatency)
	})
}
