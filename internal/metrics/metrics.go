// Package metrics collects and exposes Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records request and quiz activity counters.
type Collector struct {
	httpStatus      *prometheus.CounterVec
	httpLatency     prometheus.Histogram
	resultsRecorded prometheus.Counter
	attemptsPassed  prometheus.Counter
	authFailures    prometheus.Counter
}

// NewCollector registers the service metrics on the given registry.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "levelquiz_http_status_total",
			Help: "Responses by HTTP status code.",
		}, []string{"status_code"}),
		httpLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "levelquiz_http_latency_seconds",
			Help:    "Request handling latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		resultsRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "levelquiz_results_recorded_total",
			Help: "Quiz attempts recorded.",
		}),
		attemptsPassed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "levelquiz_attempts_passed_total",
			Help: "Recorded attempts that met the passing score.",
		}),
		authFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "levelquiz_auth_failures_total",
			Help: "Rejected credentials across login, register and token checks.",
		}),
	}

	reg.MustRegister(
		c.httpStatus,
		c.httpLatency,
		c.resultsRecorded,
		c.attemptsPassed,
		c.authFailures,
	)
	return c
}

func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

func (c *Collector) RecordHTTPLatency(d time.Duration) {
	c.httpLatency.Observe(d.Seconds())
}

// RecordResult counts one recorded attempt and whether it passed.
func (c *Collector) RecordResult(passed bool) {
	c.resultsRecorded.Inc()
	if passed {
		c.attemptsPassed.Inc()
	}
}

func (c *Collector) RecordAuthFailure() {
	c.authFailures.Inc()
}

// Handler returns the Prometheus scrape handler.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
