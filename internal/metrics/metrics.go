// Package metrics provides Prometheus metrics for the portfolio API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "portfolio"

var (
	// HTTPRequestsTotal counts handled requests.
	// Labels: method, route (gin full path), status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests by method, route and status code",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration tracks request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// ProjectMutations counts successful writes to the project document.
	// Labels: op (create, update, delete)
	ProjectMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "mutations_total",
			Help:      "Total successful project mutations",
		},
		[]string{"op"},
	)

	// EmailsTotal counts contact relay attempts.
	// Labels: result (sent, invalid, failed)
	EmailsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mail",
			Name:      "messages_total",
			Help:      "Total contact form submissions by outcome",
		},
		[]string{"result"},
	)

	// UploadsTotal counts image uploads.
	// Labels: result (stored, rejected, failed)
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upload",
			Name:      "images_total",
			Help:      "Total image uploads by outcome",
		},
		[]string{"result"},
	)

	// LoginsTotal counts admin login attempts.
	// Labels: result (success, failure)
	LoginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "logins_total",
			Help:      "Total admin login attempts by outcome",
		},
		[]string{"result"},
	)
)
