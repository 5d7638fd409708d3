package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	backendRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventreview_backend_requests_total",
		Help: "Total number of requests sent to the event backend.",
	}, []string{"operation", "status"})

	backendRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "eventreview_backend_request_duration_seconds",
		Help:    "Histogram of event backend request latencies.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventreview_http_requests_total",
		Help: "Total number of dashboard HTTP requests processed.",
	}, []string{"method", "route", "status"})

	notificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventreview_notifications_total",
		Help: "Total number of user notifications emitted, by level.",
	}, []string{"level"})
)

// ObserveBackendRequest records one backend call. status is the HTTP status
// code, or 0 when the request never got a response.
func ObserveBackendRequest(operation string, status int, start time.Time) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	backendRequestsTotal.WithLabelValues(operation, label).Inc()
	backendRequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// ObserveHTTPRequest records one dashboard request.
func ObserveHTTPRequest(r *http.Request, status int) {
	httpRequestsTotal.WithLabelValues(r.Method, routePattern(r), strconv.Itoa(status)).Inc()
}

// IncNotification counts a notification shown to the user.
func IncNotification(level string) {
	notificationsTotal.WithLabelValues(level).Inc()
}

// Handler exposes the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

func routePattern(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return r.URL.Path
}
