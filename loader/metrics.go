package loader

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics holds the collectors of one Server. They live on the server's own
// registry so several servers (or tests) never collide.
type metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	bundleBytes     *prometheus.HistogramVec
	errorsTotal     *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mrequires",
				Subsystem: "loader",
				Name:      "requests_total",
				Help:      "HTTP requests served, by route and status code.",
			},
			[]string{"route", "code"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "mrequires",
				Subsystem: "loader",
				Name:      "request_duration_seconds",
				Help:      "HTTP request latency, by route.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		bundleBytes: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "mrequires",
				Subsystem: "loader",
				Name:      "bundle_bytes",
				Help:      "Size of bundles built on demand, by mode.",
				Buckets:   prometheus.ExponentialBuckets(256, 4, 8),
			},
			[]string{"mode"},
		),
		errorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mrequires",
				Subsystem: "loader",
				Name:      "errors_total",
				Help:      "Failed lookups, by error category.",
			},
			[]string{"category"},
		),
	}
}

// instrument records count and latency for every request under its chi
// route pattern, so /modules/{name} is one series however many names are
// requested.
func (m *metrics) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
