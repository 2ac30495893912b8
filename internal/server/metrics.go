package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hyperifyio/clarity/internal/view"
)

type metrics struct {
	registry  *prometheus.Registry
	requests  *prometheus.CounterVec
	summaries *prometheus.CounterVec
	duration  prometheus.Histogram
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clarity_http_requests_total",
			Help: "HTTP requests by route pattern, method and status code.",
		}, []string{"route", "method", "code"}),
		summaries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clarity_summaries_total",
			Help: "Summarize cycles by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "clarity_summarize_duration_seconds",
			Help:    "Wall time of summarize cycles.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 60},
		}),
	}
	m.registry.MustRegister(m.requests, m.summaries, m.duration)
	return m
}

func (m *metrics) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
	})
}

// observeSummary counts a cycle under "ok" or its error kind.
func (m *metrics) observeSummary(err error, elapsed time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = view.Kind(err)
	}
	m.summaries.WithLabelValues(outcome).Inc()
	m.duration.Observe(elapsed.Seconds())
}
