package server

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics serves the Prometheus registry. Extraction metrics themselves are
// recorded by the dft package.
type Metrics struct {
	handler http.Handler
}

var (
	activeRequests = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dft_http_active_requests",
		Help: "Requests currently being served.",
	})
	totalRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dft_http_requests_total",
		Help: "Requests served, by path and status code.",
	}, []string{"path", "code"})
	rateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dft_http_rate_limited_total",
		Help: "Requests rejected by the rate limiter.",
	})
)

// NewMetrics returns a Metrics backed by the default registry.
func NewMetrics() *Metrics {
	return &Metrics{handler: promhttp.Handler()}
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	s.metrics.handler.ServeHTTP(w, r)
}

// metricsMiddleware tracks in-flight requests and counts completed ones.
func (s *Server) metricsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		activeRequests.Inc()
		defer activeRequests.Dec()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		totalRequests.WithLabelValues(r.URL.Path, strconv.Itoa(rec.status)).Inc()
	}
}
