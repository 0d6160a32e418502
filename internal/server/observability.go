package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// serverMetrics carries only bounded labels: reasons are a fixed set and
// endpoints are route patterns, never raw paths.
type serverMetrics struct {
	rejected   *prometheus.CounterVec
	requests   *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	wsClients  prometheus.Gauge
	wsMessages prometheus.Counter
}

func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	f := promauto.With(reg)
	return &serverMetrics{
		rejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "particlesim_connection_rejected_total",
			Help: "Requests or sockets refused by the rate limiter or origin check",
		}, []string{"reason"}),
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "particlesim_http_requests_total",
			Help: "HTTP requests served",
		}, []string{"method", "endpoint", "status"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "particlesim_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		wsClients: f.NewGauge(prometheus.GaugeOpts{
			Name: "particlesim_websocket_clients",
			Help: "Connected websocket clients",
		}),
		wsMessages: f.NewCounter(prometheus.CounterOpts{
			Name: "particlesim_websocket_frames_total",
			Help: "Frames broadcast to websocket clients",
		}),
	}
}

func (m *serverMetrics) reject(reason string) {
	if m != nil {
		m.rejected.WithLabelValues(reason).Inc()
	}
}

func (m *serverMetrics) clients(n int) {
	if m != nil {
		m.wsClients.Set(float64(n))
	}
}

func (m *serverMetrics) frame() {
	if m != nil {
		m.wsMessages.Inc()
	}
}

// instrument records status, latency and a debug log line per request.
func (m *serverMetrics) instrument(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			endpoint := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				endpoint = rctx.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			elapsed := time.Since(start)
			m.requests.WithLabelValues(r.Method, endpoint, strconv.Itoa(status)).Inc()
			m.latency.WithLabelValues(r.Method, endpoint).Observe(elapsed.Seconds())
			log.Debug("request",
				zap.String("method", r.Method),
				zap.String("endpoint", endpoint),
				zap.Int("status", status),
				zap.Duration("elapsed", elapsed),
			)
		})
	}
}
