package telemetry

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counters for the domain events worth alerting on. Exposed on /metrics
// via promhttp.
var (
	Registrations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_registrations_total",
		Help: "Accounts created.",
	})
	Logins = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_logins_total",
		Help: "Successful logins.",
	})
	MessagesAppended = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_messages_appended_total",
		Help: "Messages appended to chat logs.",
	})
	ModerationActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_moderation_actions_total",
		Help: "Admin moderation actions by kind.",
	}, []string{"action"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "relay_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "status"})
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack keeps websocket upgrades working through the middleware.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return h.Hijack()
}

// Middleware records request latency and status for every handler it wraps.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		httpDuration.WithLabelValues(r.Method, strconv.Itoa(rec.status)).
			Observe(time.Since(start).Seconds())
	})
}
