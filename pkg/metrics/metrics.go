// Package metrics holds the Prometheus collectors of the notifier.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "notifier"

// Metrics groups every collector. Fields are safe for concurrent use.
type Metrics struct {
	FramesDelivered      prometheus.Counter
	ChannelWriteFailures prometheus.Counter
	RecipientsOffline    prometheus.Counter
	NotificationsCreated *prometheus.CounterVec // source
	StreamsOpened        prometheus.Counter
	StreamAuthFailures   prometheus.Counter
	IntakeMessages       *prometheus.CounterVec // result
	RequestCount         *prometheus.CounterVec // path, method, status
	RequestDuration      *prometheus.HistogramVec

	reg prometheus.Registerer
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		reg: reg,
		FramesDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_delivered_total",
			Help:      "Notification frames accepted by a live stream channel",
		}),
		ChannelWriteFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "channel_write_failures_total",
			Help:      "Channel writes that failed and caused the channel to be unregistered",
		}),
		RecipientsOffline: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recipients_offline_total",
			Help:      "Dispatches to a recipient with no open channel",
		}),
		NotificationsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_created_total",
			Help:      "Notification rows created",
		}, []string{"source"}),
		StreamsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "streams_opened_total",
			Help:      "Stream sessions that completed the handshake",
		}),
		StreamAuthFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_auth_failures_total",
			Help:      "Stream handshakes rejected as unauthorized",
		}),
		IntakeMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "intake_messages_total",
			Help:      "Event intake messages by outcome",
		}, []string{"result"}),
		RequestCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"path", "method", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Histogram of response durations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"path", "method"}),
	}

	reg.MustRegister(
		m.FramesDelivered,
		m.ChannelWriteFailures,
		m.RecipientsOffline,
		m.NotificationsCreated,
		m.StreamsOpened,
		m.StreamAuthFailures,
		m.IntakeMessages,
		m.RequestCount,
		m.RequestDuration,
	)
	return m
}

// NewNop returns collectors registered on a private registry. For tests and
// for callers that do not expose /metrics.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}

// ObserveConnections exports live registry sizes as gauges read at scrape
// time.
func (m *Metrics) ObserveConnections(recipients, channels func() int) {
	m.reg.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connected_recipients",
			Help:      "Recipients with at least one open stream",
		}, func() float64 { return float64(recipients()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_channels",
			Help:      "Open stream channels across all recipients",
		}, func() float64 { return float64(channels()) }),
	)
}

// Middleware records request count and latency per chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		m.RequestCount.WithLabelValues(path, r.Method, strconv.Itoa(ww.Status())).Inc()
		m.RequestDuration.WithLabelValues(path, r.Method).Observe(time.Since(start).Seconds())
	})
}

// Handler serves the collectors of g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
