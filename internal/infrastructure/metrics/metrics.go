package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wekeepgrowing/jobportal-payment/internal/domain/model"
	"github.com/wekeepgrowing/jobportal-payment/internal/domain/provider"
)

const namespace = "payment"

// Metrics owns a private registry so tests and multiple instances never collide
// on the default one.
type Metrics struct {
	registry *prometheus.Registry

	Transitions         *prometheus.CounterVec
	Webhooks            *prometheus.CounterVec
	VendorRequests      *prometheus.CounterVec
	VendorDuration      *prometheus.HistogramVec
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	PendingSwept        prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Applied payment state transitions",
		}, []string{"provider", "from", "to"}),
		Webhooks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_events_total",
			Help:      "Webhook deliveries by outcome",
		}, []string{"provider", "outcome"}),
		VendorRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vendor_requests_total",
			Help:      "Calls made to payment vendors",
		}, []string{"provider", "operation", "outcome"}),
		VendorDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "vendor_request_duration_seconds",
			Help:      "Latency of payment vendor calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider", "operation"}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status_code"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		PendingSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_pending_refreshed_total",
			Help:      "Pending payments refreshed by the stale sweeper",
		}),
	}

	reg.MustRegister(
		m.Transitions,
		m.Webhooks,
		m.VendorRequests,
		m.VendorDuration,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.PendingSwept,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) RecordTransition(p model.ProviderType, from, to model.PaymentStatus) {
	m.Transitions.WithLabelValues(string(p), string(from), string(to)).Inc()
}

func (m *Metrics) RecordWebhook(p model.ProviderType, outcome string) {
	m.Webhooks.WithLabelValues(string(p), outcome).Inc()
}

// ObserveVendorCall labels the outcome with the provider error kind, "ok" on success
func (m *Metrics) ObserveVendorCall(p model.ProviderType, operation string, started time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
		if kind := provider.KindOf(err); kind != "" {
			outcome = string(kind)
		}
	}
	m.VendorRequests.WithLabelValues(string(p), operation, outcome).Inc()
	m.VendorDuration.WithLabelValues(string(p), operation).Observe(time.Since(started).Seconds())
}

// EchoMiddleware records request counts by route template, not raw path
func (m *Metrics) EchoMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}

			m.HTTPRequestsTotal.WithLabelValues(c.Request().Method, path, strconv.Itoa(status)).Inc()
			m.HTTPRequestDuration.WithLabelValues(c.Request().Method, path).Observe(time.Since(start).Seconds())
			return err
		}
	}
}
