package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics stores Prometheus collectors used by the control API and the
// dispatcher loops.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal      *prometheus.CounterVec
	httpRequestDuration    *prometheus.HistogramVec
	messagesSentTotal      prometheus.Counter
	messagesFailedTotal    *prometheus.CounterVec
	batchDuration          prometheus.Histogram
	batchesProcessedTotal  prometheus.Counter
	activeCampaignLoops    prometheus.Gauge
	campaignsFinishedTotal *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "campaign_engine",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "campaign_engine",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		messagesSentTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "campaign_engine",
				Name:      "messages_sent_total",
				Help:      "Total number of campaign messages accepted by the provider.",
			},
		),
		messagesFailedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "campaign_engine",
				Name:      "messages_failed_total",
				Help:      "Total number of recipient-level failures by reason.",
			},
			[]string{"reason"},
		),
		batchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "campaign_engine",
				Name:      "batch_duration_seconds",
				Help:      "Duration of one dispatcher batch iteration in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
			},
		),
		batchesProcessedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "campaign_engine",
				Name:      "batches_processed_total",
				Help:      "Total number of dispatcher batch iterations committed.",
			},
		),
		activeCampaignLoops: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "campaign_engine",
				Name:      "active_campaign_loops",
				Help:      "Current number of running dispatcher loops.",
			},
		),
		campaignsFinishedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "campaign_engine",
				Name:      "campaigns_finished_total",
				Help:      "Total number of campaign loops that stopped, by final status.",
			},
			[]string{"status"},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.messagesSentTotal,
		m.messagesFailedTotal,
		m.batchDuration,
		m.batchesProcessedTotal,
		m.activeCampaignLoops,
		m.campaignsFinishedTotal,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) HTTPMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := routePath(c)
		// Avoid self-scrape noise for request counters.
		if path == "/metrics" {
			return err
		}

		m.recordHTTPRequest(c.Method(), path, statusFromResult(c, err), time.Since(start))
		return err
	}
}

func (m *Metrics) IncMessageSent() {
	if m == nil {
		return
	}
	m.messagesSentTotal.Inc()
}

func (m *Metrics) IncMessageFailed(reason string) {
	if m == nil {
		return
	}
	reasonLabel := strings.TrimSpace(strings.ToLower(reason))
	if reasonLabel == "" {
		reasonLabel = "unknown"
	}
	m.messagesFailedTotal.WithLabelValues(reasonLabel).Inc()
}

func (m *Metrics) ObserveBatchDuration(duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.batchDuration.Observe(seconds)
	m.batchesProcessedTotal.Inc()
}

func (m *Metrics) IncActiveLoops() {
	if m == nil {
		return
	}
	m.activeCampaignLoops.Inc()
}

func (m *Metrics) DecActiveLoops() {
	if m == nil {
		return
	}
	m.activeCampaignLoops.Dec()
}

func (m *Metrics) IncCampaignFinished(status string) {
	if m == nil {
		return
	}
	statusLabel := strings.TrimSpace(strings.ToLower(status))
	if statusLabel == "" {
		statusLabel = "unknown"
	}
	m.campaignsFinishedTotal.WithLabelValues(statusLabel).Inc()
}

func (m *Metrics) recordHTTPRequest(method string, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	methodLabel := strings.ToUpper(strings.TrimSpace(method))
	if methodLabel == "" {
		methodLabel = "UNKNOWN"
	}
	pathLabel := strings.TrimSpace(path)
	if pathLabel == "" {
		pathLabel = "unmatched"
	}

	m.httpRequestsTotal.WithLabelValues(methodLabel, pathLabel, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(methodLabel, pathLabel).Observe(duration.Seconds())
}

func routePath(c *fiber.Ctx) string {
	if c == nil {
		return "unmatched"
	}

	if route := c.Route(); route != nil {
		if path := strings.TrimSpace(route.Path); path != "" {
			return path
		}
	}
	return "unmatched"
}

func statusFromResult(c *fiber.Ctx, err error) int {
	if err != nil {
		if fiberErr, ok := err.(*fiber.Error); ok {
			return fiberErr.Code
		}
		return fiber.StatusInternalServerError
	}

	if c == nil {
		return fiber.StatusOK
	}

	status := c.Response().StatusCode()
	if status == 0 {
		return fiber.StatusOK
	}
	return status
}
