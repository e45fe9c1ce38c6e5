package observability

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsCounters(t *testing.T) {
	t.Parallel()

	m := NewMetrics()

	m.IncMessageSent()
	m.IncMessageSent()
	if got := testutil.ToFloat64(m.messagesSentTotal); got != 2 {
		t.Fatalf("messages_sent_total = %v, want 2", got)
	}

	m.IncMessageFailed("SUPPRESSED")
	m.IncMessageFailed("exhausted")
	m.IncMessageFailed("")
	if got := testutil.ToFloat64(m.messagesFailedTotal.WithLabelValues("suppressed")); got != 1 {
		t.Fatalf("messages_failed_total{suppressed} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.messagesFailedTotal.WithLabelValues("exhausted")); got != 1 {
		t.Fatalf("messages_failed_total{exhausted} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.messagesFailedTotal.WithLabelValues("unknown")); got != 1 {
		t.Fatalf("messages_failed_total{unknown} = %v, want 1", got)
	}

	m.IncActiveLoops()
	m.IncActiveLoops()
	m.DecActiveLoops()
	if got := testutil.ToFloat64(m.activeCampaignLoops); got != 1 {
		t.Fatalf("active_campaign_loops = %v, want 1", got)
	}

	m.ObserveBatchDuration(120 * time.Millisecond)
	if got := testutil.ToFloat64(m.batchesProcessedTotal); got != 1 {
		t.Fatalf("batches_processed_total = %v, want 1", got)
	}

	m.IncCampaignFinished("COMPLETED")
	if got := testutil.ToFloat64(m.campaignsFinishedTotal.WithLabelValues("completed")); got != 1 {
		t.Fatalf("campaigns_finished_total{completed} = %v, want 1", got)
	}
}

func TestMetricsNilSafe(t *testing.T) {
	t.Parallel()

	var m *Metrics
	m.IncMessageSent()
	m.IncMessageFailed("timeout")
	m.ObserveBatchDuration(time.Second)
	m.IncActiveLoops()
	m.DecActiveLoops()
	m.IncCampaignFinished("failed")
	if m.Handler() == nil {
		t.Fatal("Handler() on nil Metrics should fall back to default handler")
	}
}

func TestHTTPMiddleware(t *testing.T) {
	t.Parallel()

	m := NewMetrics()

	app := fiber.New()
	app.Use(m.HTTPMiddleware())
	app.Get("/v1/campaigns/:id", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest("GET", "/v1/campaigns/abc", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	defer resp.Body.Close()

	got := testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "/v1/campaigns/:id", "200"))
	if got != 1 {
		t.Fatalf("http_requests_total = %v, want 1", got)
	}
}

func TestHTTPMiddleware_SkipsMetricsPath(t *testing.T) {
	t.Parallel()

	m := NewMetrics()

	app := fiber.New()
	app.Use(m.HTTPMiddleware())
	app.Get("/metrics", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest("GET", "/metrics", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	defer resp.Body.Close()

	got := testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "/metrics", "200"))
	if got != 0 {
		t.Fatalf("http_requests_total for /metrics = %v, want 0", got)
	}
}
