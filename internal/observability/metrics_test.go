package observability

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestMetricsHandlerExposesDomainCounters(t *testing.T) {
	OrdersCreated().WithLabelValues("specialist").Inc()
	ChatMessages().WithLabelValues("text").Inc()

	extra := prometheus.NewRegistry()
	pool := prometheus.NewGauge(prometheus.GaugeOpts{Name: "db_pool_open_connections", Help: "Open database connections."})
	extra.MustRegister(pool)
	pool.Set(3)

	app := fiber.New()
	app.Get("/metrics", MetricsHandler(extra))

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "orders_created_total")
	require.Contains(t, string(body), "chat_messages_total")
	require.Contains(t, string(body), "db_pool_open_connections 3")
}
