package observability

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsHandler serves the scrape endpoint. Extra gatherers are merged with
// the default registry; a failing collector does not hide the others.
func MetricsHandler(extra ...prometheus.Gatherer) fiber.Handler {
	RegisterMetrics()

	gatherers := append(prometheus.Gatherers{prometheus.DefaultGatherer}, extra...)
	return adaptor.HTTPHandler(promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	}))
}
