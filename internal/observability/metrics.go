package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequestsTotal  *prometheus.CounterVec
	httpLatencySeconds *prometheus.HistogramVec
	httpErrorsTotal    *prometheus.CounterVec

	authAttemptsTotal   *prometheus.CounterVec
	ordersCreatedTotal  *prometheus.CounterVec
	responsesTotal      *prometheus.CounterVec
	reviewsCreatedTotal *prometheus.CounterVec
	chatMessagesTotal   *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		authAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_attempts_total",
			Help: "Registration and login attempts by outcome.",
		}, []string{"action", "result"})

		ordersCreatedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Orders created by creator role.",
		}, []string{"role"})

		responsesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "responses_total",
			Help: "Response lifecycle transitions by outcome.",
		}, []string{"outcome"})

		reviewsCreatedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reviews_created_total",
			Help: "Reviews created by target type.",
		}, []string{"target_type"})

		chatMessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_messages_total",
			Help: "Chat messages sent by message type.",
		}, []string{"type"})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			authAttemptsTotal,
			ordersCreatedTotal,
			responsesTotal,
			reviewsCreatedTotal,
			chatMessagesTotal,
		)
	})
}

// HTTPRequests exposes the request counter.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the request latency histogram.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the error response counter.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// AuthAttempts exposes the registration/login counter.
func AuthAttempts() *prometheus.CounterVec {
	RegisterMetrics()
	return authAttemptsTotal
}

// OrdersCreated exposes the order creation counter.
func OrdersCreated() *prometheus.CounterVec {
	RegisterMetrics()
	return ordersCreatedTotal
}

// Responses exposes the response transition counter.
func Responses() *prometheus.CounterVec {
	RegisterMetrics()
	return responsesTotal
}

// ReviewsCreated exposes the review creation counter.
func ReviewsCreated() *prometheus.CounterVec {
	RegisterMetrics()
	return reviewsCreatedTotal
}

// ChatMessages exposes the chat message counter.
func ChatMessages() *prometheus.CounterVec {
	RegisterMetrics()
	return chatMessagesTotal
}
