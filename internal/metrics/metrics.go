// Package metrics exposes Prometheus instrumentation for the storefront.
//
// Mount it once in routes:
//
//	app.Use(metrics.Middleware())
//	app.Get("/metrics", metrics.Handler())
package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "storefront"

var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	RequestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	RequestInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_in_flight",
		Help:      "Number of HTTP requests currently being served.",
	})

	// OTPIssued counts issued codes; reused is "true" when a live code was resent.
	OTPIssued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "otp_issued_total",
			Help:      "One-time codes issued or resent.",
		},
		[]string{"channel", "reused"},
	)

	OTPVerifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "otp_verifications_total",
			Help:      "One-time code verification attempts by result.",
		},
		[]string{"result"},
	)

	OrdersCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Orders created by payment method.",
		},
		[]string{"method"},
	)

	PaymentsVerified = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_verified_total",
			Help:      "Payment verifications by result.",
		},
		[]string{"result"},
	)

	OutboxJobs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "jobs_total",
			Help:      "Outbox deliveries by kind and status.",
		},
		[]string{"kind", "status"},
	)

	OutboxJobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "job_duration_seconds",
			Help:      "Duration of outbox deliveries in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"kind"},
	)
)

// Registry is the private registry served on /metrics.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(collectors.NewGoCollector())
	Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	Registry.MustRegister(
		RequestDuration,
		RequestTotal,
		RequestInFlight,
		OTPIssued,
		OTPVerifications,
		OrdersCreated,
		PaymentsVerified,
		OutboxJobs,
		OutboxJobDuration,
	)
}

// Middleware records duration, count and in-flight gauge per request. The
// route label uses the matched route pattern to keep cardinality bounded.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		RequestInFlight.Inc()
		defer RequestInFlight.Dec()

		// Render errors here so the recorded status is the one sent.
		if err := c.Next(); err != nil {
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		route := c.Route().Path
		code := strconv.Itoa(c.Response().StatusCode())
		RequestDuration.WithLabelValues(c.Method(), route, code).Observe(time.Since(start).Seconds())
		RequestTotal.WithLabelValues(c.Method(), route, code).Inc()
		return nil
	}
}

// Handler serves the registry through fiber's net/http adaptor.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(Registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
}

// RecordOutboxJob records one delivery attempt.
func RecordOutboxJob(kind, status string, start time.Time) {
	OutboxJobs.WithLabelValues(kind, status).Inc()
	OutboxJobDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}
