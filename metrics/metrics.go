package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestCounter counts all HTTP requests with labels
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"service", "method", "path", "status"},
	)

	// RequestDurationHistogram records request duration in seconds
	RequestDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method", "path", "status"},
	)

	// SettlementsTotal counts approval attempts by outcome ("approved" or an error code)
	SettlementsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recharge_settlements_total",
			Help: "Recharge approval attempts by outcome",
		},
		[]string{"result"},
	)

	// CommissionCredited sums commission paid out, by ledger type
	CommissionCredited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "commission_credited_total",
			Help: "Commission credited to vendor wallets",
		},
		[]string{"type"},
	)

	RechargesCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "recharges_created_total",
			Help: "Recharge records created",
		},
	)

	// ExpiredPlans counts vendors switched off by the expiry sweep
	ExpiredPlans = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "expiry_sweep_plans_expired_total",
			Help: "Vendor plans switched off by the expiry sweep",
		},
	)

	SweepRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "expiry_sweep_runs_total",
			Help: "Expiry sweep runs by status",
		},
		[]string{"status"},
	)

	// NotificationsTotal counts notification deliveries by channel and result
	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Notification deliveries by channel and result",
		},
		[]string{"channel", "result"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestCounter,
		RequestDurationHistogram,
		SettlementsTotal,
		CommissionCredited,
		RechargesCreated,
		ExpiredPlans,
		SweepRuns,
		NotificationsTotal,
	)
}

// HTTPMetrics records request metrics for one service
type HTTPMetrics struct {
	ServiceName string
}

func NewHTTPMetrics(serviceName string) *HTTPMetrics {
	return &HTTPMetrics{ServiceName: serviceName}
}

// Middleware creates an Echo middleware function that records HTTP request metrics
func (m *HTTPMetrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			method := c.Request().Method
			path := c.Path()
			statusStr := strconv.Itoa(status)

			RequestCounter.WithLabelValues(m.ServiceName, method, path, statusStr).Inc()
			RequestDurationHistogram.WithLabelValues(m.ServiceName, method, path, statusStr).
				Observe(time.Since(start).Seconds())

			return err
		}
	}
}

// Handler exposes the Prometheus registry
func Handler() http.Handler {
	return promhttp.Handler()
}
