package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counter metrics
var (
	LoginCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "clink_login_total",
			Help: "Total number of login attempts",
		},
	)

	RegisterCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "clink_register_total",
			Help: "Total number of company registrations",
		},
	)

	AuthErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clink_auth_errors_total",
			Help: "Total number of authentication errors",
		},
		[]string{"type"}, // "missing_token", "invalid_token", "principal_not_found", ...
	)

	PermissionDeniedCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clink_permission_denied_total",
			Help: "Total number of denied permission checks",
		},
		[]string{"permission"},
	)

	CompanyOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clink_company_operations_total",
			Help: "Total number of company operations",
		},
		[]string{"operation"},
	)

	RoleOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clink_role_operations_total",
			Help: "Total number of role operations",
		},
		[]string{"operation"},
	)

	PlanOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clink_plan_operations_total",
			Help: "Total number of plan operations",
		},
		[]string{"operation"},
	)

	HTTPRequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clink_http_requests_total",
			Help: "Total number of HTTP requests by endpoint and status",
		},
		[]string{"endpoint", "method", "status"},
	)
)

// Histogram metrics
var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clink_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	DBOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clink_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

// Gauge metrics
var (
	InfoGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "clink_info",
			Help: "Information about the clink API service",
		},
		[]string{"version"},
	)

	DashboardTokenRefreshCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "clink_dashboard_token_refresh_total",
			Help: "Total number of dashboard SSO token refreshes",
		},
	)
)

func init() {
	prometheus.MustRegister(LoginCounter)
	prometheus.MustRegister(RegisterCounter)
	prometheus.MustRegister(AuthErrorCounter)
	prometheus.MustRegister(PermissionDeniedCounter)
	prometheus.MustRegister(CompanyOperationCounter)
	prometheus.MustRegister(RoleOperationCounter)
	prometheus.MustRegister(PlanOperationCounter)
	prometheus.MustRegister(HTTPRequestCounter)

	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(DBOperationDuration)

	prometheus.MustRegister(InfoGauge)
	prometheus.MustRegister(DashboardTokenRefreshCounter)

	InfoGauge.With(prometheus.Labels{"version": "1.0.0"}).Set(1)
}

// GetPrometheusHandler returns an HTTP handler for the Prometheus metrics
func GetPrometheusHandler() http.Handler {
	return promhttp.Handler()
}

// TrackDBOperation measures database operation durations
func TrackDBOperation(operation string) func(time.Time) {
	startTime := time.Now()
	return func(endTime time.Time) {
		duration := time.Since(startTime).Seconds()
		DBOperationDuration.With(prometheus.Labels{
			"operation": operation,
		}).Observe(duration)
	}
}

// MetricsMiddleware creates a middleware function that captures metrics for each request
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(c.Response().Status)
			endpoint := c.Path()
			method := c.Request().Method

			RequestDuration.With(prometheus.Labels{
				"endpoint": endpoint,
				"method":   method,
				"status":   status,
			}).Observe(duration)

			HTTPRequestCounter.With(prometheus.Labels{
				"endpoint": endpoint,
				"method":   method,
				"status":   status,
			}).Inc()

			return err
		}
	}
}

// RecordAuthError records an authentication error by type
func RecordAuthError(errorType string) {
	AuthErrorCounter.With(prometheus.Labels{"type": errorType}).Inc()
}

// RecordPermissionDenied records a denied permission check
func RecordPermissionDenied(permission string) {
	PermissionDeniedCounter.With(prometheus.Labels{"permission": permission}).Inc()
}

// RecordCompanyOperation records a company operation
func RecordCompanyOperation(operation string) {
	CompanyOperationCounter.With(prometheus.Labels{"operation": operation}).Inc()
}

// RecordRoleOperation records a role operation
func RecordRoleOperation(operation string) {
	RoleOperationCounter.With(prometheus.Labels{"operation": operation}).Inc()
}

// RecordPlanOperation records a plan operation
func RecordPlanOperation(operation string) {
	PlanOperationCounter.With(prometheus.Labels{"operation": operation}).Inc()
}
