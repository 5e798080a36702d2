package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/clinicore/backend/internal/infrastructure/telemetry"
)

// httpMetrics holds the HTTP server instruments
type httpMetrics struct {
	requestTotal    metric.Int64Counter
	requestDuration metric.Float64Histogram
	activeRequests  metric.Int64UpDownCounter
}

func newHTTPMetrics(meter metric.Meter) (*httpMetrics, error) {
	requestTotal, err := meter.Int64Counter(
		"http_server_request_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"http_server_request_duration_seconds",
		metric.WithDescription("HTTP request latency distribution in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	activeRequests, err := meter.Int64UpDownCounter(
		"http_server_active_requests",
		metric.WithDescription("Number of in-flight HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	return &httpMetrics{
		requestTotal:    requestTotal,
		requestDuration: requestDuration,
		activeRequests:  activeRequests,
	}, nil
}

// HTTPMetrics returns a middleware recording request count, latency and
// in-flight requests per route. Returns a pass-through when the meter
// provider is disabled or instrument creation fails.
func HTTPMetrics(provider *telemetry.MeterProvider) gin.HandlerFunc {
	if provider == nil || !provider.IsEnabled() {
		return func(c *gin.Context) { c.Next() }
	}

	metrics, err := newHTTPMetrics(provider.Meter("http_server"))
	if err != nil {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		start := time.Now()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		baseAttrs := metric.WithAttributes(
			attribute.String("http_method", c.Request.Method),
			attribute.String("http_route", route),
		)

		ctx := c.Request.Context()
		metrics.activeRequests.Add(ctx, 1, baseAttrs)
		defer metrics.activeRequests.Add(ctx, -1, baseAttrs)

		c.Next()

		attrs := metric.WithAttributes(
			attribute.String("http_method", c.Request.Method),
			attribute.String("http_route", route),
			attribute.Int("http_status_code", c.Writer.Status()),
		)
		metrics.requestTotal.Add(ctx, 1, attrs)
		metrics.requestDuration.Record(ctx, time.Since(start).Seconds(), attrs)
	}
}
