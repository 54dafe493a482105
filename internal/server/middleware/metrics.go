package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/plainly/plainly/internal/observability"
)

const (
	requestsTotal        = "http_requests_total"
	requestDurationMs    = "http_request_duration_ms"
	requestSizeBytes     = "http_request_size_bytes"
	responseSizeBytes    = "http_response_size_bytes"
	requestErrorsTotal   = "http_errors_total"
	unknownEndpointLabel = "/unknown"
)

// knownPaths label requests that never reached the router, e.g. a panic
// before routing. Everything else collapses to /unknown.
var knownPaths = map[string]string{
	"/":               "/",
	"/health":         "/health/*",
	"/health/live":    "/health/*",
	"/health/ready":   "/health/*",
	"/health/startup": "/health/*",
	"/version":        "/version",
	"/metrics":        "/metrics",
	"/api/simplify":   "/api/simplify",
	"/api/options":    "/api/options",
	"/api/usage":      "/api/usage",
}

func getEndpointPattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	if label, ok := knownPaths[r.URL.Path]; ok {
		return label
	}
	return unknownEndpointLabel
}

// errorClass buckets a status for http_errors_total. 429 gets its own class
// so premium throttling is visible apart from malformed requests.
func errorClass(status int) string {
	switch {
	case status == http.StatusTooManyRequests:
		return "rate_limited"
	case status >= 500:
		return "server_error"
	case status >= 400:
		return "client_error"
	default:
		return ""
	}
}

// RequestMetrics emits request count, latency and size series labelled by
// route pattern, then logs the request.
func RequestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if observability.TelemetrySystem == nil {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		duration := time.Since(start)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		requestSize := r.ContentLength
		if requestSize < 0 {
			requestSize = 0
		}
		responseSize := int64(ww.BytesWritten())
		endpoint := getEndpointPattern(r)

		labels := map[string]string{
			"method":   r.Method,
			"endpoint": endpoint,
			"status":   strconv.Itoa(status),
		}
		sizeLabels := map[string]string{
			"method":   r.Method,
			"endpoint": endpoint,
		}

		telemetry := observability.TelemetrySystem
		_ = telemetry.Counter(requestsTotal, 1, labels)
		_ = telemetry.Histogram(requestDurationMs, duration, labels)
		_ = telemetry.Gauge(requestSizeBytes, float64(requestSize), sizeLabels)
		_ = telemetry.Gauge(responseSizeBytes, float64(responseSize), sizeLabels)

		if class := errorClass(status); class != "" {
			_ = telemetry.Counter(requestErrorsTotal, 1, map[string]string{
				"method":     r.Method,
				"endpoint":   endpoint,
				"status":     strconv.Itoa(status),
				"error_type": class,
			})
		}

		logger := observability.ServerLogger
		if logger == nil {
			return
		}
		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("endpoint", endpoint),
			zap.Int("status", status),
			zap.Duration("duration", duration),
			zap.Int64("request_size", requestSize),
			zap.Int64("response_size", responseSize),
			zap.String("request_id", GetRequestID(r.Context())),
			zap.String("client_id", GetClientID(r)),
		}
		if status >= 500 {
			logger.Warn("HTTP request failed", fields...)
			return
		}
		logger.Info("HTTP request completed", fields...)
	})
}
