// Package metrics emits the client and simulated-API counters through the
// gofulmen telemetry system. Every emitter is a no-op until
// observability.InitMetrics has installed a system.
package metrics

import (
	"strconv"
	"time"

	"github.com/brainboard/brainboard/internal/observability"
)

// Metric names.
const (
	APIRequestsTotal      = "client_api_requests_total"
	RefreshesTotal        = "client_token_refreshes_total"
	RateLimitedTotal      = "client_rate_limited_total"
	ServerRequestsTotal   = "mock_http_requests_total"
	ServerRequestDuration = "mock_http_request_duration_ms"
	ErrorsTotal           = "errors_total"
)

// RecordAPIRequest counts a dispatched client request. status 0 means the
// transport failed before a response arrived.
func RecordAPIRequest(endpoint string, status int) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(APIRequestsTotal, 1, map[string]string{
		"endpoint": endpoint,
		"status":   statusClass(status),
	})
}

// RecordRefresh counts a token refresh exchange.
func RecordRefresh(success bool) {
	if observability.TelemetrySystem == nil {
		return
	}
	result := "success"
	if !success {
		result = "failure"
	}
	_ = observability.TelemetrySystem.Counter(RefreshesTotal, 1, map[string]string{"result": result})
}

// RecordRateLimited counts a request refused by the local limiter.
func RecordRateLimited() {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(RateLimitedTotal, 1, nil)
}

// RecordServerRequest records one simulated-API request.
func RecordServerRequest(route, method string, status int, duration time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}
	labels := map[string]string{
		"route":  route,
		"method": method,
		"status": strconv.Itoa(status),
	}
	_ = observability.TelemetrySystem.Counter(ServerRequestsTotal, 1, labels)
	_ = observability.TelemetrySystem.Histogram(ServerRequestDuration, duration, map[string]string{"route": route})
}

// RecordError counts an error envelope written by the simulated API.
func RecordError(code string, status int) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(ErrorsTotal, 1, map[string]string{
		"error_code":  code,
		"http_status": strconv.Itoa(status),
	})
}

func statusClass(status int) string {
	if status <= 0 {
		return "error"
	}
	return strconv.Itoa(status/100) + "xx"
}
