package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/okian/covcall/pkg/metrics"
)

// statusClientClosed is the nginx convention for a caller that went away.
const statusClientClosed = 499

// errorClass labels a failed response for the error metrics.
type errorClass struct {
	kind     string
	severity string
}

var errorClasses = map[int]errorClass{
	http.StatusBadRequest:            {"bad_request", "low"},
	http.StatusNotFound:              {"not_found", "low"},
	http.StatusMethodNotAllowed:      {"method_not_allowed", "low"},
	http.StatusRequestEntityTooLarge: {"too_large", "low"},
	http.StatusUnprocessableEntity:   {"no_results", "low"},
	http.StatusTooManyRequests:       {"rate_limit", "medium"},
	statusClientClosed:               {"client_closed", "low"},
	http.StatusBadGateway:            {"provider_error", "high"},
	http.StatusGatewayTimeout:        {"provider_timeout", "high"},
}

func classify(code int) errorClass {
	if c, ok := errorClasses[code]; ok {
		return c
	}
	if code >= http.StatusInternalServerError {
		return errorClass{"server_error", "high"}
	}
	return errorClass{"client_error", "medium"}
}

// MetricsMiddleware records request count, latency and error class per endpoint.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		code := strconv.Itoa(sw.code)
		metrics.RecordHTTPRequest(endpoint, r.Method, code)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, code, float64(time.Since(start).Milliseconds()))

		if sw.code >= http.StatusBadRequest {
			c := classify(sw.code)
			metrics.RecordErrorByEndpoint(endpoint, r.Method, c.kind)
			metrics.RecordErrorByType(c.kind, c.severity)
		}
	}
}

// statusWriter captures the status code written by a handler.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.code = code
	sw.ResponseWriter.WriteHeader(code)
}
