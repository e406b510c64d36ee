package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/okian/topicsink/pkg/metrics"
)

// MetricsMiddleware records request count, latency and error class for route.
func MetricsMiddleware(next http.HandlerFunc, route string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		status := strconv.Itoa(rec.status)
		elapsedMs := float64(time.Since(start).Microseconds()) / 1e3
		metrics.RecordHTTPRequest(route, r.Method, status)
		metrics.RecordHTTPRequestDuration(route, r.Method, status, elapsedMs)

		if kind, severity, failed := classifyStatus(rec.status); failed {
			metrics.RecordErrorByComponent("http", kind)
			metrics.RecordErrorByType(kind, severity)
		}
	}
}

// classifyStatus maps an error status to an error kind and severity.
// 503 is how /readyz reports an unreachable store, so it gets its own kind.
func classifyStatus(status int) (kind, severity string, failed bool) {
	switch {
	case status < http.StatusBadRequest:
		return "", "", false
	case status == http.StatusServiceUnavailable:
		return "unavailable", "high", true
	case status >= http.StatusInternalServerError:
		return "server_error", "high", true
	case status == http.StatusMethodNotAllowed:
		return "method_not_allowed", "medium", true
	case status == http.StatusNotFound:
		return "not_found", "medium", true
	default:
		return "client_error", "medium", true
	}
}

// statusRecorder remembers the status a handler wrote.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	return r.ResponseWriter.Write(b)
}
