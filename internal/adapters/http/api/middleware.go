package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/ralucacrepcea/scoreapp/pkg/metrics"
)

// MetricsMiddleware records request count and latency for endpoint, plus an
// error by kind for every failed or partially applied request.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		code := strconv.Itoa(rec.status)
		metrics.RecordHTTPRequest(endpoint, r.Method, code)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, code,
			float64(time.Since(start).Microseconds())/1000)
		if kind, failed := failureKind(rec.status); failed {
			metrics.RecordErrorByComponent("http", kind)
		}
	}
}

func failureKind(status int) (string, bool) {
	switch {
	case status == http.StatusMultiStatus:
		return "partial_batch", true
	case status < http.StatusBadRequest:
		return "", false
	case status == http.StatusUnauthorized:
		return "signature", true
	case status == http.StatusNotFound:
		return "not_found", true
	case status == http.StatusConflict:
		return "conflict", true
	case status == http.StatusTooManyRequests:
		return "backpressure", true
	case status == http.StatusServiceUnavailable:
		return "unavailable", true
	case status >= http.StatusInternalServerError:
		return "server_error", true
	}
	return "client_error", true
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
