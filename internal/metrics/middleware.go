package metrics

import (
	"net/http"
	"time"
)

// unmatchedRoute labels requests no route pattern matched.
const unmatchedRoute = "unmatched"

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// HTTPMiddleware records request metrics labelled by the ServeMux pattern
// that served the request, so page objects and job ids do not each get a
// series of their own.
func HTTPMiddleware(reg *Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reg.InFlightInc()
			defer reg.InFlightDec()

			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rw, r)

			reg.RecordRequest(r.Method, route(r), rw.statusCode, time.Since(start).Seconds())
		})
	}
}

// route is the pattern ServeMux matched, which it stores on the request.
func route(r *http.Request) string {
	if r.Pattern == "" {
		return unmatchedRoute
	}
	return r.Pattern
}
