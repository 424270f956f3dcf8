package httpapi

import (
	"net/http"
	"time"
)

// slowRequest is the duration above which a request is logged at WARN.
const slowRequest = 5 * time.Second

// requestLoggerMiddleware logs request timing and records request metrics.
func (s *Server) requestLoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		route := routeLabel(r)
		s.metrics.observe(r.Method, route, rw.statusCode, duration)

		args := []any{"method", r.Method, "path", r.URL.Path, "status", rw.statusCode, "duration_ms", duration.Milliseconds()}
		switch {
		case rw.statusCode >= 500:
			s.logger.Error("request", args...)
		case rw.statusCode >= 400 || duration > slowRequest:
			s.logger.Warn("request", args...)
		default:
			s.logger.Info("request", args...)
		}
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
