package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Middleware records request metrics and writes one structured log line per
// request. Mount it after chi's RequestID so the id is available.
func Middleware(logger zerolog.Logger) func(http.Handler) http.Handler {
	RegisterMetrics()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			duration := time.Since(start)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := routePattern(r)
			statusLabel := strconv.Itoa(status)

			HTTPRequests().WithLabelValues(r.Method, route, statusLabel).Inc()
			HTTPLatency().WithLabelValues(r.Method, route).Observe(duration.Seconds())

			requestLogger := logger.With().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("route", route).
				Str("method", r.Method).
				Int("status", status).
				Float64("latency_ms", float64(duration)/float64(time.Millisecond)).
				Logger()

			switch {
			case status >= http.StatusInternalServerError:
				requestLogger.Error().Msg("request failed")
			case status >= http.StatusBadRequest:
				requestLogger.Warn().Msg("request completed with client error")
			default:
				requestLogger.Info().Msg("request completed")
			}
		})
	}
}

func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
