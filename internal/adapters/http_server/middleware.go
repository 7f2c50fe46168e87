package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"tripadvisor_hotels/internal/adapters/observability"
)

// unmatchedRoute labels requests no route claimed, so arbitrary paths never
// become metric labels.
const unmatchedRoute = "unmatched"

func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler { return http.TimeoutHandler(next, d, "timeout") }
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

// Instrument records the request in Prometheus and writes one access log line
// carrying the hotel key or city filter the request asked for.
func Instrument(l zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(sw, r)

			status := sw.status
			if status == 0 {
				status = http.StatusOK
			}
			dur := time.Since(start)

			route := unmatchedRoute
			rctx := chi.RouteContext(r.Context())
			if rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			observability.ObserveHTTP(route, r.Method, status, dur)

			ev := l.Info()
			if status >= http.StatusInternalServerError {
				ev = l.Warn()
			}
			if rctx != nil {
				if key := rctx.URLParam("key"); key != "" {
					ev = ev.Str("hotel_key", key)
				}
			}
			if city := r.URL.Query().Get("city"); city != "" {
				ev = ev.Str("city", city)
			}
			ev.Str("request_id", chimw.GetReqID(r.Context())).
				Str("route", route).
				Str("method", r.Method).
				Int("status", status).
				Dur("duration", dur).
				Str("remote", r.RemoteAddr).
				Msg("http_request")
		})
	}
}
