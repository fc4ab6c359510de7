package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"

	"checklist/internal/metrics"
)

// requestLogger logs every request with its final status and latency, and
// feeds the per-route request counter.
func (s *Server) requestLogger() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				route := r.URL.Path
				if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
					route = rc.RoutePattern()
				}

				s.logger.Printf("%s %s %s %d %s %s",
					r.Method,
					r.RequestURI,
					r.RemoteAddr,
					ww.Status(),
					http.StatusText(ww.Status()),
					time.Since(start),
				)

				metrics.IncCounter(metrics.HTTPRequestsTotal, 1, metrics.Labels{
					"status": strconv.Itoa(ww.Status()),
					"route":  route,
				})
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
