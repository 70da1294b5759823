package middleware

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/go-feed-comments/internal/metrics"
)

// Metrics считает запросы по методу, шаблону маршрута chi и статусу.
// Шаблон берётся после обработки: до этого chi ещё не сматчил маршрут.
func Metrics() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := newStatusWriter(w)
			next.ServeHTTP(sw, r)

			metrics.HTTPRequestsTotal.
				WithLabelValues(r.Method, routePattern(r), strconv.Itoa(sw.code())).
				Inc()
		})
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}

	return "unmatched"
}
