package httpserver

import (
	"net/http"

	"grid-broker/internal/health"
	"grid-broker/internal/marketdata"

	"github.com/go-chi/chi/v5"
)

type RouterDeps struct {
	StatusHandler   *StatusHandler
	HealthHandler   *health.Handler
	CandlesHandler  *marketdata.Handler
	EventsWSHandler http.Handler
	StatusTokenHash string
	Origin          string
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && allowOrigin(r, d.Origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Internal-Token")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	})
	r.Use(SecurityHeaders)
	r.Use(RateLimit(10, 30))

	if d.HealthHandler != nil {
		r.Get("/health", d.HealthHandler.Live)
		r.Get("/health/ready", d.HealthHandler.Ready)
	} else {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	}
	r.Route("/v1", func(r chi.Router) {
		r.Use(InternalAuth(d.StatusTokenHash))
		r.Get("/status", d.StatusHandler.Status)
		r.Get("/orders", d.StatusHandler.Orders)
		r.Get("/orders/{id}", d.StatusHandler.Order)
		r.Get("/quote", d.StatusHandler.Quote)
		if d.CandlesHandler != nil {
			r.Get("/candles", d.CandlesHandler.Candles)
		}
		if d.HealthHandler != nil {
			r.Get("/metrics", d.HealthHandler.Metrics)
		}
		if d.EventsWSHandler != nil {
			r.Get("/ws", d.EventsWSHandler.ServeHTTP)
		}
	})
	return r
}
