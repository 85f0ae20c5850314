package api

import (
	"net/http"
	"time"
	"transit-route-service/internal/api/handlers"
	"transit-route-service/internal/persistence"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

type Options struct {
	AllowedOrigins []string
	// RouteTTL is how long answered route queries are memoized; 0 disables it.
	RouteTTL time.Duration
}

// NewRouter wires HTTP handlers over a loaded snapshot and returns an http.Handler.
// This is the API composition root (handlers stay unaware of how the snapshot was obtained).
func NewRouter(snap *persistence.Snapshot, opts Options) http.Handler {
	h := handlers.NewNetworkHandler(snap, opts.RouteTTL)

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{requestIDHeader},
	}))

	r.Get("/health", h.Health)
	r.Get("/buses/{name}", h.Bus)
	r.Get("/stops/{name}", h.Stop)
	r.Get("/route", h.Route)
	r.Post("/stat", h.Stat)

	return r
}
