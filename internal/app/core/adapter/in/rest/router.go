package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter 組裝路由與 middleware
//
//	GET   /point/{id}
//	GET   /point/{id}/histories
//	PATCH /point/{id}/charge
//	PATCH /point/{id}/use
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPatch, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", middleware.RequestIDHeader},
		MaxAge:         300,
	}))

	r.Route("/point/{id}", func(r chi.Router) {
		r.Get("/", h.GetPoint)
		r.Get("/histories", h.GetHistories)
		r.Patch("/charge", h.Charge)
		r.Patch("/use", h.Use)
	})

	return r
}
