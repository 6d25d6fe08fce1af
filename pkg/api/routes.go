package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) RegisterRoutes(r chi.Router) {
	routes := map[string]http.HandlerFunc{
		"/api/collections":  s.HandleCollections,
		"/api/autocomplete": s.HandleAutocomplete,
		"/api/search":       s.HandleSearch,
		"/health":           s.HandleHealth,
	}

	r.Group(func(r chi.Router) {
		r.Use(CorsMiddleware, Compress)
		for path, h := range routes {
			r.Get(path, h)
			// Preflight requests are answered by CorsMiddleware.
			r.Options(path, h)
		}
	})
	r.Get("/api/live", s.HandleLive)
}
