package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	appI18n "github.com/pavelanni/wrongnote/internal/i18n"
)

// Router builds the chi router with the standard middleware stack. lang is the
// fallback language for requests that do not ask for one. An empty origins list
// allows any origin.
func (h *Handler) Router(lang string, origins []string) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept-Language", "Content-Type"},
	})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(c.Handler)
	r.Use(appI18n.Middleware(lang))
	h.Routes(r)
	return r
}
