package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/figlinq/contents-gateway/internal/contents"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(provider contents.Provider, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(provider)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Content operations. The wildcard routes also serve the checkpoint
	// sub-resources (…/checkpoints, …/checkpoints/{id}).
	r.Get("/contents", h.Get)
	r.Get("/contents/*", h.Get)
	r.Post("/contents", h.Create)
	r.Post("/contents/*", h.Create)
	r.Put("/contents/*", h.Save)
	r.Patch("/contents/*", h.Rename)
	r.Delete("/contents/*", h.Delete)

	// Direct download redirect.
	r.Get("/download", h.Download)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
