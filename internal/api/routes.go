package api

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers every console route on r. Identity and nonce
// middleware are expected to be installed on r already.
func (h *Handler) RegisterRoutes(r chi.Router) {
	NewChallengeHandler(h).RegisterRoutes(r)
	NewDiscoveryHandler(h).RegisterRoutes(r)
	NewLabelHandler(h).RegisterRoutes(r)
	NewKeyHandler(h).RegisterRoutes(r)
	NewFileHandler(h).RegisterRoutes(r)
	r.Get("/notifications", h.Notifications)
}
