package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tamuctf/CTFd/internal/identity"
	"github.com/tamuctf/CTFd/internal/store"
)

const healthCheckTimeout = 5 * time.Second

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	repo  store.Repository
	cache time.Duration
}

// NewHealthHandler creates a new health handler. cacheTTL is the freshness
// window of the challenge cache.
func NewHealthHandler(repo store.Repository, cacheTTL time.Duration) *HealthHandler {
	return &HealthHandler{repo: repo, cache: cacheTTL}
}

// Health returns the health status of the console and its dependencies.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	checks := map[string]string{"api": "ok"}
	status := map[string]interface{}{
		"status": "healthy",
		"checks": checks,
	}
	statusCode := http.StatusOK

	if err := h.repo.Ping(ctx); err != nil {
		slog.Error("Health check failed", "error", err)
		status["status"] = "degraded"
		checks["database"] = "unreachable"
		statusCode = http.StatusServiceUnavailable
		JSON(w, statusCode, status)
		return
	}
	checks["database"] = "ok"

	_, fetchedAt, err := h.repo.ListChallenges(ctx)
	switch {
	case err != nil:
		checks["challenge_cache"] = "unreadable"
	case fetchedAt.IsZero():
		checks["challenge_cache"] = "empty"
	case time.Since(fetchedAt) > h.cache:
		checks["challenge_cache"] = "stale"
		status["cache_age_seconds"] = int64(time.Since(fetchedAt).Seconds())
	default:
		checks["challenge_cache"] = "ok"
		status["cache_age_seconds"] = int64(time.Since(fetchedAt).Seconds())
	}

	JSON(w, statusCode, status)
}

// RegisterHealth registers the health check route.
func (h *HealthHandler) RegisterHealth(r chi.Router) {
	r.Get("/health", h.Health)
}

// Notifications returns the admin's recent notifications after the optional
// since sequence number.
func (h *Handler) Notifications(w http.ResponseWriter, r *http.Request) {
	var since uint64
	if raw := r.URL.Query().Get("since"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			Error(w, http.StatusBadRequest, "invalid since")
			return
		}
		since = v
	}
	recent := h.hub.Since(identity.AdminIDFromContext(r.Context()), since)
	JSON(w, http.StatusOK, map[string]any{"notifications": recent})
}
