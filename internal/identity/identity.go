// Package identity provides per-browser console admin identity primitives.
package identity

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tamuctf/CTFd/internal/domain"
	"github.com/tamuctf/CTFd/internal/store"
)

const (
	AdminCookieName     = "ctfd_console_admin"
	adminCookieMaxAge   = 30 * 24 * time.Hour
	lastSeenGranularity = time.Minute
)

type contextKey int

const (
	adminIDKey contextKey = iota
	usernameKey
	nonceKey
)

// AdminIDFromContext extracts the admin ID from the request context.
func AdminIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(adminIDKey).(string); ok {
		return v
	}
	return ""
}

// UsernameFromContext extracts the admin display name from the request context.
func UsernameFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(usernameKey).(string); ok {
		return v
	}
	return ""
}

// NonceFromContext extracts the console nonce of the admin.
func NonceFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(nonceKey).(string); ok {
		return v
	}
	return ""
}

// WithAdmin returns a context carrying the admin's identity.
func WithAdmin(ctx context.Context, admin *domain.Admin) context.Context {
	ctx = context.WithValue(ctx, adminIDKey, admin.AdminID)
	ctx = context.WithValue(ctx, usernameKey, admin.Username)
	return context.WithValue(ctx, nonceKey, admin.Nonce)
}

func isValidAdminID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func deriveUsername(adminID string) string {
	if len(adminID) > 8 {
		return "admin-" + adminID[:8]
	}
	return "admin"
}

// NewNonce returns a fresh console anti-forgery token.
func NewNonce() string {
	return uuid.NewString()
}

func ensureAdmin(ctx context.Context, repo store.Repository, adminID string) (*domain.Admin, error) {
	admin, err := repo.GetAdmin(ctx, adminID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	if admin != nil {
		if now.Sub(admin.LastSeenAt) > lastSeenGranularity {
			go touch(adminID, now, repo)
		}
		return admin, nil
	}

	admin = &domain.Admin{
		AdminID:    adminID,
		Username:   deriveUsername(adminID),
		Nonce:      NewNonce(),
		LastSeenAt: now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := repo.UpsertAdmin(ctx, admin); err != nil {
		return nil, err
	}
	slog.Info("Console admin created", "admin_id", adminID)
	return admin, nil
}

// touch updates last seen asynchronously with timeout.
func touch(adminID string, now time.Time, repo store.Repository) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := repo.UpdateLastSeen(ctx, adminID, now); err != nil {
		slog.Warn("Failed to update last seen", "error", err, "admin_id", adminID)
	}
}

func getOrCreateAdminID(w http.ResponseWriter, r *http.Request, isDev bool) string {
	id := ""
	if c, err := r.Cookie(AdminCookieName); err == nil && isValidAdminID(c.Value) {
		id = c.Value
	} else {
		id = uuid.NewString()
	}

	http.SetCookie(w, &http.Cookie{
		Name:     AdminCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(adminCookieMaxAge.Seconds()),
		Expires:  time.Now().Add(adminCookieMaxAge),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   !isDev,
	})
	return id
}

// Middleware injects the console admin identity and console nonce.
func Middleware(repo store.Repository, isDev bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			adminID := getOrCreateAdminID(w, r, isDev)

			admin, err := ensureAdmin(r.Context(), repo, adminID)
			if err != nil {
				slog.Error("Failed to initialize console admin", "error", err, "admin_id", adminID)
				http.Error(w, `{"error":"failed to initialize console admin"}`, http.StatusInternalServerError)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithAdmin(r.Context(), admin)))
		})
	}
}

// IPFromRequest returns a normalized remote IP for optional request tracing.
func IPFromRequest(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
