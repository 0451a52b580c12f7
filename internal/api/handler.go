// Package api provides the HTTP handlers of the admin console.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tamuctf/CTFd/internal/catalog"
	"github.com/tamuctf/CTFd/internal/ctfd"
	"github.com/tamuctf/CTFd/internal/discovery"
	"github.com/tamuctf/CTFd/internal/domain"
	"github.com/tamuctf/CTFd/internal/editor"
	"github.com/tamuctf/CTFd/internal/identity"
	"github.com/tamuctf/CTFd/internal/notify"
)

// Server is the part of the CTF server client the console uses.
type Server interface {
	Challenges(ctx context.Context) ([]domain.Challenge, error)
	UpdateChallenge(ctx context.Context, ch domain.Challenge) error
	DeleteChallenge(ctx context.Context, id int) error
	SubmitKey(ctx context.Context, chalID int, key string) (domain.KeyResult, error)
	LoadPanels(ctx context.Context, chalID int) (*ctfd.Panels, error)

	Key(ctx context.Context, keyID int) (domain.Key, error)
	KeyTypes(ctx context.Context) ([]domain.KeyType, error)
	CreateKey(ctx context.Context, chalID int, flag, keyType string) error
	UpdateKey(ctx context.Context, keyID, chalID int, flag, keyType string) error
	ReplaceKeys(ctx context.Context, chalID int, flags, types []string) error
	DeleteKey(ctx context.Context, keyID int) error

	UpdateTags(ctx context.Context, chalID int, tags []string) error
	DeleteTag(ctx context.Context, tagID int) error
	UpdateHints(ctx context.Context, chalID int, hints []string) error
	DeleteHint(ctx context.Context, hintID int) error
	UpdateDiscoveryList(ctx context.Context, chalID int, rules []string) error
	DeleteDiscovery(ctx context.Context, discoveryID int) error

	UploadFiles(ctx context.Context, chalID int, uploads []ctfd.Upload) error
	DeleteFile(ctx context.Context, chalID, fileID int) error
	FileURL(f domain.File) string
}

// Renderer renders a named page.
type Renderer interface {
	Render(w io.Writer, name string, data any) error
}

// Handler provides common handler utilities.
type Handler struct {
	server   Server
	catalog  *catalog.Service
	sessions *editor.Registry
	hub      *notify.Hub
	pages    Renderer
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(server Server, cat *catalog.Service, sessions *editor.Registry, hub *notify.Hub, pages Renderer) *Handler {
	return &Handler{
		server:   server,
		catalog:  cat,
		sessions: sessions,
		hub:      hub,
		pages:    pages,
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// wantsJSON reports whether the caller is a script rather than a form post.
func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json") ||
		r.Header.Get("X-Requested-With") == "XMLHttpRequest"
}

// statusFor maps an action error to the console's HTTP status.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, discovery.ErrUnknownWidget),
		errors.Is(err, editor.ErrUnknownDraft),
		errors.Is(err, catalog.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, editor.ErrStaleSession), errors.Is(err, errStaleRevision):
		return http.StatusConflict
	}
	switch ctfd.OutcomeOf(err) {
	case ctfd.NotFound:
		return http.StatusNotFound
	case ctfd.NetworkFailure:
		return http.StatusBadGateway
	default:
		return http.StatusUnprocessableEntity
	}
}

// report publishes the outcome of op to the admin's notifications.
func (h *Handler) report(ctx context.Context, op string, err error, revision uint64) notify.Notification {
	n := notify.FromResult(op, err, revision)
	if adminID := identity.AdminIDFromContext(ctx); adminID != "" {
		h.hub.Publish(adminID, n)
	}
	if err != nil {
		slog.Warn("Console action failed", "op", op, "outcome", n.Outcome, "error", err,
			"admin_id", identity.AdminIDFromContext(ctx))
	}
	return n
}

// finish reports an action and answers with JSON for scripts or a redirect
// back to the page for form posts.
func (h *Handler) finish(w http.ResponseWriter, r *http.Request, op string, err error, revision uint64, redirect string, payload any) {
	n := h.report(r.Context(), op, err, revision)
	if wantsJSON(r) {
		if err != nil {
			JSON(w, statusFor(err), map[string]any{"error": n.Message, "outcome": n.Outcome})
			return
		}
		if payload == nil {
			payload = map[string]string{"status": "ok"}
		}
		JSON(w, http.StatusOK, payload)
		return
	}
	http.Redirect(w, r, redirect, http.StatusSeeOther)
}

// fail answers a request that could not be attempted.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	n := h.report(r.Context(), op, err, 0)
	status := statusFor(err)
	if wantsJSON(r) {
		JSON(w, status, map[string]any{"error": n.Message, "outcome": n.Outcome})
		return
	}
	h.renderError(w, r, status, n.Message)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.pages.Render(w, name, data); err != nil {
		slog.Error("Failed to render page", "page", name, "error", err)
	}
}

func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	h.render(w, r, status, "error", ErrorPage{
		Page:    h.basePage(r, http.StatusText(status)),
		Status:  status,
		Message: message,
	})
}

func pathInt(r *http.Request, name string) (int, error) {
	n, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || n <= 0 {
		return 0, &ctfd.OutcomeError{Op: "parse_" + name, Outcome: ctfd.ValidationFailure, Message: "invalid " + name}
	}
	return n, nil
}

func challengePath(chalID int, anchor string) string {
	p := "/challenges/" + strconv.Itoa(chalID)
	if anchor != "" {
		p += "#" + anchor
	}
	return p
}

// session returns the admin's editor session for chalID, opening one when
// the admin has none.
func (h *Handler) session(ctx context.Context, chalID int) (*editor.Session, error) {
	adminID := identity.AdminIDFromContext(ctx)
	s, err := h.sessions.GetFor(adminID, chalID)
	if errors.Is(err, editor.ErrNoSession) {
		return h.openSession(ctx, adminID, chalID)
	}
	return s, err
}

func (h *Handler) openSession(ctx context.Context, adminID string, chalID int) (*editor.Session, error) {
	subject, err := h.catalog.Get(ctx, chalID)
	if err != nil {
		return nil, err
	}
	all, err := h.catalog.List(ctx)
	if err != nil {
		return nil, err
	}
	return h.sessions.Open(adminID, subject, all), nil
}
