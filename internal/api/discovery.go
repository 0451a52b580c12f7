package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/tamuctf/CTFd/internal/discovery"
	"github.com/tamuctf/CTFd/internal/identity"
)

// errStaleRevision is returned when a submit was rendered from an older state.
var errStaleRevision = errors.New("discovery selection changed since the page was rendered")

// submitLocks prevents concurrent discovery submits for the same admin.
var submitLocks submitGate

// submitGate hands out one in-flight slot per admin.
type submitGate struct {
	locks sync.Map
}

// acquire takes the admin's slot. The entry is deleted before the mutex is
// unlocked so a later caller never locks a mutex that is about to leave the map.
func (g *submitGate) acquire(adminID string) (release func(), ok bool) {
	lock, _ := g.locks.LoadOrStore(adminID, &sync.Mutex{})
	mutex := lock.(*sync.Mutex)
	if !mutex.TryLock() {
		return nil, false
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			g.locks.CompareAndDelete(adminID, mutex)
			mutex.Unlock()
		})
	}, true
}

// DiscoveryHandler edits the discovery rules of the open challenge.
type DiscoveryHandler struct {
	*Handler
}

// NewDiscoveryHandler creates a new discovery handler.
func NewDiscoveryHandler(base *Handler) *DiscoveryHandler {
	return &DiscoveryHandler{Handler: base}
}

// RegisterRoutes registers discovery widget routes.
func (h *DiscoveryHandler) RegisterRoutes(r chi.Router) {
	r.Route("/challenges/{chalID}/discovery", func(r chi.Router) {
		r.Get("/", h.State)
		r.Post("/widgets", h.Create)
		r.Post("/widgets/{ordinal}/toggle", h.Toggle)
		r.Post("/widgets/{ordinal}/delete", h.Remove)
		r.Post("/submit", h.Submit)
		r.Post("/{ruleID}/delete", h.DeleteRule)
	})
}

// discoveryState is the JSON projection of a discovery manager.
type discoveryState struct {
	discovery.Snapshot
	Encoded []string `json:"encoded"`
}

func stateOf(m *discovery.Manager) discoveryState {
	return discoveryState{Snapshot: m.Snapshot(), Encoded: m.Encoded()}
}

// managerFor resolves the session's discovery manager or answers the request.
func (h *DiscoveryHandler) managerFor(w http.ResponseWriter, r *http.Request, op string) (int, *discovery.Manager, bool) {
	chalID, err := pathInt(r, "chalID")
	if err != nil {
		h.fail(w, r, op, err)
		return 0, nil, false
	}
	s, err := h.session(r.Context(), chalID)
	if err != nil {
		h.fail(w, r, op, err)
		return 0, nil, false
	}
	return chalID, s.Discovery(), true
}

// State returns the widgets and labels of the open challenge.
func (h *DiscoveryHandler) State(w http.ResponseWriter, r *http.Request) {
	_, m, ok := h.managerFor(w, r, "discovery_state")
	if !ok {
		return
	}
	JSON(w, http.StatusOK, stateOf(m))
}

// Create adds a new widget.
func (h *DiscoveryHandler) Create(w http.ResponseWriter, r *http.Request) {
	chalID, m, ok := h.managerFor(w, r, "create_widget")
	if !ok {
		return
	}
	view := m.Create()
	h.local(w, r, chalID, view)
}

// Toggle flips one candidate of a widget.
func (h *DiscoveryHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	chalID, m, ok := h.managerFor(w, r, "toggle_widget")
	if !ok {
		return
	}
	ordinal, err := strconv.Atoi(chi.URLParam(r, "ordinal"))
	if err != nil {
		h.fail(w, r, "toggle_widget", discovery.ErrUnknownWidget)
		return
	}
	candidate, err := strconv.Atoi(strings.TrimSpace(r.FormValue("candidate")))
	if err != nil {
		h.fail(w, r, "toggle_widget", discovery.ErrUnknownCandidate)
		return
	}
	view, err := m.Toggle(ordinal, candidate)
	if err != nil {
		h.fail(w, r, "toggle_widget", err)
		return
	}
	h.local(w, r, chalID, view)
}

// Remove deletes a widget and its label.
func (h *DiscoveryHandler) Remove(w http.ResponseWriter, r *http.Request) {
	chalID, m, ok := h.managerFor(w, r, "remove_widget")
	if !ok {
		return
	}
	ordinal, err := strconv.Atoi(chi.URLParam(r, "ordinal"))
	if err != nil {
		h.fail(w, r, "remove_widget", discovery.ErrUnknownWidget)
		return
	}
	if err := m.Remove(ordinal); err != nil {
		h.fail(w, r, "remove_widget", err)
		return
	}
	h.local(w, r, chalID, stateOf(m))
}

// local answers a widget change that needs no server call.
func (h *DiscoveryHandler) local(w http.ResponseWriter, r *http.Request, chalID int, payload any) {
	if wantsJSON(r) {
		JSON(w, http.StatusOK, payload)
		return
	}
	http.Redirect(w, r, challengePath(chalID, "discovery"), http.StatusSeeOther)
}

// Submit sends the labels as new discovery rules and clears the widgets.
func (h *DiscoveryHandler) Submit(w http.ResponseWriter, r *http.Request) {
	chalID, m, ok := h.managerFor(w, r, "update_discovery")
	if !ok {
		return
	}

	adminID := identity.AdminIDFromContext(r.Context())
	release, acquired := submitLocks.acquire(adminID)
	if !acquired {
		slog.Warn("Discovery submit already in progress", "admin_id", adminID)
		Error(w, http.StatusConflict, "submit_in_progress")
		return
	}
	defer release()

	revision := m.Revision()
	if raw := r.FormValue("revision"); raw != "" {
		if rendered, err := strconv.ParseUint(raw, 10, 64); err != nil || rendered != revision {
			h.finish(w, r, "update_discovery", errStaleRevision, revision, challengePath(chalID, "discovery"), nil)
			return
		}
	}

	err := h.server.UpdateDiscoveryList(r.Context(), chalID, m.Encoded())
	if err == nil {
		// widgets changed while the request was in flight: keep them
		m.ResetIf(revision)
		h.reloadPanels(r, chalID)
	}
	h.finish(w, r, "update_discovery", err, revision, challengePath(chalID, "discovery"), stateOf(m))
}

// DeleteRule removes a saved discovery rule.
func (h *DiscoveryHandler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	chalID, err := pathInt(r, "chalID")
	if err != nil {
		h.fail(w, r, "delete_discovery", err)
		return
	}
	ruleID, err := pathInt(r, "ruleID")
	if err != nil {
		h.fail(w, r, "delete_discovery", err)
		return
	}
	err = h.server.DeleteDiscovery(r.Context(), ruleID)
	if err == nil {
		h.reloadPanels(r, chalID)
	}
	h.finish(w, r, "delete_discovery", err, 0, challengePath(chalID, "discovery"), nil)
}

// reloadPanels reloads the panels after a change so JSON callers see it.
func (h *Handler) reloadPanels(r *http.Request, chalID int) {
	if !wantsJSON(r) {
		// the redirected GET reloads every panel
		return
	}
	s, err := h.sessions.GetFor(identity.AdminIDFromContext(r.Context()), chalID)
	if err != nil {
		return
	}
	panels, err := h.server.LoadPanels(r.Context(), chalID)
	if err != nil {
		slog.Debug("Failed to reload panels", "challenge_id", chalID, "error", err)
		return
	}
	s.SetPanels(panels)
}
