package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tamuctf/CTFd/internal/ctfd"
)

// KeyHandler manages the flag keys of a challenge.
type KeyHandler struct {
	*Handler
}

// NewKeyHandler creates a new key handler.
func NewKeyHandler(base *Handler) *KeyHandler {
	return &KeyHandler{Handler: base}
}

// RegisterRoutes registers key routes.
func (h *KeyHandler) RegisterRoutes(r chi.Router) {
	r.Get("/key_types", h.Types)
	r.Route("/challenges/{chalID}/keys", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Post("/replace", h.Replace)
		r.Get("/{keyID}", h.Get)
		r.Post("/{keyID}", h.Update)
		r.Post("/{keyID}/delete", h.Delete)
	})
}

// Types returns the server's key type registry.
func (h *KeyHandler) Types(w http.ResponseWriter, r *http.Request) {
	types, err := h.server.KeyTypes(r.Context())
	if err != nil {
		h.report(r.Context(), "key_types", err, 0)
		Error(w, statusFor(err), err.Error())
		return
	}
	JSON(w, http.StatusOK, types)
}

// Get returns one key of the challenge for the edit form.
func (h *KeyHandler) Get(w http.ResponseWriter, r *http.Request) {
	chalID, err := pathInt(r, "chalID")
	if err != nil {
		h.fail(w, r, "get_key", err)
		return
	}
	keyID, err := pathInt(r, "keyID")
	if err != nil {
		h.fail(w, r, "get_key", err)
		return
	}
	key, err := h.server.Key(r.Context(), keyID)
	if err == nil && key.Chal != 0 && key.Chal != chalID {
		err = &ctfd.OutcomeError{Op: "get_key", Outcome: ctfd.NotFound, Status: http.StatusNotFound, Message: "key belongs to another challenge"}
	}
	if err != nil {
		h.report(r.Context(), "get_key", err, 0)
		Error(w, statusFor(err), err.Error())
		return
	}
	JSON(w, http.StatusOK, key)
}

// Create adds a key.
func (h *KeyHandler) Create(w http.ResponseWriter, r *http.Request) {
	chalID, err := pathInt(r, "chalID")
	if err != nil {
		h.fail(w, r, "create_key", err)
		return
	}
	err = h.server.CreateKey(r.Context(), chalID, strings.TrimSpace(r.FormValue("key")), r.FormValue("key_type"))
	if err == nil {
		h.reloadPanels(r, chalID)
	}
	h.finish(w, r, "create_key", err, 0, challengePath(chalID, "keys"), nil)
}

// Update edits a key.
func (h *KeyHandler) Update(w http.ResponseWriter, r *http.Request) {
	chalID, err := pathInt(r, "chalID")
	if err != nil {
		h.fail(w, r, "update_key", err)
		return
	}
	keyID, err := pathInt(r, "keyID")
	if err != nil {
		h.fail(w, r, "update_key", err)
		return
	}
	err = h.server.UpdateKey(r.Context(), keyID, chalID, strings.TrimSpace(r.FormValue("key")), r.FormValue("key_type"))
	if err == nil {
		h.reloadPanels(r, chalID)
	}
	h.finish(w, r, "update_key", err, 0, challengePath(chalID, "keys"), nil)
}

// Replace overwrites every key of the challenge with keys[] / vals[].
func (h *KeyHandler) Replace(w http.ResponseWriter, r *http.Request) {
	chalID, err := pathInt(r, "chalID")
	if err != nil {
		h.fail(w, r, "replace_keys", err)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.fail(w, r, "replace_keys", err)
		return
	}
	flags, types := keyPairs(r.PostForm["keys[]"], r.PostForm["vals[]"])
	err = h.server.ReplaceKeys(r.Context(), chalID, flags, types)
	if err == nil {
		h.reloadPanels(r, chalID)
	}
	h.finish(w, r, "replace_keys", err, 0, challengePath(chalID, "keys"), nil)
}

// keyPairs drops the rows of the bulk form whose flag is blank. Mismatched
// lists are passed through for the client to reject.
func keyPairs(flags, types []string) ([]string, []string) {
	if len(flags) != len(types) {
		return flags, types
	}
	keptFlags := make([]string, 0, len(flags))
	keptTypes := make([]string, 0, len(types))
	for i, f := range flags {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		keptFlags = append(keptFlags, f)
		keptTypes = append(keptTypes, types[i])
	}
	return keptFlags, keptTypes
}

// Delete removes a key.
func (h *KeyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	chalID, err := pathInt(r, "chalID")
	if err != nil {
		h.fail(w, r, "delete_key", err)
		return
	}
	keyID, err := pathInt(r, "keyID")
	if err != nil {
		h.fail(w, r, "delete_key", err)
		return
	}
	err = h.server.DeleteKey(r.Context(), keyID)
	if err == nil {
		h.reloadPanels(r, chalID)
	}
	h.finish(w, r, "delete_key", err, 0, challengePath(chalID, "keys"), nil)
}
