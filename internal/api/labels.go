package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tamuctf/CTFd/internal/ctfd"
	"github.com/tamuctf/CTFd/internal/editor"
)

// LabelHandler manages tags and hints: unsaved drafts and saved entries.
type LabelHandler struct {
	*Handler
}

// NewLabelHandler creates a new tag and hint handler.
func NewLabelHandler(base *Handler) *LabelHandler {
	return &LabelHandler{Handler: base}
}

// RegisterRoutes registers tag and hint routes.
func (h *LabelHandler) RegisterRoutes(r chi.Router) {
	r.Route("/challenges/{chalID}/{kind:(?:tags|hints)}", func(r chi.Router) {
		r.Get("/drafts", h.Drafts)
		r.Post("/drafts", h.AddDraft)
		r.Post("/drafts/{index}/delete", h.RemoveDraft)
		r.Post("/submit", h.Submit)
		r.Post("/{itemID}/delete", h.Delete)
	})
}

// draftKind parses the {kind} URL segment.
func draftKind(r *http.Request) (editor.DraftKind, error) {
	switch k := editor.DraftKind(chi.URLParam(r, "kind")); k {
	case editor.TagDrafts, editor.HintDrafts:
		return k, nil
	default:
		return "", &ctfd.OutcomeError{Op: "parse_kind", Outcome: ctfd.NotFound, Message: "unknown list " + string(k)}
	}
}

func opFor(kind editor.DraftKind, verb string) string {
	if kind == editor.HintDrafts {
		return verb + "_hints"
	}
	return verb + "_tags"
}

// sessionFor resolves the kind and the editor session or answers the request.
func (h *LabelHandler) sessionFor(w http.ResponseWriter, r *http.Request, verb string) (int, editor.DraftKind, *editor.Session, bool) {
	kind, err := draftKind(r)
	if err != nil {
		h.fail(w, r, verb, err)
		return 0, "", nil, false
	}
	chalID, err := pathInt(r, "chalID")
	if err != nil {
		h.fail(w, r, opFor(kind, verb), err)
		return 0, "", nil, false
	}
	s, err := h.session(r.Context(), chalID)
	if err != nil {
		h.fail(w, r, opFor(kind, verb), err)
		return 0, "", nil, false
	}
	return chalID, kind, s, true
}

func (h *LabelHandler) drafts(w http.ResponseWriter, r *http.Request, chalID int, kind editor.DraftKind, s *editor.Session) {
	if wantsJSON(r) {
		JSON(w, http.StatusOK, map[string]any{"drafts": s.Drafts(kind)})
		return
	}
	http.Redirect(w, r, challengePath(chalID, string(kind)), http.StatusSeeOther)
}

// Drafts lists the unsaved drafts.
func (h *LabelHandler) Drafts(w http.ResponseWriter, r *http.Request) {
	chalID, kind, s, ok := h.sessionFor(w, r, "list")
	if !ok {
		return
	}
	h.drafts(w, r, chalID, kind, s)
}

// AddDraft appends a draft. Single quotes are stripped and empty input is
// ignored.
func (h *LabelHandler) AddDraft(w http.ResponseWriter, r *http.Request) {
	chalID, kind, s, ok := h.sessionFor(w, r, "draft")
	if !ok {
		return
	}
	s.AddDraft(kind, r.FormValue("text"))
	h.drafts(w, r, chalID, kind, s)
}

// RemoveDraft drops one draft.
func (h *LabelHandler) RemoveDraft(w http.ResponseWriter, r *http.Request) {
	chalID, kind, s, ok := h.sessionFor(w, r, "draft")
	if !ok {
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err == nil {
		err = s.RemoveDraft(kind, index)
	} else {
		err = editor.ErrUnknownDraft
	}
	if err != nil {
		h.fail(w, r, opFor(kind, "draft"), err)
		return
	}
	h.drafts(w, r, chalID, kind, s)
}

// Submit saves the drafts on the server.
func (h *LabelHandler) Submit(w http.ResponseWriter, r *http.Request) {
	chalID, kind, s, ok := h.sessionFor(w, r, "update")
	if !ok {
		return
	}
	op := opFor(kind, "update")
	drafts := s.Drafts(kind)
	if len(drafts) == 0 {
		h.fail(w, r, op, &ctfd.OutcomeError{Op: op, Outcome: ctfd.ValidationFailure, Message: "nothing to save"})
		return
	}

	var err error
	if kind == editor.HintDrafts {
		err = h.server.UpdateHints(r.Context(), chalID, drafts)
	} else {
		err = h.server.UpdateTags(r.Context(), chalID, drafts)
	}
	if err == nil {
		s.ClearDrafts(kind)
		h.reloadPanels(r, chalID)
	}
	h.finish(w, r, op, err, 0, challengePath(chalID, string(kind)), nil)
}

// Delete removes a saved tag or hint.
func (h *LabelHandler) Delete(w http.ResponseWriter, r *http.Request) {
	kind, err := draftKind(r)
	if err != nil {
		h.fail(w, r, "delete", err)
		return
	}
	op := opFor(kind, "delete")
	chalID, err := pathInt(r, "chalID")
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	itemID, err := pathInt(r, "itemID")
	if err != nil {
		h.fail(w, r, op, err)
		return
	}

	if kind == editor.HintDrafts {
		err = h.server.DeleteHint(r.Context(), itemID)
	} else {
		err = h.server.DeleteTag(r.Context(), itemID)
	}
	if err == nil {
		h.reloadPanels(r, chalID)
	}
	h.finish(w, r, op, err, 0, challengePath(chalID, string(kind)), nil)
}
