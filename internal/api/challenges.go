package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/tamuctf/CTFd/internal/ctfd"
	"github.com/tamuctf/CTFd/internal/domain"
	"github.com/tamuctf/CTFd/internal/editor"
	"github.com/tamuctf/CTFd/internal/identity"
)

// ChallengeHandler serves the challenge board and editor.
type ChallengeHandler struct {
	*Handler
}

// NewChallengeHandler creates a new challenge handler.
func NewChallengeHandler(base *Handler) *ChallengeHandler {
	return &ChallengeHandler{Handler: base}
}

// RegisterRoutes registers board and editor routes.
func (h *ChallengeHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Board)
	r.Get("/challenges", h.List)
	r.Post("/challenges/refresh", h.Refresh)
	r.Post("/preview", h.Preview)
	r.Route("/challenges/{chalID}", func(r chi.Router) {
		r.Get("/", h.Editor)
		r.Post("/", h.Update)
		r.Post("/delete", h.Delete)
		r.Post("/test", h.TestKey)
	})
}

// Board renders challenges grouped by category.
func (h *ChallengeHandler) Board(w http.ResponseWriter, r *http.Request) {
	groups, err := h.catalog.Groups(r.Context())
	if err != nil {
		h.fail(w, r, "list_challenges", err)
		return
	}
	h.render(w, r, http.StatusOK, "board", BoardPage{
		Page:   h.basePage(r, "Challenges"),
		Groups: groups,
	})
}

// List returns the cached challenge listing as JSON.
func (h *ChallengeHandler) List(w http.ResponseWriter, r *http.Request) {
	challenges, err := h.catalog.List(r.Context())
	if err != nil {
		Error(w, statusFor(err), err.Error())
		return
	}
	JSON(w, http.StatusOK, map[string]any{"game": challenges})
}

// Refresh reloads the challenge listing from the server.
func (h *ChallengeHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	challenges, err := h.catalog.Refresh(r.Context())
	redirect := r.Referer()
	if redirect == "" {
		redirect = "/"
	}
	h.finish(w, r, "refresh_challenges", err, 0, redirect, map[string]any{"game": challenges})
}

// Editor opens a challenge: its metadata plus every resource panel.
func (h *ChallengeHandler) Editor(w http.ResponseWriter, r *http.Request) {
	chalID, err := pathInt(r, "chalID")
	if err != nil {
		h.fail(w, r, "open_challenge", err)
		return
	}

	ctx := r.Context()
	adminID := identity.AdminIDFromContext(ctx)
	s, err := h.sessions.GetFor(adminID, chalID)
	if err != nil || r.URL.Query().Get("reset") != "" {
		s, err = h.openSession(ctx, adminID, chalID)
	}
	if err != nil {
		h.fail(w, r, "open_challenge", err)
		return
	}

	var (
		panels   *ctfd.Panels
		keyTypes []domain.KeyType
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		panels, err = h.server.LoadPanels(gctx, chalID)
		return err
	})
	g.Go(func() (err error) {
		keyTypes, err = h.server.KeyTypes(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		// keep the last loaded panels and tell the admin
		h.report(ctx, "load_challenge", err, 0)
	} else {
		s.SetPanels(panels)
	}

	if wantsJSON(r) {
		JSON(w, http.StatusOK, map[string]any{
			"challenge": s.Challenge(),
			"panels":    s.Panels(),
			"discovery": s.Discovery().Snapshot(),
			"key_types": keyTypes,
		})
		return
	}
	h.render(w, r, http.StatusOK, "editor", h.editorPage(r, s, keyTypes))
}

func (h *ChallengeHandler) editorPage(r *http.Request, s *editor.Session, keyTypes []domain.KeyType) EditorPage {
	ch := s.Challenge()
	panels := s.Panels()
	base := h.basePage(r, ch.Name)

	description, err := RenderMarkdown(ch.Description)
	if err != nil {
		slog.Warn("Failed to render description", "challenge_id", ch.ID, "error", err)
	}

	files := make([]FileLink, 0, len(panels.Files))
	for _, f := range panels.Files {
		files = append(files, FileLink{ID: f.ID, Name: f.Name(), URL: h.server.FileURL(f)})
	}

	return EditorPage{
		Page:        base,
		Challenge:   ch,
		Description: description,
		Keys:        panels.Keys,
		KeyTypes:    keyTypes,
		Files:       files,
		Rules:       panels.Discovery,
		Discovery:   s.Discovery().Snapshot(),
		TagPanel: LabelPanel{
			Title: "Tags", Kind: editor.TagDrafts, ChalID: ch.ID, Nonce: base.Nonce,
			Saved: tagItems(panels.Tags), Drafts: s.Drafts(editor.TagDrafts),
		},
		HintPanel: LabelPanel{
			Title: "Hints", Kind: editor.HintDrafts, ChalID: ch.ID, Nonce: base.Nonce,
			Saved: hintItems(panels.Hints), Drafts: s.Drafts(editor.HintDrafts),
		},
	}
}

// challengeFromForm reads the metadata form of the editor.
func challengeFromForm(r *http.Request, chalID int) (domain.Challenge, error) {
	ch := domain.Challenge{
		ID:          chalID,
		Name:        strings.TrimSpace(r.FormValue("name")),
		Category:    strings.TrimSpace(r.FormValue("category")),
		Description: r.FormValue("description"),
		Hint:        r.FormValue("hint"),
		Hidden:      r.FormValue("hidden") == "on",
	}
	if raw := strings.TrimSpace(r.FormValue("value")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return ch, &ctfd.OutcomeError{Op: "update_challenge", Outcome: ctfd.ValidationFailure, Message: "value must be a number", Err: err}
		}
		ch.Value = v
	}
	return ch, nil
}

// Update saves challenge metadata.
func (h *ChallengeHandler) Update(w http.ResponseWriter, r *http.Request) {
	chalID, err := pathInt(r, "chalID")
	if err != nil {
		h.fail(w, r, "update_challenge", err)
		return
	}
	ch, err := challengeFromForm(r, chalID)
	if err == nil {
		err = h.server.UpdateChallenge(r.Context(), ch)
	}
	if err == nil {
		if cacheErr := h.catalog.Apply(r.Context(), ch); cacheErr != nil {
			slog.Warn("Failed to update challenge cache", "challenge_id", chalID, "error", cacheErr)
		}
		if s, sErr := h.sessions.GetFor(identity.AdminIDFromContext(r.Context()), chalID); sErr == nil {
			s.SetChallenge(ch)
		}
	}
	h.finish(w, r, "update_challenge", err, 0, challengePath(chalID, "metadata"), ch)
}

// Delete removes a challenge.
func (h *ChallengeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	chalID, err := pathInt(r, "chalID")
	if err != nil {
		h.fail(w, r, "delete_challenge", err)
		return
	}
	err = h.server.DeleteChallenge(r.Context(), chalID)
	if err == nil || ctfd.OutcomeOf(err) == ctfd.NotFound {
		if cacheErr := h.catalog.Forget(r.Context(), chalID); cacheErr != nil {
			slog.Warn("Failed to drop challenge from cache", "challenge_id", chalID, "error", cacheErr)
		}
		h.sessions.CloseChallenge(chalID)
	}
	if err == nil {
		slog.Info("Challenge deleted", "challenge_id", chalID,
			"admin_id", identity.AdminIDFromContext(r.Context()), "ip", identity.IPFromRequest(r))
		h.finish(w, r, "delete_challenge", nil, 0, "/", nil)
		return
	}
	h.finish(w, r, "delete_challenge", err, 0, challengePath(chalID, ""), nil)
}

// TestKey submits a flag to check the challenge's keys.
func (h *ChallengeHandler) TestKey(w http.ResponseWriter, r *http.Request) {
	chalID, err := pathInt(r, "chalID")
	if err != nil {
		h.fail(w, r, "submit_key", err)
		return
	}
	result, err := h.server.SubmitKey(r.Context(), chalID, r.FormValue("key"))
	if err == nil && !result.Correct() {
		msg := result.Message
		if msg == "" {
			msg = "incorrect"
		}
		err = &ctfd.OutcomeError{Op: "submit_key", Outcome: ctfd.ValidationFailure, Message: msg}
	}
	h.finish(w, r, "submit_key", err, 0, challengePath(chalID, "keys"), result)
}
