package api

import (
	"html/template"
	"net/http"

	"github.com/tamuctf/CTFd/internal/discovery"
	"github.com/tamuctf/CTFd/internal/domain"
	"github.com/tamuctf/CTFd/internal/editor"
	"github.com/tamuctf/CTFd/internal/identity"
	"github.com/tamuctf/CTFd/internal/notify"
)

// Page carries what the layout needs on every page.
type Page struct {
	Title         string
	Nonce         string
	Username      string
	Notifications []notify.Notification
	NotifyCursor  uint64
}

// basePage renders only the notifications this admin has not seen yet.
func (h *Handler) basePage(r *http.Request, title string) Page {
	ctx := r.Context()
	unseen, cursor := h.hub.Unseen(identity.AdminIDFromContext(ctx))
	return Page{
		Title:         title,
		Nonce:         identity.NonceFromContext(ctx),
		Username:      identity.UsernameFromContext(ctx),
		Notifications: unseen,
		NotifyCursor:  cursor,
	}
}

// BoardPage lists challenges grouped by category.
type BoardPage struct {
	Page
	Groups []domain.CategoryGroup
}

// ErrorPage explains why a page could not be shown.
type ErrorPage struct {
	Page
	Status  int
	Message string
}

// FileLink is a downloadable attachment.
type FileLink struct {
	ID   int
	Name string
	URL  string
}

// LabelItem is a saved tag or hint.
type LabelItem struct {
	ID   int
	Text string
}

// LabelPanel renders saved tags or hints next to their unsaved drafts.
type LabelPanel struct {
	Title  string
	Kind   editor.DraftKind
	ChalID int
	Nonce  string
	Saved  []LabelItem
	Drafts []string
}

// EditorPage is the challenge editor.
type EditorPage struct {
	Page
	Challenge   domain.Challenge
	Description template.HTML
	Keys        []domain.Key
	KeyTypes    []domain.KeyType
	Files       []FileLink
	Rules       []domain.DiscoveryEntry
	Discovery   discovery.Snapshot
	TagPanel    LabelPanel
	HintPanel   LabelPanel
}

func tagItems(tags []domain.Tag) []LabelItem {
	items := make([]LabelItem, 0, len(tags))
	for _, t := range tags {
		items = append(items, LabelItem{ID: t.ID, Text: t.Tag})
	}
	return items
}

func hintItems(hints []domain.Hint) []LabelItem {
	items := make([]LabelItem, 0, len(hints))
	for _, hint := range hints {
		items = append(items, LabelItem{ID: hint.ID, Text: hint.Hint})
	}
	return items
}
