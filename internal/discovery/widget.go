package discovery

import (
	"fmt"
	"strconv"

	"github.com/tamuctf/CTFd/internal/domain"
)

// PlaceholderText is shown when there is nothing to select.
const PlaceholderText = "No other Problems"

// Candidate is a challenge that may be selected as a prerequisite.
type Candidate struct {
	ID   int
	Name string
}

// Text is the entry caption shown in the dropdown.
func (c Candidate) Text() string {
	return fmt.Sprintf("ID: %d| name: %s", c.ID, c.Name)
}

// Candidates lists every challenge except the subject, in listing order.
// A challenge sharing the subject's id or name is excluded.
func Candidates(subject domain.Challenge, all []domain.Challenge) []Candidate {
	out := make([]Candidate, 0, len(all))
	for _, c := range all {
		if c.ID == subject.ID || c.Name == subject.Name {
			continue
		}
		out = append(out, Candidate{ID: c.ID, Name: c.Name})
	}
	return out
}

// Widget is one prerequisite dropdown. Its active set is the source of truth
// for the rendered badge, entries and label.
type Widget struct {
	ordinal    int
	candidates []Candidate
	active     map[int]bool
}

func newWidget(ordinal int, candidates []Candidate) *Widget {
	return &Widget{
		ordinal:    ordinal,
		candidates: candidates,
		active:     make(map[int]bool),
	}
}

// Placeholder reports whether the widget has nothing to offer.
func (w *Widget) Placeholder() bool { return len(w.candidates) == 0 }

// Count returns the number of active entries.
func (w *Widget) Count() int { return len(w.active) }

// Selection returns the active ids in candidate order.
func (w *Widget) Selection() []int {
	ids := make([]int, 0, len(w.active))
	for _, c := range w.candidates {
		if w.active[c.ID] {
			ids = append(ids, c.ID)
		}
	}
	return ids
}

// Encoded returns the selection joined with Separator.
func (w *Widget) Encoded() string {
	return Encode(w.Selection())
}

func (w *Widget) toggle(id int) error {
	if w.Placeholder() {
		return ErrNoCandidates
	}
	if !w.hasCandidate(id) {
		return fmt.Errorf("%w: %d", ErrUnknownCandidate, id)
	}
	if w.active[id] {
		delete(w.active, id)
	} else {
		w.active[id] = true
	}
	return nil
}

func (w *Widget) hasCandidate(id int) bool {
	for _, c := range w.candidates {
		if c.ID == id {
			return true
		}
	}
	return false
}

// PluralSuffix is "" when exactly one entry is active and "s" otherwise.
func PluralSuffix(count int) string {
	if count == 1 {
		return ""
	}
	return "s"
}

// ButtonText renders the dropdown caption, e.g. "2 Challenges".
func ButtonText(count int) string {
	return strconv.Itoa(count) + " Challenge" + PluralSuffix(count)
}

// EntryView is the rendered state of one dropdown entry.
type EntryView struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Text   string `json:"text"`
	Active bool   `json:"active"`
}

// WidgetView is a read-only projection of a widget.
type WidgetView struct {
	Ordinal     int         `json:"ordinal"`
	Quantity    int         `json:"quantity"`
	Plural      string      `json:"plural"`
	ButtonText  string      `json:"button_text"`
	Encoded     string      `json:"encoded"`
	Placeholder bool        `json:"placeholder"`
	Entries     []EntryView `json:"entries"`
}

// View projects the widget for rendering.
func (w *Widget) View() WidgetView {
	v := WidgetView{
		Ordinal:     w.ordinal,
		Quantity:    w.Count(),
		Plural:      PluralSuffix(w.Count()),
		ButtonText:  ButtonText(w.Count()),
		Encoded:     w.Encoded(),
		Placeholder: w.Placeholder(),
		Entries:     make([]EntryView, 0, len(w.candidates)),
	}
	for _, c := range w.candidates {
		v.Entries = append(v.Entries, EntryView{
			ID:     c.ID,
			Name:   c.Name,
			Text:   c.Text(),
			Active: w.active[c.ID],
		})
	}
	return v
}
