package editor

import (
	"fmt"
	"strings"
)

// Drafts is an ordered list of unsaved tag or hint texts.
type Drafts struct {
	items []string
}

// Sanitize strips single quotes and surrounding whitespace from a draft.
func Sanitize(text string) string {
	return strings.TrimSpace(strings.ReplaceAll(text, "'", ""))
}

// Add appends a sanitized draft. Empty input is ignored and reported as false.
func (d *Drafts) Add(text string) bool {
	text = Sanitize(text)
	if text == "" {
		return false
	}
	d.items = append(d.items, text)
	return true
}

// Remove drops the draft at index.
func (d *Drafts) Remove(index int) error {
	if index < 0 || index >= len(d.items) {
		return fmt.Errorf("%w: %d", ErrUnknownDraft, index)
	}
	d.items = append(d.items[:index], d.items[index+1:]...)
	return nil
}

// Items returns a copy of the drafts in insertion order.
func (d *Drafts) Items() []string {
	out := make([]string, len(d.items))
	copy(out, d.items)
	return out
}

// Len returns the number of drafts.
func (d *Drafts) Len() int { return len(d.items) }

// Clear drops every draft.
func (d *Drafts) Clear() { d.items = nil }
