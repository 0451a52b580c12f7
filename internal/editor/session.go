// Package editor holds the in-memory editing state of each console admin.
package editor

import (
	"errors"
	"sync"
	"time"

	"github.com/tamuctf/CTFd/internal/ctfd"
	"github.com/tamuctf/CTFd/internal/discovery"
	"github.com/tamuctf/CTFd/internal/domain"
)

var (
	ErrNoSession    = errors.New("no challenge is open")
	ErrUnknownDraft = errors.New("unknown draft")
	ErrStaleSession = errors.New("challenge is no longer open")
)

// DraftKind selects the tag or hint draft list.
type DraftKind string

const (
	TagDrafts  DraftKind = "tags"
	HintDrafts DraftKind = "hints"
)

// Session is one admin's open challenge editor.
type Session struct {
	mu        sync.Mutex
	adminID   string
	challenge domain.Challenge
	discovery *discovery.Manager
	tags      Drafts
	hints     Drafts
	panels    *ctfd.Panels
	lastSeen  time.Time
}

func newSession(adminID string, subject domain.Challenge, all []domain.Challenge, now time.Time) *Session {
	return &Session{
		adminID:   adminID,
		challenge: subject,
		discovery: discovery.NewManager(subject, all),
		panels:    &ctfd.Panels{},
		lastSeen:  now,
	}
}

// AdminID returns the owning admin.
func (s *Session) AdminID() string { return s.adminID }

// Challenge returns the challenge being edited.
func (s *Session) Challenge() domain.Challenge {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.challenge
}

// SetChallenge replaces the metadata after a successful update.
func (s *Session) SetChallenge(ch domain.Challenge) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch.ID == s.challenge.ID {
		s.challenge = ch
	}
}

// Discovery returns the discovery widget manager. It has its own lock.
func (s *Session) Discovery() *discovery.Manager { return s.discovery }

// Panels returns the last loaded server-side resources.
func (s *Session) Panels() ctfd.Panels {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.panels
}

// SetPanels stores freshly loaded resources.
func (s *Session) SetPanels(p *ctfd.Panels) {
	if p == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.panels = p
}

// AddDraft appends to the tag or hint drafts.
func (s *Session) AddDraft(kind DraftKind, text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drafts(kind).Add(text)
}

// RemoveDraft drops one tag or hint draft.
func (s *Session) RemoveDraft(kind DraftKind, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drafts(kind).Remove(index)
}

// Drafts returns a copy of the tag or hint drafts.
func (s *Session) Drafts(kind DraftKind) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drafts(kind).Items()
}

// ClearDrafts drops the tag or hint drafts after they were submitted.
func (s *Session) ClearDrafts(kind DraftKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts(kind).Clear()
}

func (s *Session) drafts(kind DraftKind) *Drafts {
	if kind == HintDrafts {
		return &s.hints
	}
	return &s.tags
}

// Touch records activity.
func (s *Session) Touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

// LastSeen returns the time of the last recorded activity.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}
