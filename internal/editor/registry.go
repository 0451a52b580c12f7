package editor

import (
	"log/slog"
	"sync"
	"time"

	"github.com/tamuctf/CTFd/internal/domain"
)

// Registry tracks the open editor session of every admin.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Open starts editing subject for adminID, replacing any open session.
// all is the challenge listing the discovery candidates are built from.
func (r *Registry) Open(adminID string, subject domain.Challenge, all []domain.Challenge) *Session {
	s := newSession(adminID, subject, all, r.now())

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.sessions[adminID]; ok {
		slog.Debug("Editor session replaced", "admin_id", adminID, "challenge_id", existing.challenge.ID)
	}
	r.sessions[adminID] = s
	slog.Info("Editor session opened", "admin_id", adminID, "challenge_id", subject.ID)
	return s
}

// Get returns the open session of adminID and records activity.
func (r *Registry) Get(adminID string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[adminID]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNoSession
	}
	s.Touch(r.now())
	return s, nil
}

// GetFor returns the open session of adminID only if it edits chalID.
func (r *Registry) GetFor(adminID string, chalID int) (*Session, error) {
	s, err := r.Get(adminID)
	if err != nil {
		return nil, err
	}
	if s.Challenge().ID != chalID {
		return nil, ErrStaleSession
	}
	return s, nil
}

// Close drops the session of adminID.
func (r *Registry) Close(adminID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[adminID]; ok {
		delete(r.sessions, adminID)
		slog.Info("Editor session closed", "admin_id", adminID)
	}
}

// CloseChallenge drops every session editing chalID, e.g. after it was deleted.
func (r *Registry) CloseChallenge(chalID int) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var closed []string
	for id, s := range r.sessions {
		if s.Challenge().ID == chalID {
			delete(r.sessions, id)
			closed = append(closed, id)
		}
	}
	return closed
}

// Sweep drops sessions idle for longer than ttl and returns their admin ids.
func (r *Registry) Sweep(ttl time.Duration) []string {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()
	var expired []string
	for id, s := range r.sessions {
		if now.Sub(s.LastSeen()) > ttl {
			delete(r.sessions, id)
			expired = append(expired, id)
		}
	}
	if len(expired) > 0 {
		slog.Info("Editor sessions expired", "count", len(expired))
	}
	return expired
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
