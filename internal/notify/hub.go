// Package notify delivers non-blocking outcome notifications to console admins.
package notify

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/tamuctf/CTFd/internal/ctfd"
)

// Level is the severity shown by the console.
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Notification reports the outcome of one admin action.
type Notification struct {
	Level    Level     `json:"level"`
	Outcome  string    `json:"outcome"`
	Op       string    `json:"op"`
	Message  string    `json:"message"`
	Revision uint64    `json:"revision,omitempty"`
	Seq      uint64    `json:"seq"`
	Time     time.Time `json:"time"`
}

// FromResult builds the notification for an action that returned err.
// revision is the discovery revision the action was issued against.
func FromResult(op string, err error, revision uint64) Notification {
	n := Notification{
		Outcome:  ctfd.OutcomeOf(err).String(),
		Op:       op,
		Revision: revision,
		Time:     time.Now(),
	}
	switch ctfd.OutcomeOf(err) {
	case ctfd.Success:
		n.Level = LevelInfo
		n.Message = "saved"
	case ctfd.ValidationFailure, ctfd.NotFound:
		n.Level = LevelWarn
		n.Message = messageOf(err)
	default:
		n.Level = LevelError
		n.Message = messageOf(err)
	}
	return n
}

func messageOf(err error) string {
	var oe *ctfd.OutcomeError
	if errors.As(err, &oe) {
		switch {
		case oe.Message != "":
			return oe.Message
		case oe.Err != nil:
			return oe.Err.Error()
		}
		return oe.Outcome.String()
	}
	return err.Error()
}

// subscriber is one live connection of an admin.
type subscriber struct {
	ch chan Notification
}

// Hub fans notifications out to the live connections of each admin and keeps
// a backlog for connections that arrive later. Every notification of an admin
// gets the next sequence number; seen holds the highest one already shown.
type Hub struct {
	mu          sync.RWMutex
	backlogSize int
	backlogs    map[string]*Backlog
	seqs        map[string]uint64
	seen        map[string]uint64
	subscribers map[string]map[*subscriber]struct{}
}

// NewHub creates a hub keeping backlogSize notifications per admin.
func NewHub(backlogSize int) *Hub {
	return &Hub{
		backlogSize: backlogSize,
		backlogs:    make(map[string]*Backlog),
		seqs:        make(map[string]uint64),
		seen:        make(map[string]uint64),
		subscribers: make(map[string]map[*subscriber]struct{}),
	}
}

// Publish records n for adminID and delivers it to live connections.
// Slow connections drop the notification rather than block the caller.
func (h *Hub) Publish(adminID string, n Notification) {
	if n.Time.IsZero() {
		n.Time = time.Now()
	}

	h.mu.Lock()
	b, ok := h.backlogs[adminID]
	if !ok {
		b = NewBacklog(h.backlogSize)
		h.backlogs[adminID] = b
	}
	h.seqs[adminID]++
	n.Seq = h.seqs[adminID]
	b.Push(n)
	subs := make([]*subscriber, 0, len(h.subscribers[adminID]))
	for s := range h.subscribers[adminID] {
		subs = append(subs, s)
	}
	h.mu.Unlock()

	for _, s := range subs {
		select {
		case s.ch <- n:
		default:
			slog.Debug("Notification dropped for slow subscriber", "admin_id", adminID, "op", n.Op)
		}
	}
}

// Subscribe registers a live connection and returns the backlog entries after
// since to replay, the channel of new notifications and a function that
// unregisters it.
func (h *Hub) Subscribe(adminID string, since uint64) ([]Notification, <-chan Notification, func()) {
	s := &subscriber{ch: make(chan Notification, 16)}

	h.mu.Lock()
	if _, ok := h.subscribers[adminID]; !ok {
		h.subscribers[adminID] = make(map[*subscriber]struct{})
	}
	h.subscribers[adminID][s] = struct{}{}
	var replay []Notification
	if b, ok := h.backlogs[adminID]; ok {
		replay = b.Since(since)
	}
	h.mu.Unlock()

	slog.Info("Notification subscriber registered", "admin_id", adminID)
	return replay, s.ch, func() { h.unsubscribe(adminID, s) }
}

func (h *Hub) unsubscribe(adminID string, s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.subscribers[adminID]; ok {
		if _, exists := subs[s]; exists {
			delete(subs, s)
			if len(subs) == 0 {
				delete(h.subscribers, adminID)
			}
			slog.Info("Notification subscriber unregistered", "admin_id", adminID)
		}
	}
}

// Since returns the backlog of adminID after sequence number seq.
func (h *Hub) Since(adminID string, seq uint64) []Notification {
	h.mu.RLock()
	b, ok := h.backlogs[adminID]
	h.mu.RUnlock()
	if !ok {
		return nil
	}
	return b.Since(seq)
}

// Unseen returns the notifications not yet shown to adminID and marks them
// seen. The returned cursor is the sequence number to resume from.
func (h *Hub) Unseen(adminID string) ([]Notification, uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	cursor := h.seqs[adminID]
	b, ok := h.backlogs[adminID]
	if !ok {
		return nil, cursor
	}
	unseen := b.Since(h.seen[adminID])
	h.seen[adminID] = cursor
	return unseen, cursor
}

// MarkSeen records that the notifications up to seq were shown to adminID.
func (h *Hub) MarkSeen(adminID string, seq uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if seq > h.seen[adminID] {
		h.seen[adminID] = seq
	}
}

// Forget drops the backlog of an admin whose identity expired.
func (h *Hub) Forget(adminID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.backlogs, adminID)
	delete(h.seqs, adminID)
	delete(h.seen, adminID)
}
