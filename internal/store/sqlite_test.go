package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tamuctf/CTFd/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestChallengeCacheRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, fetchedAt, err := s.ListChallenges(ctx)
	if err != nil {
		t.Fatalf("ListChallenges failed: %v", err)
	}
	if !fetchedAt.IsZero() {
		t.Fatalf("expected empty cache, fetched at %v", fetchedAt)
	}

	now := time.Now()
	listing := []domain.Challenge{
		{ID: 9, Name: "Zeta", Category: "misc", Value: 50},
		{ID: 2, Name: "Alpha", Category: "web", Value: 100, Hidden: true, Hint: "look closer"},
	}
	if err := s.ReplaceChallenges(ctx, listing, now); err != nil {
		t.Fatalf("ReplaceChallenges failed: %v", err)
	}

	got, fetchedAt, err := s.ListChallenges(ctx)
	if err != nil {
		t.Fatalf("ListChallenges failed: %v", err)
	}
	if !fetchedAt.Equal(time.Unix(0, now.UnixNano())) {
		t.Errorf("unexpected fetch time %v", fetchedAt)
	}
	if len(got) != 2 || got[0].ID != 9 || got[1].ID != 2 {
		t.Fatalf("expected server order to be kept, got %+v", got)
	}
	if !got[1].Hidden || got[1].Hint != "look closer" {
		t.Errorf("expected hidden challenge with hint, got %+v", got[1])
	}

	if err := s.ReplaceChallenges(ctx, listing[:1], now); err != nil {
		t.Fatalf("ReplaceChallenges failed: %v", err)
	}
	c, err := s.GetChallenge(ctx, 2)
	if err != nil {
		t.Fatalf("GetChallenge failed: %v", err)
	}
	if c != nil {
		t.Errorf("expected replaced listing to drop challenge 2, got %+v", c)
	}
}

func TestUpsertAndDeleteChallenge(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.ReplaceChallenges(ctx, []domain.Challenge{{ID: 1, Name: "A", Category: "x"}}, time.Now()); err != nil {
		t.Fatalf("ReplaceChallenges failed: %v", err)
	}
	if err := s.UpsertChallenge(ctx, domain.Challenge{ID: 1, Name: "A2", Category: "x", Value: 300}); err != nil {
		t.Fatalf("UpsertChallenge failed: %v", err)
	}
	if err := s.UpsertChallenge(ctx, domain.Challenge{ID: 4, Name: "B", Category: "y"}); err != nil {
		t.Fatalf("UpsertChallenge failed: %v", err)
	}

	got, _, err := s.ListChallenges(ctx)
	if err != nil {
		t.Fatalf("ListChallenges failed: %v", err)
	}
	if len(got) != 2 || got[0].Name != "A2" || got[0].Value != 300 || got[1].ID != 4 {
		t.Fatalf("unexpected listing %+v", got)
	}

	if err := s.DeleteChallenge(ctx, 4); err != nil {
		t.Fatalf("DeleteChallenge failed: %v", err)
	}
	if err := s.DeleteChallenge(ctx, 4); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAdminLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	old := time.Now().Add(-2 * time.Hour)
	admin := &domain.Admin{
		AdminID:    "a1",
		Username:   "admin-a1",
		Nonce:      "n1",
		LastSeenAt: old,
		CreatedAt:  old,
		UpdatedAt:  old,
	}
	if err := s.UpsertAdmin(ctx, admin); err != nil {
		t.Fatalf("UpsertAdmin failed: %v", err)
	}

	got, err := s.GetAdmin(ctx, "a1")
	if err != nil || got == nil {
		t.Fatalf("GetAdmin failed: %v", err)
	}
	if got.Nonce != "n1" {
		t.Errorf("expected nonce n1, got %s", got.Nonce)
	}

	idle, err := s.GetIdleAdmins(ctx, time.Hour)
	if err != nil {
		t.Fatalf("GetIdleAdmins failed: %v", err)
	}
	if len(idle) != 1 {
		t.Fatalf("expected 1 idle admin, got %d", len(idle))
	}

	if err := s.UpdateLastSeen(ctx, "a1", time.Now()); err != nil {
		t.Fatalf("UpdateLastSeen failed: %v", err)
	}
	idle, err = s.GetIdleAdmins(ctx, time.Hour)
	if err != nil {
		t.Fatalf("GetIdleAdmins failed: %v", err)
	}
	if len(idle) != 0 {
		t.Errorf("expected no idle admins after activity, got %d", len(idle))
	}

	if err := s.DeleteAdmin(ctx, "a1"); err != nil {
		t.Fatalf("DeleteAdmin failed: %v", err)
	}
	if got, _ := s.GetAdmin(ctx, "a1"); got != nil {
		t.Errorf("expected admin to be deleted, got %+v", got)
	}
}
