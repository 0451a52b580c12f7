package editor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamuctf/CTFd/internal/domain"
)

var listing = []domain.Challenge{
	{ID: 1, Name: "Pwn1", Category: "pwn"},
	{ID: 5, Name: "Pwn2", Category: "pwn"},
	{ID: 7, Name: "Pwn3", Category: "pwn"},
}

func fixedClock(t *time.Time) func() time.Time {
	return func() time.Time { return *t }
}

func TestRegistryOpenReplacesSession(t *testing.T) {
	r := NewRegistry()
	first := r.Open("admin", listing[0], listing)
	second := r.Open("admin", listing[1], listing)

	got, err := r.Get("admin")
	require.NoError(t, err)
	assert.Same(t, second, got)
	assert.NotSame(t, first, got)
	assert.Equal(t, 1, r.Len())
}

func TestRegistryGetFor(t *testing.T) {
	r := NewRegistry()
	r.Open("admin", listing[0], listing)

	_, err := r.GetFor("admin", 1)
	require.NoError(t, err)

	_, err = r.GetFor("admin", 5)
	assert.ErrorIs(t, err, ErrStaleSession)

	_, err = r.GetFor("nobody", 1)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestRegistrySweep(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	r := NewRegistry()
	r.now = fixedClock(&now)

	r.Open("idle", listing[0], listing)
	now = now.Add(30 * time.Minute)
	r.Open("busy", listing[1], listing)
	now = now.Add(40 * time.Minute)

	expired := r.Sweep(time.Hour)
	assert.Equal(t, []string{"idle"}, expired)

	_, err := r.Get("busy")
	assert.NoError(t, err)
	_, err = r.Get("idle")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestRegistryCloseChallenge(t *testing.T) {
	r := NewRegistry()
	r.Open("a", listing[0], listing)
	r.Open("b", listing[0], listing)
	r.Open("c", listing[1], listing)

	closed := r.CloseChallenge(1)
	assert.ElementsMatch(t, []string{"a", "b"}, closed)
	assert.Equal(t, 1, r.Len())
}

func TestSessionDiscoveryExcludesSubject(t *testing.T) {
	r := NewRegistry()
	s := r.Open("admin", listing[0], listing)

	view := s.Discovery().Create()
	var ids []int
	for _, e := range view.Entries {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []int{5, 7}, ids)
}

func TestSessionDrafts(t *testing.T) {
	s := NewRegistry().Open("admin", listing[0], listing)

	assert.True(t, s.AddDraft(TagDrafts, "  it's web "))
	assert.False(t, s.AddDraft(TagDrafts, " ' "))
	assert.True(t, s.AddDraft(HintDrafts, "look closer"))
	assert.True(t, s.AddDraft(TagDrafts, "easy"))

	assert.Equal(t, []string{"its web", "easy"}, s.Drafts(TagDrafts))
	assert.Equal(t, []string{"look closer"}, s.Drafts(HintDrafts))

	require.NoError(t, s.RemoveDraft(TagDrafts, 0))
	assert.Equal(t, []string{"easy"}, s.Drafts(TagDrafts))
	assert.ErrorIs(t, s.RemoveDraft(TagDrafts, 3), ErrUnknownDraft)

	s.ClearDrafts(TagDrafts)
	assert.Empty(t, s.Drafts(TagDrafts))
	assert.Len(t, s.Drafts(HintDrafts), 1)
}

func TestSessionSetChallengeIgnoresOtherIDs(t *testing.T) {
	s := NewRegistry().Open("admin", listing[0], listing)

	s.SetChallenge(domain.Challenge{ID: 5, Name: "other"})
	assert.Equal(t, "Pwn1", s.Challenge().Name)

	s.SetChallenge(domain.Challenge{ID: 1, Name: "Pwn1 renamed", Category: "pwn"})
	assert.Equal(t, "Pwn1 renamed", s.Challenge().Name)
}
