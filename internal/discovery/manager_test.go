package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamuctf/CTFd/internal/domain"
)

func pwnChallenges() []domain.Challenge {
	return []domain.Challenge{
		{ID: 3, Name: "Pwn1", Category: "pwn"},
		{ID: 5, Name: "Pwn2", Category: "pwn"},
		{ID: 7, Name: "Pwn3", Category: "pwn"},
	}
}

func TestToggleScenario(t *testing.T) {
	all := pwnChallenges()
	m := NewManager(all[0], all)

	w := m.Create()
	require.Equal(t, 0, w.Ordinal)
	assert.Equal(t, "0 Challenges", w.ButtonText)

	_, err := m.Toggle(0, 5)
	require.NoError(t, err)
	w, err = m.Toggle(0, 7)
	require.NoError(t, err)
	assert.Equal(t, "5&7", w.Encoded)
	assert.Equal(t, 2, w.Quantity)
	assert.Equal(t, "s", w.Plural)
	assert.Equal(t, []Label{{Ordinal: 0, Text: "5&7"}}, m.Labels())

	w, err = m.Toggle(0, 5)
	require.NoError(t, err)
	assert.Equal(t, "7", w.Encoded)
	assert.Equal(t, 1, w.Quantity)
	assert.Equal(t, "", w.Plural)
	assert.Equal(t, "1 Challenge", w.ButtonText)
	assert.Equal(t, []Label{{Ordinal: 0, Text: "7"}}, m.Labels())
}

func TestSubjectIsNeverACandidate(t *testing.T) {
	all := pwnChallenges()
	for _, subject := range all {
		m := NewManager(subject, all)
		w := m.Create()
		for _, e := range w.Entries {
			assert.NotEqual(t, subject.ID, e.ID)
			assert.NotEqual(t, subject.Name, e.Name)
		}
		assert.Len(t, w.Entries, len(all)-1)
	}
}

func TestCandidatesExcludeSameName(t *testing.T) {
	subject := domain.Challenge{ID: 1, Name: "Web"}
	all := []domain.Challenge{subject, {ID: 2, Name: "Web"}, {ID: 4, Name: "Crypto"}}

	got := Candidates(subject, all)
	assert.Equal(t, []Candidate{{ID: 4, Name: "Crypto"}}, got)
	assert.Equal(t, "ID: 4| name: Crypto", got[0].Text())
}

func TestPlaceholderWidget(t *testing.T) {
	only := domain.Challenge{ID: 1, Name: "Solo"}
	m := NewManager(only, []domain.Challenge{only})

	w := m.Create()
	assert.True(t, w.Placeholder)
	assert.Empty(t, w.Entries)

	_, err := m.Toggle(w.Ordinal, 1)
	assert.ErrorIs(t, err, ErrNoCandidates)
	assert.Empty(t, m.Labels())
}

func TestDoubleToggleRestoresSelection(t *testing.T) {
	all := pwnChallenges()
	m := NewManager(all[0], all)
	m.Create()
	_, err := m.Toggle(0, 7)
	require.NoError(t, err)

	before, err := m.Widget(0)
	require.NoError(t, err)
	for _, id := range []int{5, 7} {
		_, err = m.Toggle(0, id)
		require.NoError(t, err)
		after, err := m.Toggle(0, id)
		require.NoError(t, err)
		assert.Equal(t, before.Encoded, after.Encoded)
		assert.Equal(t, before.Quantity, after.Quantity)
	}
}

func TestBadgeMatchesActiveCount(t *testing.T) {
	all := []domain.Challenge{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}, {ID: 3, Name: "c"}, {ID: 4, Name: "d"}}
	m := NewManager(all[0], all)
	m.Create()

	tests := []struct {
		toggle int
		count  int
	}{
		{2, 1}, {3, 2}, {4, 3}, {3, 2}, {2, 1}, {4, 0},
	}
	for _, tt := range tests {
		w, err := m.Toggle(0, tt.toggle)
		require.NoError(t, err)
		active := 0
		for _, e := range w.Entries {
			if e.Active {
				active++
			}
		}
		assert.Equal(t, tt.count, w.Quantity)
		assert.Equal(t, active, w.Quantity)
		assert.Equal(t, tt.count == 1, w.Plural == "")
	}
}

func TestEmptySelectionClearsLabel(t *testing.T) {
	all := pwnChallenges()
	m := NewManager(all[0], all)
	m.Create()

	_, err := m.Toggle(0, 5)
	require.NoError(t, err)
	_, err = m.Toggle(0, 5)
	require.NoError(t, err)

	assert.Empty(t, m.Labels())
	assert.Empty(t, m.Encoded())
}

func TestRemoveDropsOnlyOwnLabels(t *testing.T) {
	all := pwnChallenges()
	m := NewManager(all[0], all)
	for i := 0; i < 3; i++ {
		w := m.Create()
		_, err := m.Toggle(w.Ordinal, 5)
		require.NoError(t, err)
	}
	_, err := m.Toggle(2, 7)
	require.NoError(t, err)

	require.NoError(t, m.Remove(1))
	assert.Equal(t, []Label{{Ordinal: 0, Text: "5"}, {Ordinal: 2, Text: "5&7"}}, m.Labels())

	_, err = m.Toggle(1, 5)
	assert.ErrorIs(t, err, ErrUnknownWidget)
	assert.ErrorIs(t, m.Remove(1), ErrUnknownWidget)

	snap := m.Snapshot()
	require.Len(t, snap.Widgets, 2)
	assert.Equal(t, 0, snap.Widgets[0].Ordinal)
	assert.Equal(t, 2, snap.Widgets[1].Ordinal)
}

func TestOrdinalsAreMonotonic(t *testing.T) {
	all := pwnChallenges()
	m := NewManager(all[0], all)
	a := m.Create()
	require.NoError(t, m.Remove(a.Ordinal))
	b := m.Create()
	require.True(t, m.ResetIf(m.Revision()))
	c := m.Create()

	assert.Equal(t, []int{0, 1, 2}, []int{a.Ordinal, b.Ordinal, c.Ordinal})
}

func TestUnknownCandidate(t *testing.T) {
	all := pwnChallenges()
	m := NewManager(all[0], all)
	m.Create()

	_, err := m.Toggle(0, 3)
	assert.ErrorIs(t, err, ErrUnknownCandidate)
	_, err = m.Toggle(0, 99)
	assert.ErrorIs(t, err, ErrUnknownCandidate)
}

func TestRevisionAdvancesOnMutation(t *testing.T) {
	all := pwnChallenges()
	m := NewManager(all[0], all)
	r0 := m.Revision()
	m.Create()
	r1 := m.Revision()
	_, err := m.Toggle(0, 5)
	require.NoError(t, err)
	r2 := m.Revision()

	assert.Less(t, r0, r1)
	assert.Less(t, r1, r2)

	_, err = m.Toggle(0, 99)
	require.Error(t, err)
	assert.Equal(t, r2, m.Revision())
}

func TestLabelsKeepFirstRenderOrder(t *testing.T) {
	all := pwnChallenges()
	m := NewManager(all[0], all)
	m.Create()
	m.Create()

	_, err := m.Toggle(1, 7)
	require.NoError(t, err)
	_, err = m.Toggle(0, 5)
	require.NoError(t, err)
	_, err = m.Toggle(1, 5)
	require.NoError(t, err)

	assert.Equal(t, []string{"5&7", "5"}, m.Encoded())
}

func TestResetIfOnlyAtRevision(t *testing.T) {
	all := pwnChallenges()
	m := NewManager(all[0], all)
	m.Create()
	_, err := m.Toggle(0, 5)
	require.NoError(t, err)
	submitted := m.Revision()

	_, err = m.Toggle(0, 7)
	require.NoError(t, err)
	assert.False(t, m.ResetIf(submitted))
	assert.Equal(t, []string{"5&7"}, m.Encoded())

	assert.True(t, m.ResetIf(m.Revision()))
	assert.Empty(t, m.Snapshot().Widgets)
	assert.Empty(t, m.Labels())
}
