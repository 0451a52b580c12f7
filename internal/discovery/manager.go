package discovery

import (
	"errors"
	"fmt"
	"sync"

	"github.com/tamuctf/CTFd/internal/domain"
)

var (
	// ErrUnknownWidget is returned for an ordinal the manager never issued or
	// has already removed.
	ErrUnknownWidget = errors.New("discovery: unknown widget")
	// ErrUnknownCandidate is returned when toggling an id that is not offered.
	ErrUnknownCandidate = errors.New("discovery: unknown candidate")
	// ErrNoCandidates is returned when toggling a placeholder-only widget.
	ErrNoCandidates = errors.New("discovery: no other challenges to select")
)

// Label is the encoded selection of one widget, tagged with its ordinal.
type Label struct {
	Ordinal int    `json:"ordinal"`
	Text    string `json:"text"`
}

// Snapshot is a consistent copy of the manager state.
type Snapshot struct {
	Subject  domain.Challenge `json:"subject"`
	Widgets  []WidgetView     `json:"widgets"`
	Labels   []Label          `json:"labels"`
	Revision uint64           `json:"revision"`
}

// Manager owns the widgets for one subject challenge. It is safe for
// concurrent use.
type Manager struct {
	mu         sync.Mutex
	subject    domain.Challenge
	candidates []Candidate
	next       int
	widgets    map[int]*Widget
	order      []int
	labels     []Label
	revision   uint64
}

// NewManager builds a manager for subject; all is the full challenge listing.
func NewManager(subject domain.Challenge, all []domain.Challenge) *Manager {
	return &Manager{
		subject:    subject,
		candidates: Candidates(subject, all),
		widgets:    make(map[int]*Widget),
	}
}

// Subject returns the challenge being edited.
func (m *Manager) Subject() domain.Challenge {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.subject
}

// Create allocates a widget with the next ordinal.
func (m *Manager) Create() WidgetView {
	m.mu.Lock()
	defer m.mu.Unlock()

	w := newWidget(m.next, m.candidates)
	m.next++
	m.widgets[w.ordinal] = w
	m.order = append(m.order, w.ordinal)
	m.revision++
	return w.View()
}

// Toggle flips one entry of a widget and reconciles its label.
func (m *Manager) Toggle(ordinal, candidateID int) (WidgetView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.widgets[ordinal]
	if !ok {
		return WidgetView{}, fmt.Errorf("%w: %d", ErrUnknownWidget, ordinal)
	}
	if err := w.toggle(candidateID); err != nil {
		return WidgetView{}, err
	}
	m.sync(w)
	m.revision++
	return w.View(), nil
}

// sync writes the widget's encoded selection into its label. The first
// non-empty selection appends a label, later ones overwrite it in place and
// an empty selection clears it.
func (m *Manager) sync(w *Widget) {
	text := w.Encoded()
	i := m.labelIndex(w.ordinal)
	switch {
	case text == "" && i >= 0:
		m.labels = append(m.labels[:i], m.labels[i+1:]...)
	case text == "":
	case i >= 0:
		m.labels[i].Text = text
	default:
		m.labels = append(m.labels, Label{Ordinal: w.ordinal, Text: text})
	}
}

func (m *Manager) labelIndex(ordinal int) int {
	for i, l := range m.labels {
		if l.Ordinal == ordinal {
			return i
		}
	}
	return -1
}

// Remove deletes a widget together with the labels tagged with its ordinal.
func (m *Manager) Remove(ordinal int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.widgets[ordinal]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownWidget, ordinal)
	}
	delete(m.widgets, ordinal)
	for i, o := range m.order {
		if o == ordinal {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	kept := m.labels[:0]
	for _, l := range m.labels {
		if l.Ordinal != ordinal {
			kept = append(kept, l)
		}
	}
	m.labels = kept
	m.revision++
	return nil
}

// Widget returns the current view of one widget.
func (m *Manager) Widget(ordinal int) (WidgetView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.widgets[ordinal]
	if !ok {
		return WidgetView{}, fmt.Errorf("%w: %d", ErrUnknownWidget, ordinal)
	}
	return w.View(), nil
}

// Labels returns the labels in the order they were first rendered.
func (m *Manager) Labels() []Label {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Label(nil), m.labels...)
}

// Encoded returns the label texts ready to be submitted as a discovery list.
func (m *Manager) Encoded() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.labels))
	for _, l := range m.labels {
		out = append(out, l.Text)
	}
	return out
}

// Revision increases with every mutation.
func (m *Manager) Revision() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.revision
}

// Snapshot copies the manager state for rendering.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Snapshot{
		Subject:  m.subject,
		Widgets:  make([]WidgetView, 0, len(m.order)),
		Labels:   append([]Label(nil), m.labels...),
		Revision: m.revision,
	}
	for _, o := range m.order {
		s.Widgets = append(s.Widgets, m.widgets[o].View())
	}
	return s
}

// ResetIf drops every widget and label when the revision is still rev and
// reports whether it did. Ordinals keep increasing.
func (m *Manager) ResetIf(rev uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.revision != rev {
		return false
	}
	m.widgets = make(map[int]*Widget)
	m.order = nil
	m.labels = nil
	m.revision++
	return true
}
