// Package tui is the terminal front end of the admin console. It lists the
// challenges and edits discovery rules with the same widget manager the web
// console uses.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tamuctf/CTFd/internal/discovery"
	"github.com/tamuctf/CTFd/internal/domain"
	"github.com/tamuctf/CTFd/internal/notify"
)

// requestTimeout bounds every call made on behalf of a key press.
const requestTimeout = 15 * time.Second

// Lister returns the challenge listing.
type Lister interface {
	List(ctx context.Context) ([]domain.Challenge, error)
}

// DiscoveryWriter saves the discovery rules of a challenge.
type DiscoveryWriter interface {
	UpdateDiscoveryList(ctx context.Context, chalID int, rules []string) error
}

// appState is the screen being shown.
type appState int

const (
	stateList   appState = iota // challenge picker
	stateEditor                 // discovery editor for one challenge
)

type challengesLoadedMsg struct {
	challenges []domain.Challenge
	err        error
}

// submitFinishedMsg carries the manager the submit was taken from, so a
// result never touches an editor opened after it.
type submitFinishedMsg struct {
	manager  *discovery.Manager
	revision uint64
	err      error
}

// challengeItem implements list.Item.
type challengeItem struct {
	challenge domain.Challenge
}

func (i challengeItem) Title() string { return i.challenge.Name }
func (i challengeItem) Description() string {
	return fmt.Sprintf("%s · %d pts · %d%% solved", i.challenge.Category, i.challenge.Value, i.challenge.SolvedPercent())
}
func (i challengeItem) FilterValue() string { return i.challenge.Name }

// App is the bubbletea model of the terminal console.
type App struct {
	lister Lister
	writer DiscoveryWriter

	state      appState
	challenges []domain.Challenge
	list       list.Model

	// editor state
	manager    *discovery.Manager
	focus      int // index into the snapshot's widgets
	cursor     int // entry cursor inside the focused widget
	submitting bool

	status  notify.Notification
	hasNews bool

	width  int
	height int
}

// NewApp creates the terminal console.
func NewApp(lister Lister, writer DiscoveryWriter) *App {
	challengeList := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	challengeList.Title = "Challenges"
	challengeList.SetShowStatusBar(false)
	challengeList.SetFilteringEnabled(false)
	challengeList.SetShowHelp(false)

	return &App{
		lister: lister,
		writer: writer,
		state:  stateList,
		list:   challengeList,
	}
}

// Init loads the challenge listing.
func (a *App) Init() tea.Cmd {
	return a.loadChallenges()
}

func (a *App) loadChallenges() tea.Cmd {
	lister := a.lister
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		challenges, err := lister.List(ctx)
		return challengesLoadedMsg{challenges: challenges, err: err}
	}
}

// Update handles one message.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.list.SetSize(max(0, msg.Width-4), max(0, msg.Height-4))
		return a, nil

	case challengesLoadedMsg:
		if msg.err != nil {
			a.setStatus(notify.FromResult("list_challenges", msg.err, 0))
			return a, nil
		}
		a.challenges = msg.challenges
		items := make([]list.Item, len(msg.challenges))
		for i, c := range msg.challenges {
			items[i] = challengeItem{challenge: c}
		}
		a.list.SetItems(items)
		slog.Info("Challenges loaded", "count", len(msg.challenges))
		return a, nil

	case submitFinishedMsg:
		a.setStatus(notify.FromResult("update_discovery", msg.err, msg.revision))
		if msg.manager != a.manager {
			slog.Debug("Ignoring submit result of a closed editor", "challenge_id", msg.manager.Subject().ID)
			return a, nil
		}
		a.submitting = false
		if msg.err == nil && a.manager.ResetIf(msg.revision) {
			a.focus, a.cursor = 0, 0
		}
		return a, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return a, tea.Quit
		}
		if a.state == stateEditor {
			return a, a.handleEditorKey(msg)
		}
		return a.handleListKey(msg)
	}
	return a, nil
}

func (a *App) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return a, tea.Quit
	case "r":
		a.setStatus(notify.Notification{Level: notify.LevelInfo, Op: "refresh_challenges", Message: "reloading"})
		return a, a.loadChallenges()
	case "enter":
		item, ok := a.list.SelectedItem().(challengeItem)
		if !ok {
			return a, nil
		}
		a.openEditor(item.challenge)
		return a, nil
	}
	var cmd tea.Cmd
	a.list, cmd = a.list.Update(msg)
	return a, cmd
}

func (a *App) openEditor(subject domain.Challenge) {
	a.manager = discovery.NewManager(subject, a.challenges)
	a.state = stateEditor
	a.focus, a.cursor = 0, 0
	a.submitting = false
	slog.Info("Discovery editor opened", "challenge_id", subject.ID)
}

func (a *App) handleEditorKey(msg tea.KeyMsg) tea.Cmd {
	snap := a.manager.Snapshot()
	switch msg.String() {
	case "esc", "q":
		a.state = stateList
		a.manager = nil
		return nil
	case "n":
		view := a.manager.Create()
		a.focus = len(snap.Widgets)
		a.cursor = 0
		slog.Debug("Widget created", "ordinal", view.Ordinal)
	case "tab", "right", "l":
		if len(snap.Widgets) > 0 {
			a.focus = (a.focus + 1) % len(snap.Widgets)
			a.cursor = 0
		}
	case "shift+tab", "left", "h":
		if len(snap.Widgets) > 0 {
			a.focus = (a.focus - 1 + len(snap.Widgets)) % len(snap.Widgets)
			a.cursor = 0
		}
	case "down", "j":
		if w, ok := a.focused(snap); ok && a.cursor < len(w.Entries)-1 {
			a.cursor++
		}
	case "up", "k":
		if a.cursor > 0 {
			a.cursor--
		}
	case " ", "space", "enter":
		w, ok := a.focused(snap)
		if !ok {
			return nil
		}
		if w.Placeholder {
			a.setStatus(notify.FromResult("toggle_widget", discovery.ErrNoCandidates, snap.Revision))
			return nil
		}
		if _, err := a.manager.Toggle(w.Ordinal, w.Entries[a.cursor].ID); err != nil {
			a.setStatus(notify.FromResult("toggle_widget", err, snap.Revision))
		}
	case "x", "d":
		w, ok := a.focused(snap)
		if !ok {
			return nil
		}
		if err := a.manager.Remove(w.Ordinal); err != nil {
			a.setStatus(notify.FromResult("remove_widget", err, snap.Revision))
			return nil
		}
		if a.focus > 0 && a.focus >= len(snap.Widgets)-1 {
			a.focus--
		}
		a.cursor = 0
	case "s":
		return a.submit()
	}
	return nil
}

func (a *App) focused(snap discovery.Snapshot) (discovery.WidgetView, bool) {
	if a.focus < 0 || a.focus >= len(snap.Widgets) {
		return discovery.WidgetView{}, false
	}
	return snap.Widgets[a.focus], true
}

func (a *App) submit() tea.Cmd {
	if a.submitting {
		return nil
	}
	rules := a.manager.Encoded()
	if len(rules) == 0 {
		a.setStatus(notify.Notification{Level: notify.LevelWarn, Op: "update_discovery", Message: "no prerequisite set selected"})
		return nil
	}
	a.submitting = true
	manager := a.manager
	chalID := manager.Subject().ID
	revision := manager.Revision()
	writer := a.writer
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		err := writer.UpdateDiscoveryList(ctx, chalID, rules)
		if err != nil {
			slog.Warn("Discovery submit failed", "challenge_id", chalID, "error", err)
		}
		return submitFinishedMsg{manager: manager, revision: revision, err: err}
	}
}

func (a *App) setStatus(n notify.Notification) {
	if n.Time.IsZero() {
		n.Time = time.Now()
	}
	a.status = n
	a.hasNews = true
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	hintStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	activeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	disabledStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#999999")).Italic(true)
	labelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801"))
	widgetBox     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#444444")).Padding(0, 1)
	focusedBox    = widgetBox.BorderForeground(lipgloss.Color("#5B8DEF"))

	statusStyles = map[notify.Level]lipgloss.Style{
		notify.LevelInfo:  lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")),
		notify.LevelWarn:  lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801")),
		notify.LevelError: lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true),
	}
)

// View renders the current screen.
func (a *App) View() string {
	var body string
	if a.state == stateEditor {
		body = a.editorView()
	} else {
		body = lipgloss.JoinVertical(lipgloss.Left,
			a.list.View(),
			hintStyle.Render("enter: edit discovery · r: reload · q: quit"),
		)
	}
	return lipgloss.JoinVertical(lipgloss.Left, body, a.statusLine())
}

func (a *App) editorView() string {
	snap := a.manager.Snapshot()
	parts := []string{titleStyle.Render(fmt.Sprintf("Discovery · %s (ID %d)", snap.Subject.Name, snap.Subject.ID))}

	if len(snap.Widgets) == 0 {
		parts = append(parts, hintStyle.Render("No prerequisite sets. Press n to add one."))
	}
	boxes := make([]string, 0, len(snap.Widgets))
	for i, w := range snap.Widgets {
		boxes = append(boxes, a.widgetView(w, i == a.focus))
	}
	if len(boxes) > 0 {
		parts = append(parts, lipgloss.JoinHorizontal(lipgloss.Top, boxes...))
	}

	labels := make([]string, 0, len(snap.Labels))
	for _, l := range snap.Labels {
		labels = append(labels, labelStyle.Render(l.Text))
	}
	parts = append(parts, "Labels: "+strings.Join(labels, " | "))

	hint := "n: new · tab: next · space: toggle · x: remove · s: save · esc: back"
	if a.submitting {
		hint = "saving..."
	}
	parts = append(parts, hintStyle.Render(hint))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (a *App) widgetView(w discovery.WidgetView, focused bool) string {
	lines := []string{fmt.Sprintf("[%d] Challenge%s", w.Quantity, w.Plural)}
	if w.Placeholder {
		lines = append(lines, disabledStyle.Render(discovery.PlaceholderText))
	}
	for i, e := range w.Entries {
		marker := "  "
		if focused && i == a.cursor {
			marker = "> "
		}
		box := "[ ] "
		text := e.Text
		if e.Active {
			box = "[x] "
			text = activeStyle.Render(text)
		}
		lines = append(lines, marker+box+text)
	}
	style := widgetBox
	if focused {
		style = focusedBox
	}
	return style.Render(strings.Join(lines, "\n"))
}

func (a *App) statusLine() string {
	if !a.hasNews {
		return ""
	}
	style, ok := statusStyles[a.status.Level]
	if !ok {
		style = hintStyle
	}
	return style.Render(fmt.Sprintf("%s %s: %s", a.status.Time.Format("15:04:05"), a.status.Op, a.status.Message))
}
