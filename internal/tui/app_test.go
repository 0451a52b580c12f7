package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tamuctf/CTFd/internal/ctfd"
	"github.com/tamuctf/CTFd/internal/domain"
	"github.com/tamuctf/CTFd/internal/notify"
)

type stubBackend struct {
	challenges []domain.Challenge
	listErr    error
	submitErr  error
	submitted  [][]string
}

func (s *stubBackend) List(context.Context) ([]domain.Challenge, error) {
	return s.challenges, s.listErr
}

func (s *stubBackend) UpdateDiscoveryList(_ context.Context, _ int, rules []string) error {
	s.submitted = append(s.submitted, rules)
	return s.submitErr
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press sends keys and runs the resulting commands synchronously.
func press(t *testing.T, app *App, keys ...string) *App {
	t.Helper()
	for _, k := range keys {
		model, cmd := app.Update(keyMsg(k))
		app = runCommands(t, model, cmd)
	}
	return app
}

func runCommands(t *testing.T, model tea.Model, cmd tea.Cmd) *App {
	t.Helper()
	app, ok := model.(*App)
	if !ok {
		t.Fatalf("unexpected model type %T", model)
	}
	for cmd != nil {
		msg := cmd()
		if msg == nil {
			break
		}
		if _, quit := msg.(tea.QuitMsg); quit {
			break
		}
		model, cmd = app.Update(msg)
		app = model.(*App)
	}
	return app
}

func newLoadedApp(t *testing.T, backend *stubBackend) *App {
	t.Helper()
	app := NewApp(backend, backend)
	model, _ := app.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return runCommands(t, model, app.Init())
}

var sample = []domain.Challenge{
	{ID: 1, Name: "Pwn1", Category: "pwn", Value: 100},
	{ID: 5, Name: "Pwn2", Category: "pwn", Value: 200},
	{ID: 7, Name: "Pwn3", Category: "pwn", Value: 300},
}

func TestInitLoadsChallenges(t *testing.T) {
	app := newLoadedApp(t, &stubBackend{challenges: sample})

	if got := len(app.list.Items()); got != 3 {
		t.Fatalf("expected 3 items, got %d", got)
	}
	if !strings.Contains(app.View(), "Pwn2") {
		t.Error("list view should show challenge names")
	}
}

func TestInitReportsListFailure(t *testing.T) {
	err := &ctfd.OutcomeError{Op: "list_challenges", Outcome: ctfd.NetworkFailure, Message: "connection refused"}
	app := newLoadedApp(t, &stubBackend{listErr: err})

	if app.status.Level != notify.LevelError {
		t.Fatalf("expected error status, got %+v", app.status)
	}
	if !strings.Contains(app.View(), "connection refused") {
		t.Error("status line should show the failure")
	}
}

func TestDiscoveryEditing(t *testing.T) {
	backend := &stubBackend{challenges: sample}
	app := newLoadedApp(t, backend)

	app = press(t, app, "enter")
	if app.state != stateEditor || app.manager.Subject().ID != 1 {
		t.Fatalf("expected editor for challenge 1, state=%d", app.state)
	}

	// select both candidates of a new widget
	app = press(t, app, "n", " ", "down", " ")
	snap := app.manager.Snapshot()
	if len(snap.Widgets) != 1 || snap.Widgets[0].ButtonText != "2 Challenges" {
		t.Fatalf("unexpected widgets: %+v", snap.Widgets)
	}
	if len(snap.Labels) != 1 || snap.Labels[0].Text != "5&7" {
		t.Fatalf("unexpected labels: %+v", snap.Labels)
	}

	// toggling the cursor entry again clears it
	app = press(t, app, " ")
	if got := app.manager.Encoded(); len(got) != 1 || got[0] != "5" {
		t.Fatalf("expected [5], got %v", got)
	}
	view := app.View()
	if !strings.Contains(view, "[1] Challenge") || strings.Contains(view, "Challenges") {
		t.Error("editor view should show the badge with the singular caption")
	}
	if strings.Contains(view, "[1] 1 Challenge") {
		t.Error("the count should be rendered once")
	}

	app = press(t, app, "s")
	if len(backend.submitted) != 1 || strings.Join(backend.submitted[0], ",") != "5" {
		t.Fatalf("unexpected submissions: %v", backend.submitted)
	}
	if app.status.Level != notify.LevelInfo {
		t.Errorf("expected success status, got %+v", app.status)
	}
	if snap := app.manager.Snapshot(); len(snap.Widgets) != 0 || len(snap.Labels) != 0 {
		t.Errorf("editor should be cleared after save: %+v", snap)
	}
}

func TestSubmitFailureKeepsSelection(t *testing.T) {
	backend := &stubBackend{
		challenges: sample,
		submitErr:  &ctfd.OutcomeError{Op: "update_discovery", Outcome: ctfd.ValidationFailure, Status: 403},
	}
	app := newLoadedApp(t, backend)

	app = press(t, app, "enter", "n", " ", "s")
	if app.status.Level != notify.LevelWarn {
		t.Fatalf("expected warning status, got %+v", app.status)
	}
	if got := app.manager.Encoded(); len(got) != 1 {
		t.Errorf("selection should survive a failed save, got %v", got)
	}
}

func TestSubmitWithoutLabels(t *testing.T) {
	backend := &stubBackend{challenges: sample}
	app := newLoadedApp(t, backend)

	app = press(t, app, "enter", "n", "s")
	if len(backend.submitted) != 0 {
		t.Fatal("an empty selection must not be submitted")
	}
	if app.status.Level != notify.LevelWarn {
		t.Errorf("expected warning, got %+v", app.status)
	}
}

func TestRemoveWidgetDropsLabel(t *testing.T) {
	app := newLoadedApp(t, &stubBackend{challenges: sample})

	app = press(t, app, "enter", "n", " ", "n", "down", " ")
	if got := app.manager.Encoded(); strings.Join(got, ",") != "5,7" {
		t.Fatalf("expected labels 5,7, got %v", got)
	}

	// focus is on the second widget
	app = press(t, app, "x")
	if got := app.manager.Encoded(); strings.Join(got, ",") != "5" {
		t.Errorf("expected labels 5, got %v", got)
	}
	if app.focus != 0 {
		t.Errorf("focus should move back, got %d", app.focus)
	}
}

func TestPlaceholderWidget(t *testing.T) {
	app := newLoadedApp(t, &stubBackend{challenges: sample[:1]})

	app = press(t, app, "enter", "n", " ")
	if !strings.Contains(app.View(), "No other Problems") {
		t.Error("placeholder should be rendered")
	}
	if app.status.Level != notify.LevelWarn {
		t.Errorf("toggling a placeholder should warn, got %+v", app.status)
	}
}

func TestEscReturnsToList(t *testing.T) {
	app := newLoadedApp(t, &stubBackend{challenges: sample})

	app = press(t, app, "enter", "n", "esc")
	if app.state != stateList || app.manager != nil {
		t.Fatalf("expected list state, got %d", app.state)
	}
}

func TestStaleSubmitResultKeepsWidgets(t *testing.T) {
	app := newLoadedApp(t, &stubBackend{challenges: sample})
	app = press(t, app, "enter", "n", " ")

	revision := app.manager.Revision()
	app = press(t, app, "down", " ")

	model, _ := app.Update(submitFinishedMsg{manager: app.manager, revision: revision, err: nil})
	app = model.(*App)
	if len(app.manager.Encoded()) != 1 {
		t.Error("widgets changed during the save and must be kept")
	}

	model, _ = app.Update(submitFinishedMsg{manager: app.manager, revision: app.manager.Revision(), err: errors.New("boom")})
	app = model.(*App)
	if len(app.manager.Encoded()) != 1 {
		t.Error("failed save must keep widgets")
	}
}

func TestSubmitResultIgnoredByReopenedEditor(t *testing.T) {
	app := newLoadedApp(t, &stubBackend{challenges: sample})

	app = press(t, app, "enter", "n", " ")
	// take the submit command without running it, as if the save is slow
	model, cmd := app.Update(keyMsg("s"))
	app = model.(*App)
	if cmd == nil {
		t.Fatal("expected a submit command")
	}

	app = press(t, app, "esc", "enter", "n", " ")
	if got := app.manager.Encoded(); len(got) != 1 || got[0] != "5" {
		t.Fatalf("expected [5] in the reopened editor, got %v", got)
	}

	model, _ = app.Update(cmd())
	app = model.(*App)
	if got := app.manager.Encoded(); len(got) != 1 || got[0] != "5" {
		t.Errorf("old submit result wiped the reopened editor: %v", got)
	}
	if len(app.manager.Snapshot().Widgets) != 1 {
		t.Error("reopened editor should keep its widget")
	}
	if app.submitting {
		t.Error("reopened editor should accept a new save")
	}
}
