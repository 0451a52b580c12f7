// Terminal front end of the CTF admin console.
//
// The TUI owns stdout, so logs go to TUI_LOG_PATH.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/tamuctf/CTFd/internal/catalog"
	"github.com/tamuctf/CTFd/internal/config"
	"github.com/tamuctf/CTFd/internal/ctfd"
	"github.com/tamuctf/CTFd/internal/store"
	"github.com/tamuctf/CTFd/internal/tui"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	logFile, err := openLog(cfg.TUILogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening log file: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	slog.SetDefault(slog.New(slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: slog.LevelDebug})))

	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	client, err := ctfd.New(cfg.Server)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating CTF server client: %v\n", err)
		os.Exit(1)
	}

	app := tui.NewApp(catalog.NewService(client, repo, cfg.CacheTTL), client)
	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		slog.Error("TUI exited with error", "error", err)
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}
}

func openLog(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}
