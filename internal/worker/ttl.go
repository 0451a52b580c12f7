// Package worker runs the console's background maintenance.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/tamuctf/CTFd/internal/store"
)

const (
	DefaultInterval = time.Minute
	// AdminTTL matches the lifetime of the admin cookie.
	AdminTTL = 30 * 24 * time.Hour
)

// SessionSweeper drops idle editor sessions and returns their admin ids.
type SessionSweeper interface {
	Sweep(ttl time.Duration) []string
}

// CacheRefresher refreshes the challenge cache when it is stale.
type CacheRefresher interface {
	RefreshIfStale(ctx context.Context) (bool, error)
}

// CleanupCallback is called for every admin record removed by the worker.
type CleanupCallback func(adminID string)

// Config bundles the collaborators and intervals of the TTL worker.
type Config struct {
	Repo       store.Repository
	Sessions   SessionSweeper
	Catalog    CacheRefresher
	Interval   time.Duration
	SessionTTL time.Duration
	AdminTTL   time.Duration
	OnCleanup  CleanupCallback
}

// StartTTLWorker runs a background goroutine that periodically sweeps idle
// editor sessions and admins and refreshes a stale challenge cache.
func StartTTLWorker(ctx context.Context, cfg Config) {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.AdminTTL <= 0 {
		cfg.AdminTTL = AdminTTL
	}

	ticker := time.NewTicker(cfg.Interval)
	go func() {
		defer ticker.Stop()
		slog.Info("TTL worker started", "interval", cfg.Interval, "session_ttl", cfg.SessionTTL)

		for {
			select {
			case <-ticker.C:
				runOnce(ctx, cfg)
			case <-ctx.Done():
				slog.Info("TTL worker shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func runOnce(ctx context.Context, cfg Config) {
	if cfg.Sessions != nil {
		if expired := cfg.Sessions.Sweep(cfg.SessionTTL); len(expired) > 0 {
			slog.Info("TTL worker closed idle editor sessions", "count", len(expired))
		}
	}

	if cfg.Repo != nil {
		cleanupIdleAdmins(ctx, cfg)
	}

	if cfg.Catalog != nil {
		refreshed, err := cfg.Catalog.RefreshIfStale(ctx)
		if err != nil {
			slog.Warn("TTL worker failed to refresh challenge cache", "error", err)
		} else if refreshed {
			slog.Debug("TTL worker refreshed challenge cache")
		}
	}
}

func cleanupIdleAdmins(ctx context.Context, cfg Config) {
	idle, err := cfg.Repo.GetIdleAdmins(ctx, cfg.AdminTTL)
	if err != nil {
		slog.Error("TTL worker failed to get idle admins", "error", err)
		return
	}
	if len(idle) == 0 {
		return
	}

	slog.Info("TTL worker found idle admins", "count", len(idle))
	cleaned := 0
	for _, admin := range idle {
		if err := cfg.Repo.DeleteAdmin(ctx, admin.AdminID); err != nil {
			if ctx.Err() != nil {
				slog.Debug("TTL worker: context canceled during admin cleanup", "admin_id", admin.AdminID, "error", err)
				return
			}
			slog.Warn("TTL worker failed to delete idle admin", "error", err, "admin_id", admin.AdminID)
			continue
		}
		cleaned++
		if cfg.OnCleanup != nil {
			cfg.OnCleanup(admin.AdminID)
		}
	}
	slog.Info("TTL worker cleanup completed", "cleaned", cleaned)
}
