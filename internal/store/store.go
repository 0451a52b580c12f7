// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/tamuctf/CTFd/internal/domain"
)

// Repository persists console admins and the challenge cache.
type Repository interface {
	// GetAdmin retrieves an admin by id. It returns nil, nil when absent.
	GetAdmin(ctx context.Context, adminID string) (*domain.Admin, error)

	// UpsertAdmin creates or updates an admin record.
	UpsertAdmin(ctx context.Context, admin *domain.Admin) error

	// UpdateLastSeen updates the last_seen_at timestamp for an admin.
	UpdateLastSeen(ctx context.Context, adminID string, lastSeen time.Time) error

	// GetIdleAdmins returns admins inactive for longer than ttl.
	GetIdleAdmins(ctx context.Context, ttl time.Duration) ([]*domain.Admin, error)

	// DeleteAdmin removes an admin record.
	DeleteAdmin(ctx context.Context, adminID string) error

	// ReplaceChallenges swaps the cached listing for a fresh one.
	ReplaceChallenges(ctx context.Context, challenges []domain.Challenge, fetchedAt time.Time) error

	// ListChallenges returns the cached listing in server order and when it was fetched.
	// A zero time means the cache has never been filled.
	ListChallenges(ctx context.Context) ([]domain.Challenge, time.Time, error)

	// GetChallenge returns one cached challenge or nil, nil when absent.
	GetChallenge(ctx context.Context, id int) (*domain.Challenge, error)

	// UpsertChallenge updates one cached challenge in place.
	UpsertChallenge(ctx context.Context, challenge domain.Challenge) error

	// DeleteChallenge removes one challenge from the cache.
	DeleteChallenge(ctx context.Context, id int) error

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
