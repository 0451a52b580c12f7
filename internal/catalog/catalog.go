// Package catalog keeps the console's cached copy of the challenge listing.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tamuctf/CTFd/internal/domain"
	"github.com/tamuctf/CTFd/internal/store"
)

// ErrNotFound is returned for a challenge the server does not list.
var ErrNotFound = errors.New("challenge not found")

// Source fetches the authoritative listing.
type Source interface {
	Challenges(ctx context.Context) ([]domain.Challenge, error)
}

// Service serves the listing from the store and refreshes it from the source.
type Service struct {
	src  Source
	repo store.Repository
	ttl  time.Duration
	now  func() time.Time

	// refreshMu collapses concurrent refreshes into one fetch.
	refreshMu sync.Mutex
}

// NewService creates a catalog whose cache is considered fresh for ttl.
func NewService(src Source, repo store.Repository, ttl time.Duration) *Service {
	return &Service{src: src, repo: repo, ttl: ttl, now: time.Now}
}

// Refresh fetches the listing and replaces the cache.
func (s *Service) Refresh(ctx context.Context) ([]domain.Challenge, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()
	return s.refreshLocked(ctx)
}

func (s *Service) refreshLocked(ctx context.Context) ([]domain.Challenge, error) {
	challenges, err := s.src.Challenges(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch challenges: %w", err)
	}
	if err := s.repo.ReplaceChallenges(ctx, challenges, s.now()); err != nil {
		return nil, fmt.Errorf("cache challenges: %w", err)
	}
	slog.Info("Challenge cache refreshed", "count", len(challenges))
	return challenges, nil
}

// List returns the listing, refreshing it first when stale. A failed refresh
// falls back to the stale copy when one exists.
func (s *Service) List(ctx context.Context) ([]domain.Challenge, error) {
	challenges, fetchedAt, err := s.repo.ListChallenges(ctx)
	if err != nil {
		return nil, fmt.Errorf("read challenge cache: %w", err)
	}
	if !s.stale(fetchedAt) {
		return challenges, nil
	}

	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	// another caller may have refreshed while we waited
	if cached, at, err := s.repo.ListChallenges(ctx); err == nil && !s.stale(at) {
		return cached, nil
	}

	fresh, err := s.refreshLocked(ctx)
	if err != nil {
		if fetchedAt.IsZero() {
			return nil, err
		}
		slog.Warn("Serving stale challenge cache", "error", err, "fetched_at", fetchedAt)
		return challenges, nil
	}
	return fresh, nil
}

// RefreshIfStale refreshes the cache when it is older than the ttl.
// It reports whether a refresh happened.
func (s *Service) RefreshIfStale(ctx context.Context) (bool, error) {
	_, fetchedAt, err := s.repo.ListChallenges(ctx)
	if err != nil {
		return false, fmt.Errorf("read challenge cache: %w", err)
	}
	if !s.stale(fetchedAt) {
		return false, nil
	}
	if _, err := s.Refresh(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// Groups returns the listing grouped for the challenge board.
func (s *Service) Groups(ctx context.Context) ([]domain.CategoryGroup, error) {
	challenges, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return domain.GroupByCategory(challenges), nil
}

// Get returns one challenge, refreshing once when it is not cached.
func (s *Service) Get(ctx context.Context, id int) (domain.Challenge, error) {
	c, err := s.repo.GetChallenge(ctx, id)
	if err != nil {
		return domain.Challenge{}, fmt.Errorf("read challenge %d: %w", id, err)
	}
	if c != nil {
		return *c, nil
	}

	challenges, err := s.Refresh(ctx)
	if err != nil {
		return domain.Challenge{}, err
	}
	if found, ok := domain.FindChallenge(challenges, id); ok {
		return found, nil
	}
	return domain.Challenge{}, fmt.Errorf("%w: %d", ErrNotFound, id)
}

// Apply records a successful metadata update.
func (s *Service) Apply(ctx context.Context, c domain.Challenge) error {
	return s.repo.UpsertChallenge(ctx, c)
}

// Forget drops a deleted challenge from the cache.
func (s *Service) Forget(ctx context.Context, id int) error {
	if err := s.repo.DeleteChallenge(ctx, id); err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	return nil
}

func (s *Service) stale(fetchedAt time.Time) bool {
	return fetchedAt.IsZero() || s.now().Sub(fetchedAt) > s.ttl
}
