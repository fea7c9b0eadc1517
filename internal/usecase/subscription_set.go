package usecase

import (
	"context"
	"fmt"
	"sync"

	"github.com/sglre6355/station-herald/internal/domain"
)

// SubscriptionRepository persists the whole subscription set.
type SubscriptionRepository interface {
	// Load returns the persisted subscriptions. A store that was never written yields an empty set.
	Load(ctx context.Context) ([]domain.Subscription, error)
	// Save replaces the persisted set. A failed save leaves the previous set readable.
	Save(ctx context.Context, subscriptions []domain.Subscription) error
}

// SubscriptionSet is the in-memory source of truth for subscriptions, backed by a repository.
// Mutations and persists are serialized so registrations and pruning never lose each other's updates.
type SubscriptionSet struct {
	mu            sync.Mutex
	subscriptions []domain.Subscription

	persistMu sync.Mutex
	repo      SubscriptionRepository
}

// NewSubscriptionSet returns an empty set persisted through repo.
func NewSubscriptionSet(repo SubscriptionRepository) *SubscriptionSet {
	return &SubscriptionSet{repo: repo}
}

// Load replaces the in-memory set with the persisted one and returns how many were restored.
func (s *SubscriptionSet) Load(ctx context.Context) (int, error) {
	if s.repo == nil {
		return 0, fmt.Errorf("subscription set missing repository")
	}

	loaded, err := s.repo.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load subscriptions: %w", err)
	}

	s.mu.Lock()
	s.subscriptions = append([]domain.Subscription(nil), loaded...)
	s.mu.Unlock()

	return len(loaded), nil
}

// List returns a copy of the current subscriptions.
func (s *SubscriptionSet) List() []domain.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]domain.Subscription(nil), s.subscriptions...)
}

// Len reports how many subscriptions are held.
func (s *SubscriptionSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.subscriptions)
}

// Add records sub and persists the set. The in-memory addition stands even when persisting fails.
func (s *SubscriptionSet) Add(ctx context.Context, sub domain.Subscription) error {
	s.mu.Lock()
	s.subscriptions = append(s.subscriptions, sub)
	s.mu.Unlock()

	return s.Persist(ctx)
}

// Remove drops every entry equal to one of subs and returns how many entries were removed.
// It does not persist.
func (s *SubscriptionSet) Remove(subs ...domain.Subscription) int {
	if len(subs) == 0 {
		return 0
	}

	drop := make(map[domain.Subscription]struct{}, len(subs))
	for _, sub := range subs {
		drop[sub] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.subscriptions[:0]
	for _, sub := range s.subscriptions {
		if _, ok := drop[sub]; ok {
			continue
		}
		kept = append(kept, sub)
	}
	removed := len(s.subscriptions) - len(kept)
	clear(s.subscriptions[len(kept):])
	s.subscriptions = kept

	return removed
}

// Persist writes the current in-memory set to the repository.
func (s *SubscriptionSet) Persist(ctx context.Context) error {
	if s.repo == nil {
		return fmt.Errorf("subscription set missing repository")
	}

	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	// Taken under persistMu so the last writer always stores the newest state.
	current := s.List()
	if err := s.repo.Save(ctx, current); err != nil {
		return fmt.Errorf("failed to persist subscriptions: %w", err)
	}

	return nil
}
