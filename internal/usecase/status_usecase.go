package usecase

import (
	"context"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/sglre6355/station-herald/internal/domain"
)

// StatusSource fetches the latest server status snapshot.
type StatusSource interface {
	Fetch(ctx context.Context) (*domain.Snapshot, error)
}

// StatusUsecase exposes status-oriented application actions.
type StatusUsecase struct {
	source   StatusSource
	renderer *SnapshotRenderer
	clock    clockwork.Clock
}

// NewStatusUsecase wraps source and renderer to expose higher-level operations.
func NewStatusUsecase(source StatusSource, renderer *SnapshotRenderer, clock clockwork.Clock) *StatusUsecase {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &StatusUsecase{source: source, renderer: renderer, clock: clock}
}

// Snapshot returns the latest snapshot, or nil when the server status is unavailable.
// Fetch failures are logged and never returned.
func (u *StatusUsecase) Snapshot(ctx context.Context) *domain.Snapshot {
	snap, err := u.source.Fetch(ctx)
	if err != nil {
		slog.Warn("server status unavailable", slog.Any("error", err))
		return nil
	}
	return snap
}

// Render renders snap with the current time.
func (u *StatusUsecase) Render(snap *domain.Snapshot) domain.RenderedPayload {
	return u.renderer.Render(snap, u.clock.Now())
}

// Current fetches and renders the status once, without touching any subscription.
func (u *StatusUsecase) Current(ctx context.Context) domain.RenderedPayload {
	return u.Render(u.Snapshot(ctx))
}
