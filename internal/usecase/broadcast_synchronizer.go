package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/sglre6355/station-herald/internal/domain"
)

// ErrTickInProgress is returned by Tick when another tick has not finished yet.
var ErrTickInProgress = errors.New("broadcast tick already in progress")

// StatusPublisher delivers rendered payloads to Discord channels.
type StatusPublisher interface {
	SendStatus(ctx context.Context, channelID string, payload domain.RenderedPayload) (string, error)
	EditStatus(ctx context.Context, sub domain.Subscription, payload domain.RenderedPayload) error
}

// PresenceUpdater applies a short status text to the bot's own presence.
type PresenceUpdater interface {
	UpdatePresence(ctx context.Context, text string) error
}

// SubscriptionErrorStage indicates which step of the broadcast pipeline failed.
type SubscriptionErrorStage string

const (
	// SubscriptionErrorStagePresence marks failures while updating the bot presence.
	SubscriptionErrorStagePresence SubscriptionErrorStage = "presence"
	// SubscriptionErrorStageDispatch marks failures while editing a subscribed message.
	SubscriptionErrorStageDispatch SubscriptionErrorStage = "dispatch"
	// SubscriptionErrorStagePersist marks failures while saving the pruned subscription set.
	SubscriptionErrorStagePersist SubscriptionErrorStage = "persist"
)

// SubscriptionErrorHandler is invoked when part of a tick cannot complete successfully.
// The subscription is zero for failures that do not concern a single subscription.
type SubscriptionErrorHandler func(domain.Subscription, SubscriptionErrorStage, error)

// TickReport summarises one synchronisation pass.
type TickReport struct {
	Available bool
	Delivered int
	Failed    int
	Pruned    int
}

// BroadcastSynchronizer keeps every subscribed message in sync with the latest server status.
type BroadcastSynchronizer struct {
	status        *StatusUsecase
	publisher     StatusPublisher
	presence      PresenceUpdater
	subscriptions *SubscriptionSet

	tickMu sync.Mutex

	lifecycleMu sync.Mutex
	cancel      context.CancelFunc
	done        chan struct{}

	clock           clockwork.Clock
	interval        time.Duration
	fetchTimeout    time.Duration
	dispatchTimeout time.Duration
	concurrency     int
	onError         SubscriptionErrorHandler
	onTick          func(TickReport)
}

// BroadcastOption configures behavioural aspects of the synchronizer.
type BroadcastOption func(*BroadcastSynchronizer)

// WithBroadcastClock overrides the clock driving the repeating task (useful for testing).
func WithBroadcastClock(clock clockwork.Clock) BroadcastOption {
	return func(s *BroadcastSynchronizer) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithBroadcastInterval defines the cadence between ticks.
func WithBroadcastInterval(interval time.Duration) BroadcastOption {
	return func(s *BroadcastSynchronizer) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

// WithFetchTimeout customises the maximum duration allowed for fetching the status.
func WithFetchTimeout(timeout time.Duration) BroadcastOption {
	return func(s *BroadcastSynchronizer) {
		if timeout > 0 {
			s.fetchTimeout = timeout
		}
	}
}

// WithDispatchTimeout customises the maximum duration allowed for editing one message.
func WithDispatchTimeout(timeout time.Duration) BroadcastOption {
	return func(s *BroadcastSynchronizer) {
		if timeout > 0 {
			s.dispatchTimeout = timeout
		}
	}
}

// WithDispatchConcurrency caps how many message edits run at once.
func WithDispatchConcurrency(limit int) BroadcastOption {
	return func(s *BroadcastSynchronizer) {
		if limit > 0 {
			s.concurrency = limit
		}
	}
}

// WithSubscriptionErrorHandler registers the callback used when a tick step fails.
func WithSubscriptionErrorHandler(handler SubscriptionErrorHandler) BroadcastOption {
	return func(s *BroadcastSynchronizer) {
		if handler != nil {
			s.onError = handler
		}
	}
}

// WithTickObserver registers a callback receiving the report of every completed tick.
func WithTickObserver(observer func(TickReport)) BroadcastOption {
	return func(s *BroadcastSynchronizer) {
		if observer != nil {
			s.onTick = observer
		}
	}
}

// NewBroadcastSynchronizer builds a synchronizer that renders via status and delivers via publisher.
func NewBroadcastSynchronizer(
	status *StatusUsecase,
	publisher StatusPublisher,
	presence PresenceUpdater,
	subscriptions *SubscriptionSet,
	opts ...BroadcastOption,
) *BroadcastSynchronizer {
	s := &BroadcastSynchronizer{
		status:          status,
		publisher:       publisher,
		presence:        presence,
		subscriptions:   subscriptions,
		clock:           clockwork.NewRealClock(),
		interval:        time.Minute,
		fetchTimeout:    10 * time.Second,
		dispatchTimeout: 30 * time.Second,
		concurrency:     8,
		onError:         func(domain.Subscription, SubscriptionErrorStage, error) {},
		onTick:          func(TickReport) {},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start launches the repeating task: one tick immediately, then one per interval.
func (s *BroadcastSynchronizer) Start(ctx context.Context) error {
	if s.status == nil || s.publisher == nil || s.subscriptions == nil {
		return fmt.Errorf("broadcast synchronizer missing dependencies")
	}

	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	if s.cancel != nil {
		return fmt.Errorf("broadcast synchronizer already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	go func() {
		defer close(done)
		s.run(runCtx)
	}()

	return nil
}

// Shutdown cancels the repeating task and waits for the running tick to return.
func (s *BroadcastSynchronizer) Shutdown() {
	s.lifecycleMu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.lifecycleMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *BroadcastSynchronizer) run(ctx context.Context) {
	s.runTick(ctx)

	// A ticker drops triggers that fire while a tick is still running.
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			s.runTick(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (s *BroadcastSynchronizer) runTick(ctx context.Context) {
	report, err := s.Tick(ctx)
	if err != nil {
		slog.Warn("skipping broadcast tick", slog.Any("error", err))
		return
	}

	slog.Debug(
		"broadcast tick finished",
		slog.Bool("available", report.Available),
		slog.Int("delivered", report.Delivered),
		slog.Int("failed", report.Failed),
		slog.Int("pruned", report.Pruned),
	)
}

// Tick runs one fetch, render, presence, fan-out and persist pass.
// It returns ErrTickInProgress instead of overlapping a running tick.
func (s *BroadcastSynchronizer) Tick(ctx context.Context) (TickReport, error) {
	if !s.tickMu.TryLock() {
		return TickReport{}, ErrTickInProgress
	}
	defer s.tickMu.Unlock()

	fetchCtx, cancelFetch := context.WithTimeout(ctx, s.fetchTimeout)
	snap := s.status.Snapshot(fetchCtx)
	cancelFetch()

	payload := s.status.Render(snap)
	report := TickReport{Available: snap != nil}

	if s.presence != nil {
		if err := s.presence.UpdatePresence(ctx, PresenceText(snap)); err != nil {
			s.onError(
				domain.Subscription{},
				SubscriptionErrorStagePresence,
				fmt.Errorf("failed to update presence: %w", err),
			)
		}
	}

	unreachable := s.dispatch(ctx, payload, &report)

	if removed := s.subscriptions.Remove(unreachable...); removed > 0 {
		report.Pruned = removed
		if err := s.subscriptions.Persist(ctx); err != nil {
			s.onError(domain.Subscription{}, SubscriptionErrorStagePersist, err)
		}
	}

	s.onTick(report)
	return report, nil
}

// dispatch edits every subscribed message and returns the subscriptions that can no longer be reached.
func (s *BroadcastSynchronizer) dispatch(
	ctx context.Context,
	payload domain.RenderedPayload,
	report *TickReport,
) []domain.Subscription {
	subs := s.subscriptions.List()
	results := make([]error, len(subs))

	var group errgroup.Group
	group.SetLimit(s.concurrency)
	for i, sub := range subs {
		group.Go(func() error {
			ctxSend, cancelSend := context.WithTimeout(ctx, s.dispatchTimeout)
			defer cancelSend()
			results[i] = s.publisher.EditStatus(ctxSend, sub, payload)
			return nil
		})
	}
	_ = group.Wait()

	var unreachable []domain.Subscription
	for i, err := range results {
		if err == nil {
			report.Delivered++
			continue
		}

		report.Failed++
		s.onError(subs[i], SubscriptionErrorStageDispatch, fmt.Errorf("failed to dispatch status: %w", err))
		if errors.Is(err, domain.ErrTargetUnreachable) {
			unreachable = append(unreachable, subs[i])
		}
	}

	return unreachable
}
