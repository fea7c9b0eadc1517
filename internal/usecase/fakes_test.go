package usecase

import (
	"context"
	"fmt"
	"sync"

	"github.com/sglre6355/station-herald/internal/domain"
)

type fakeStatusSource struct {
	mu    sync.Mutex
	snap  *domain.Snapshot
	err   error
	calls int
}

func (f *fakeStatusSource) Fetch(_ context.Context) (*domain.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.snap, nil
}

type fakePublisher struct {
	mu       sync.Mutex
	edits    map[domain.Subscription]int
	payloads []domain.RenderedPayload
	failures map[domain.Subscription]error
	sent     map[string]domain.RenderedPayload
	sendErr  error
	nextID   string

	// block, when set, is waited on inside every edit after signalling started.
	started chan struct{}
	block   chan struct{}
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{
		edits:    make(map[domain.Subscription]int),
		failures: make(map[domain.Subscription]error),
		sent:     make(map[string]domain.RenderedPayload),
		nextID:   "message-new",
	}
}

func (f *fakePublisher) SendStatus(_ context.Context, channelID string, payload domain.RenderedPayload) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.sent[channelID] = payload
	return f.nextID, nil
}

func (f *fakePublisher) EditStatus(_ context.Context, sub domain.Subscription, payload domain.RenderedPayload) error {
	if f.block != nil {
		f.started <- struct{}{}
		<-f.block
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failures[sub]; ok {
		return err
	}
	f.edits[sub]++
	f.payloads = append(f.payloads, payload)
	return nil
}

func (f *fakePublisher) editCount(sub domain.Subscription) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.edits[sub]
}

func (f *fakePublisher) totalEdits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.edits {
		total += n
	}
	return total
}

type fakePresence struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (f *fakePresence) UpdatePresence(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return f.err
}

func (f *fakePresence) last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.texts) == 0 {
		return ""
	}
	return f.texts[len(f.texts)-1]
}

type memoryRepository struct {
	mu      sync.Mutex
	stored  []domain.Subscription
	saves   int
	saveErr error
	loadErr error
}

func (m *memoryRepository) Load(_ context.Context) ([]domain.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return append([]domain.Subscription(nil), m.stored...), nil
}

func (m *memoryRepository) Save(_ context.Context, subscriptions []domain.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.stored = append([]domain.Subscription(nil), subscriptions...)
	return nil
}

func (m *memoryRepository) snapshot() ([]domain.Subscription, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Subscription(nil), m.stored...), m.saves
}

type fakeCapabilities struct {
	caps domain.Capabilities
	err  error
}

func (f *fakeCapabilities) ChannelCapabilities(_ context.Context, _ string) (domain.Capabilities, error) {
	return f.caps, f.err
}

var errUnreachable = fmt.Errorf("%w: unknown message", domain.ErrTargetUnreachable)

func ptr[T any](v T) *T {
	return &v
}
