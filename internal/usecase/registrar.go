package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sglre6355/station-herald/internal/domain"
)

// Reasons a channel cannot be registered for broadcasting.
var (
	ErrChannelUnresolvable = errors.New("channel cannot be resolved")
	ErrMissingViewChannel  = errors.New("missing view channel permission")
	ErrMissingSendMessages = errors.New("missing send messages permission")
	ErrMissingEmbedLinks   = errors.New("missing embed links permission")
	ErrInitialSendFailed   = errors.New("initial status message could not be sent")
)

// CapabilityChecker reports what the bot is allowed to do in a channel.
type CapabilityChecker interface {
	ChannelCapabilities(ctx context.Context, channelID string) (domain.Capabilities, error)
}

// Registrar starts persistent broadcasting in new channels.
type Registrar struct {
	status        *StatusUsecase
	capabilities  CapabilityChecker
	publisher     StatusPublisher
	subscriptions *SubscriptionSet
}

// NewRegistrar wires the collaborators needed to register a broadcast channel.
func NewRegistrar(
	status *StatusUsecase,
	capabilities CapabilityChecker,
	publisher StatusPublisher,
	subscriptions *SubscriptionSet,
) *Registrar {
	return &Registrar{
		status:        status,
		capabilities:  capabilities,
		publisher:     publisher,
		subscriptions: subscriptions,
	}
}

// Register verifies the bot may broadcast in channelID, posts the first status message there
// and subscribes it. Nothing is registered when an error is returned.
func (r *Registrar) Register(ctx context.Context, channelID string) (domain.Subscription, error) {
	caps, err := r.capabilities.ChannelCapabilities(ctx, channelID)
	if err != nil {
		return domain.Subscription{}, fmt.Errorf("%w: %v", ErrChannelUnresolvable, err)
	}

	switch {
	case !caps.ViewChannel:
		return domain.Subscription{}, ErrMissingViewChannel
	case !caps.SendMessages:
		return domain.Subscription{}, ErrMissingSendMessages
	case !caps.EmbedLinks:
		return domain.Subscription{}, ErrMissingEmbedLinks
	}

	payload := r.status.Current(ctx)

	messageID, err := r.publisher.SendStatus(ctx, channelID, payload)
	if err != nil {
		return domain.Subscription{}, fmt.Errorf("%w: %v", ErrInitialSendFailed, err)
	}

	sub := domain.Subscription{ChannelID: channelID, MessageID: messageID}
	if err := r.subscriptions.Add(ctx, sub); err != nil {
		slog.Error(
			"failed to persist new subscription",
			slog.String("channel", sub.ChannelID),
			slog.String("message", sub.MessageID),
			slog.Any("error", err),
		)
	}

	return sub, nil
}
