package presentation

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"github.com/sglre6355/station-herald/internal/domain"
)

// DiscordStatusPublisher posts and edits status embeds and updates the bot presence.
type DiscordStatusPublisher struct {
	session *discordgo.Session
}

// NewDiscordStatusPublisher wires a Discord session to the delivery interfaces expected by the use case layer.
func NewDiscordStatusPublisher(session *discordgo.Session) *DiscordStatusPublisher {
	return &DiscordStatusPublisher{session: session}
}

// SendStatus posts a new status embed to channelID and returns the message ID.
func (p *DiscordStatusPublisher) SendStatus(
	ctx context.Context,
	channelID string,
	payload domain.RenderedPayload,
) (string, error) {
	if p.session == nil {
		return "", fmt.Errorf("discord session is not initialised")
	}

	message, err := p.session.ChannelMessageSendEmbed(channelID, toEmbed(payload), discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to send status message: %w", classifyDeliveryError(err))
	}

	return message.ID, nil
}

// EditStatus replaces the embed of a subscribed message.
func (p *DiscordStatusPublisher) EditStatus(
	ctx context.Context,
	sub domain.Subscription,
	payload domain.RenderedPayload,
) error {
	if p.session == nil {
		return fmt.Errorf("discord session is not initialised")
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := p.session.ChannelMessageEditEmbed(
		sub.ChannelID,
		sub.MessageID,
		toEmbed(payload),
		discordgo.WithContext(ctx),
	); err != nil {
		return fmt.Errorf("failed to edit status message: %w", classifyDeliveryError(err))
	}

	return nil
}

// UpdatePresence shows text as the bot's "playing" activity.
func (p *DiscordStatusPublisher) UpdatePresence(ctx context.Context, text string) error {
	if p.session == nil {
		return fmt.Errorf("discord session is not initialised")
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	return p.session.UpdateGameStatus(0, text)
}

// ChannelCapabilities resolves the bot's effective permissions in channelID.
func (p *DiscordStatusPublisher) ChannelCapabilities(ctx context.Context, channelID string) (domain.Capabilities, error) {
	if p.session == nil || p.session.State == nil || p.session.State.User == nil {
		return domain.Capabilities{}, fmt.Errorf("discord session is not ready")
	}

	if err := ctx.Err(); err != nil {
		return domain.Capabilities{}, err
	}

	permissions, err := p.session.UserChannelPermissions(p.session.State.User.ID, channelID)
	if err != nil {
		return domain.Capabilities{}, fmt.Errorf("failed to resolve channel permissions: %w", err)
	}

	return capabilitiesFromPermissions(permissions), nil
}

func capabilitiesFromPermissions(permissions int64) domain.Capabilities {
	has := func(flag int64) bool {
		return permissions&discordgo.PermissionAdministrator != 0 || permissions&flag == flag
	}

	return domain.Capabilities{
		ViewChannel:  has(discordgo.PermissionViewChannel),
		SendMessages: has(discordgo.PermissionSendMessages),
		EmbedLinks:   has(discordgo.PermissionEmbedLinks),
	}
}

func toEmbed(payload domain.RenderedPayload) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       payload.Title,
		Description: payload.Description,
		Color:       payload.Color,
		Footer:      &discordgo.MessageEmbedFooter{Text: payload.Footer},
	}

	if payload.AuthorName != "" {
		embed.Author = &discordgo.MessageEmbedAuthor{
			Name:    payload.AuthorName,
			IconURL: payload.AuthorIcon,
		}
	}

	return embed
}

// classifyDeliveryError marks errors meaning the channel or message is gone for good.
func classifyDeliveryError(err error) error {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return err
	}

	if restErr.Message != nil {
		switch restErr.Message.Code {
		case discordgo.ErrCodeUnknownChannel,
			discordgo.ErrCodeUnknownGuild,
			discordgo.ErrCodeUnknownMessage,
			discordgo.ErrCodeMissingAccess,
			discordgo.ErrCodeMissingPermissions:
			return fmt.Errorf("%w: %w", domain.ErrTargetUnreachable, err)
		}
	}

	if restErr.Response != nil {
		switch restErr.Response.StatusCode {
		case http.StatusNotFound, http.StatusForbidden:
			return fmt.Errorf("%w: %w", domain.ErrTargetUnreachable, err)
		}
	}

	return err
}
