package presentation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/sglre6355/station-herald/internal/usecase"
)

const (
	commandPing      = "ping"
	commandStatus    = "status"
	commandBroadcast = "broadcast"

	broadcastChannelOption = "channel"

	interactionTimeout = 30 * time.Second
)

var administratorPermission int64 = discordgo.PermissionAdministrator

// StatusBot wires Discord events to application use cases.
type StatusBot struct {
	session     *discordgo.Session
	status      *usecase.StatusUsecase
	registrar   *usecase.Registrar
	broadcaster *usecase.BroadcastSynchronizer
}

// NewStatusBot constructs a bot instance with all supporting services wired up.
func NewStatusBot(
	session *discordgo.Session,
	status *usecase.StatusUsecase,
	registrar *usecase.Registrar,
	broadcaster *usecase.BroadcastSynchronizer,
) (*StatusBot, error) {
	if session == nil {
		return nil, fmt.Errorf("discord session cannot be nil")
	}
	if status == nil {
		return nil, fmt.Errorf("status use case cannot be nil")
	}
	if registrar == nil {
		return nil, fmt.Errorf("registrar cannot be nil")
	}
	if broadcaster == nil {
		return nil, fmt.Errorf("broadcast synchronizer cannot be nil")
	}

	bot := &StatusBot{
		session:     session,
		status:      status,
		registrar:   registrar,
		broadcaster: broadcaster,
	}

	session.AddHandler(bot.onReady)
	session.AddHandler(bot.onInteractionCreate)

	session.Identify.Intents = discordgo.IntentsGuilds

	return bot, nil
}

// Start establishes the connection to Discord and begins refreshing subscribed messages.
func (b *StatusBot) Start(ctx context.Context) error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}

	if err := b.broadcaster.Start(ctx); err != nil {
		return fmt.Errorf("failed to start broadcasting: %w", err)
	}

	slog.Info("Status bot is running!")
	return nil
}

// Stop halts broadcasting and closes the Discord session.
func (b *StatusBot) Stop() {
	if b.broadcaster != nil {
		b.broadcaster.Shutdown()
	}

	if b.session != nil {
		if err := b.session.Close(); err != nil {
			slog.Error("failed to close Discord session", slog.Any("error", err))
		}
	}
}

func (b *StatusBot) onReady(s *discordgo.Session, event *discordgo.Ready) {
	slog.Info("Logged in", slog.String("user", event.User.Username), slog.Int("guilds", len(event.Guilds)))
}

func (b *StatusBot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	switch i.ApplicationCommandData().Name {
	case commandPing:
		b.handlePing(s, i)
	case commandStatus:
		b.handleStatus(s, i)
	case commandBroadcast:
		b.handleBroadcast(s, i)
	}
}

// RegisterCommands recreates the slash commands used by the bot.
func (b *StatusBot) RegisterCommands() error {
	if _, err := b.session.ApplicationCommandBulkOverwrite(b.session.State.User.ID, "", Commands()); err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}
	return nil
}

// Commands lists the slash commands exposed by the bot.
func Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        commandPing,
			Description: "Проверить, что бот на связи",
		},
		{
			Name:        commandStatus,
			Description: "Показать статус сервера",
		},
		{
			Name:                     commandBroadcast,
			Description:              "Транслировать статус сервера в канал",
			DefaultMemberPermissions: &administratorPermission,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:         discordgo.ApplicationCommandOptionChannel,
					Name:         broadcastChannelOption,
					Description:  "Канал для трансляции статуса",
					ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildNews},
					Required:     true,
				},
			},
		},
	}
}

func (b *StatusBot) handlePing(s *discordgo.Session, i *discordgo.InteractionCreate) {
	b.respondEphemeral(s, i, fmt.Sprintf("Понг! Задержка: %d мс", s.HeartbeatLatency().Milliseconds()))
}

func (b *StatusBot) handleStatus(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	}); err != nil {
		slog.Error("failed to defer interaction", slog.Any("error", err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
	defer cancel()

	payload := b.status.Current(ctx)

	if _, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Embeds: []*discordgo.MessageEmbed{toEmbed(payload)},
		Flags:  discordgo.MessageFlagsEphemeral,
	}); err != nil {
		slog.Error("failed to send followup", slog.Any("error", err))
	}
}

func (b *StatusBot) handleBroadcast(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !isAdministrator(i.Interaction) {
		b.respondEphemeral(s, i, replyNotAdministrator)
		return
	}

	var channelID string
	for _, option := range i.ApplicationCommandData().Options {
		if option.Name == broadcastChannelOption {
			channelID = option.ChannelValue(nil).ID
		}
	}
	if channelID == "" {
		b.respondEphemeral(s, i, replyChannelUnresolvable)
		return
	}

	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	}); err != nil {
		slog.Error("failed to defer interaction", slog.Any("error", err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
	defer cancel()

	sub, err := b.registrar.Register(ctx, channelID)
	if err != nil {
		slog.Warn("broadcast registration refused", slog.String("channel", channelID), slog.Any("error", err))
	} else {
		slog.Info("broadcast registered", slog.String("channel", sub.ChannelID), slog.String("message", sub.MessageID))
	}

	if _, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Content: registrationReply(channelID, err),
		Flags:   discordgo.MessageFlagsEphemeral,
	}); err != nil {
		slog.Error("failed to send followup", slog.Any("error", err))
	}
}

func (b *StatusBot) respondEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, message string) {
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: message,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	}); err != nil {
		slog.Error("failed to respond to interaction", slog.Any("error", err))
	}
}

func isAdministrator(i *discordgo.Interaction) bool {
	if i == nil || i.Member == nil {
		return false
	}
	return i.Member.Permissions&discordgo.PermissionAdministrator != 0
}

const (
	replyNotAdministrator     = "Эта команда доступна только администраторам."
	replyChannelUnresolvable  = "Не удалось найти указанный канал."
	replyMissingViewChannel   = "У бота нет права просматривать этот канал."
	replyMissingSendMessages  = "У бота нет права отправлять сообщения в этот канал."
	replyMissingEmbedLinks    = "У бота нет права встраивать ссылки в этом канале."
	replyInitialSendFailed    = "Не удалось отправить сообщение со статусом в канал."
	replyRegistrationFailed   = "Не удалось запустить трансляцию статуса."
	replyRegistrationAccepted = "Статус сервера теперь транслируется в <#%s>."
)

func registrationReply(channelID string, err error) string {
	switch {
	case err == nil:
		return fmt.Sprintf(replyRegistrationAccepted, channelID)
	case errors.Is(err, usecase.ErrMissingViewChannel):
		return replyMissingViewChannel
	case errors.Is(err, usecase.ErrMissingSendMessages):
		return replyMissingSendMessages
	case errors.Is(err, usecase.ErrMissingEmbedLinks):
		return replyMissingEmbedLinks
	case errors.Is(err, usecase.ErrChannelUnresolvable):
		return replyChannelUnresolvable
	case errors.Is(err, usecase.ErrInitialSendFailed):
		return replyInitialSendFailed
	default:
		return replyRegistrationFailed
	}
}
