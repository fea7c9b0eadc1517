package presentation

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"

	"github.com/sglre6355/station-herald/internal/domain"
)

func restError(status, code int) *discordgo.RESTError {
	return &discordgo.RESTError{
		Response: &http.Response{StatusCode: status},
		Message:  &discordgo.APIErrorMessage{Code: code, Message: "test"},
	}
}

func TestClassifyDeliveryError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		permanent bool
	}{
		{"unknown message", restError(http.StatusNotFound, discordgo.ErrCodeUnknownMessage), true},
		{"unknown channel", restError(http.StatusNotFound, discordgo.ErrCodeUnknownChannel), true},
		{"missing access", restError(http.StatusForbidden, discordgo.ErrCodeMissingAccess), true},
		{"missing permissions", restError(http.StatusForbidden, discordgo.ErrCodeMissingPermissions), true},
		{"bare not found", &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusNotFound}}, true},
		{"wrapped rest error", fmt.Errorf("edit: %w", restError(http.StatusNotFound, discordgo.ErrCodeUnknownMessage)), true},
		{"server error", restError(http.StatusBadGateway, 0), false},
		{"rate limited", &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusTooManyRequests}}, false},
		{"network error", errors.New("connection reset by peer"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classified := classifyDeliveryError(tt.err)

			assert.Equal(t, tt.permanent, errors.Is(classified, domain.ErrTargetUnreachable))
			assert.ErrorIs(t, classified, tt.err)
		})
	}
}

func TestCapabilitiesFromPermissions(t *testing.T) {
	assert.Equal(t,
		domain.Capabilities{ViewChannel: true, SendMessages: true, EmbedLinks: true},
		capabilitiesFromPermissions(discordgo.PermissionViewChannel|discordgo.PermissionSendMessages|discordgo.PermissionEmbedLinks),
	)
	assert.Equal(t,
		domain.Capabilities{ViewChannel: true, EmbedLinks: true},
		capabilitiesFromPermissions(discordgo.PermissionViewChannel|discordgo.PermissionEmbedLinks),
	)
	assert.Equal(t,
		domain.Capabilities{ViewChannel: true, SendMessages: true, EmbedLinks: true},
		capabilitiesFromPermissions(discordgo.PermissionAdministrator),
	)
	assert.Equal(t, domain.Capabilities{}, capabilitiesFromPermissions(0))
}

func TestToEmbed(t *testing.T) {
	embed := toEmbed(domain.RenderedPayload{
		Description: "Онлайн: 12/32",
		Color:       14745344,
		Footer:      "Обновлено 00:30 15.03.2025",
		AuthorName:  "Server A",
		AuthorIcon:  "https://example.com/icon.png",
	})

	assert.Equal(t, "Онлайн: 12/32", embed.Description)
	assert.Equal(t, 14745344, embed.Color)
	assert.Equal(t, "Обновлено 00:30 15.03.2025", embed.Footer.Text)
	if assert.NotNil(t, embed.Author) {
		assert.Equal(t, "Server A", embed.Author.Name)
		assert.Equal(t, "https://example.com/icon.png", embed.Author.IconURL)
	}
}

func TestToEmbed_ErrorPayloadHasNoAuthor(t *testing.T) {
	embed := toEmbed(domain.RenderedPayload{Title: "Ошибка", Color: 0xFF0000, Footer: "Обновлено"})

	assert.Equal(t, "Ошибка", embed.Title)
	assert.Nil(t, embed.Author)
}
