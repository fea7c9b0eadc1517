package usecase

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sglre6355/station-herald/internal/domain"
)

const (
	// DefaultAccentColor is the embed color used for a reachable server.
	DefaultAccentColor = 14745344
	// ErrorColor is the embed color used when the server status is unavailable.
	ErrorColor = 0xFF0000

	// TimestampLayout renders HH:MM DD.MM.YYYY.
	TimestampLayout = "15:04 02.01.2006"

	unknownPlaceholder = "Неизвестно"
	lobbyLabel         = "В лобби"
	errorTitle         = "Ошибка"
	errorDescription   = "Не удалось получить данные сервера. Проверьте подключение."
)

// displayZone is the fixed UTC+3 zone every footer timestamp is rendered in.
var displayZone = time.FixedZone("UTC+3", 3*60*60)

// SnapshotRenderer turns a snapshot into the payload shown in Discord.
type SnapshotRenderer struct {
	iconURL     string
	accentColor int
}

// NewSnapshotRenderer builds a renderer using iconURL as the author icon and accentColor for healthy snapshots.
func NewSnapshotRenderer(iconURL string, accentColor int) *SnapshotRenderer {
	return &SnapshotRenderer{
		iconURL:     strings.TrimSpace(iconURL),
		accentColor: accentColor,
	}
}

// Render builds the payload for snap as of now. A nil snap is the unavailable state.
func (r *SnapshotRenderer) Render(snap *domain.Snapshot, now time.Time) domain.RenderedPayload {
	footer := "Обновлено " + FormatTimestamp(now)

	if snap == nil {
		return domain.RenderedPayload{
			Title:       errorTitle,
			Description: errorDescription,
			Color:       ErrorColor,
			Footer:      footer,
		}
	}

	online := intOrUnknown(snap.Players)
	if snap.Players != nil && snap.SoftMaxPlayers != nil {
		online = fmt.Sprintf("%d/%d", *snap.Players, *snap.SoftMaxPlayers)
	}

	var round string
	if snap.RoundID != nil {
		round = strconv.FormatInt(*snap.RoundID, 10)
	} else {
		round = unknownPlaceholder
	}

	lines := []string{
		"Онлайн: " + online,
		"Карта: " + stringOrUnknown(snap.Map),
		"Раунд: " + round,
		"Режим: " + stringOrUnknown(snap.Preset),
		"Время от начала смены: " + RoundDuration(snap.RoundStartTime, now),
	}

	return domain.RenderedPayload{
		Description: strings.Join(lines, "\n"),
		Color:       r.accentColor,
		Footer:      footer,
		AuthorName:  stringOrUnknown(snap.Name),
		AuthorIcon:  r.iconURL,
	}
}

// FormatTimestamp renders t in the fixed UTC+3 zone.
func FormatTimestamp(t time.Time) string {
	return t.In(displayZone).Format(TimestampLayout)
}

// RoundDuration describes how long the round has been running at now.
func RoundDuration(start *time.Time, now time.Time) string {
	if start == nil {
		return lobbyLabel
	}

	minutes := int64(now.Sub(*start) / time.Minute)
	if minutes < 0 {
		minutes = 0
	}

	if hours := minutes / 60; hours > 0 {
		return fmt.Sprintf("%dч %dмин", hours, minutes%60)
	}
	return fmt.Sprintf("%dмин", minutes)
}

func stringOrUnknown(value *string) string {
	if value == nil || strings.TrimSpace(*value) == "" {
		return unknownPlaceholder
	}
	return *value
}

func intOrUnknown(value *int) string {
	if value == nil {
		return unknownPlaceholder
	}
	return strconv.Itoa(*value)
}
