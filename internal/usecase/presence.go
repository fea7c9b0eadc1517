package usecase

import (
	"fmt"

	"github.com/sglre6355/station-herald/internal/domain"
)

// UnavailablePresence is shown as the bot presence when the player counts are unknown.
const UnavailablePresence = "Сервер недоступен"

// PresenceText derives the short presence string for snap.
func PresenceText(snap *domain.Snapshot) string {
	if snap == nil || snap.Players == nil || snap.SoftMaxPlayers == nil {
		return UnavailablePresence
	}
	return fmt.Sprintf("%d/%d", *snap.Players, *snap.SoftMaxPlayers)
}
