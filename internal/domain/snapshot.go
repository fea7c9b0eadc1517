package domain

import "time"

// Snapshot is one reading of the game server status endpoint.
// Optional fields are nil when the endpoint omitted them.
type Snapshot struct {
	Players        *int
	SoftMaxPlayers *int
	Map            *string
	RoundID        *int64
	Preset         *string
	Name           *string
	RoundStartTime *time.Time
}

// RenderedPayload is the display form of a snapshot shared by every subscribed message.
type RenderedPayload struct {
	Title       string
	Description string
	Color       int
	Footer      string
	AuthorName  string
	AuthorIcon  string
}
