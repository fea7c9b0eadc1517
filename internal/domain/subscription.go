package domain

import "errors"

// Subscription identifies a status message that is kept in sync with the server status.
type Subscription struct {
	ChannelID string
	MessageID string
}

// ErrTargetUnreachable marks a delivery failure that will not recover on its own:
// the channel or message is gone, or the bot lost access to it.
var ErrTargetUnreachable = errors.New("delivery target unreachable")

// Capabilities lists the channel permissions the bot needs to broadcast there.
type Capabilities struct {
	ViewChannel  bool
	SendMessages bool
	EmbedLinks   bool
}
