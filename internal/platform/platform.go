package platform

import "context"

// History fetches recent messages for a channel, newest first, bounded by
// limit. Implementations must apply a timeout to the underlying call.
type History interface {
	History(ctx context.Context, channelID string, limit int) ([]Message, error)
}

// Sender sends plain text as the host account.
type Sender interface {
	SendChannel(ctx context.Context, channelID, text string) error
	SendDM(ctx context.Context, userID, text string) error
}

// PersonaSender sends text, galleries, and files through a per-channel
// persona identity. Provisioning the identity is idempotent per channel.
type PersonaSender interface {
	SendPersona(ctx context.Context, target Target, persona Persona, text string) error
	SendPersonaGallery(ctx context.Context, target Target, persona Persona, imageURLs []string) error
	SendPersonaFiles(ctx context.Context, target Target, persona Persona, paths []string) error
}

// ProgressMarker marks a message as being worked on, and clears the mark
// once a reply has been dispatched.
type ProgressMarker interface {
	MarkBusy(ctx context.Context, channelID, messageID string) error
	ClearBusy(ctx context.Context, channelID, messageID string) error
}

// Inbound delivers platform events as an explicit message stream. The
// channel is closed when the platform connection shuts down.
type Inbound interface {
	Inbound() <-chan Message
}
