package pipeline

import (
	"context"

	"github.com/troupehq/troupe/internal/dimension"
	"github.com/troupehq/troupe/internal/platform"
)

// Item is the unit of work carried through the pipeline. Trigger
// resolution fills the routing half; the worker fills the generation half.
// Exactly one of Result and Error is set after generation.
type Item struct {
	Source    platform.Message
	Character string
	Persona   platform.Persona
	Dimension dimension.Dimension

	// DM marks a reply that answers a direct message. Default requests the
	// same plain author-addressed delivery for a message that did not
	// arrive as a DM.
	DM      bool
	Default bool

	Prompt string
	Result string
	Error  string
	Images []string
	Stop   []string
}

// ResponseSender delivers a finished item to the platform. The dispatcher
// implements this; the indirection keeps generation free of send concerns.
type ResponseSender interface {
	Dispatch(ctx context.Context, item Item) error
}
