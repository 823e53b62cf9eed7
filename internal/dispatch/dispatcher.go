package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/troupehq/troupe/internal/pipeline"
	"github.com/troupehq/troupe/internal/platform"
)

// ChunkSize is the per-message character ceiling on outgoing text.
const ChunkSize = 1999

// Dispatcher converts finished pipeline items into platform sends: plain
// messages for errors, chunked DMs for direct and default-formatted
// traffic, persona webhooks for everything else.
type Dispatcher struct {
	logger  *slog.Logger
	sender  platform.Sender
	persona platform.PersonaSender
}

var _ pipeline.ResponseSender = (*Dispatcher)(nil)

func NewDispatcher(log *slog.Logger, sender platform.Sender, persona platform.PersonaSender) *Dispatcher {
	return &Dispatcher{
		logger:  log.With(slog.String("service", "dispatch")),
		sender:  sender,
		persona: persona,
	}
}

// Dispatch delivers one item. Image failures degrade to a warning after the
// text chunks have gone out; they never claw back what was already sent.
func (d *Dispatcher) Dispatch(ctx context.Context, item pipeline.Item) error {
	if item.Error != "" {
		return d.sendPlain(ctx, item, "[System Note: "+Neutralize(item.Error)+"]")
	}

	text := Neutralize(stripSpeakerPrefix(item.Result, item.Persona.Name))
	if text == "" && len(item.Images) == 0 {
		d.logger.Warn("empty result, nothing to send", slog.String("channel", item.Source.ChannelID))
		return nil
	}

	if item.DM || item.Default {
		for _, chunk := range Chunk(text, ChunkSize) {
			if err := d.sender.SendDM(ctx, item.Source.Author.ID, chunk); err != nil {
				return fmt.Errorf("send dm chunk: %w", err)
			}
		}
		d.sendImagesDM(ctx, item)
		return nil
	}

	target := targetFor(item.Source)
	for _, chunk := range Chunk(text, ChunkSize) {
		if err := d.persona.SendPersona(ctx, target, item.Persona, chunk); err != nil {
			return fmt.Errorf("send persona chunk: %w", err)
		}
	}
	d.sendImages(ctx, target, item)
	return nil
}

func (d *Dispatcher) sendPlain(ctx context.Context, item pipeline.Item, text string) error {
	if item.Source.IsDM {
		return d.sender.SendDM(ctx, item.Source.Author.ID, text)
	}
	return d.sender.SendChannel(ctx, item.Source.ChannelID, text)
}

// targetFor addresses the send. Thread messages go through the parent
// channel's webhook with the thread named explicitly.
func targetFor(msg platform.Message) platform.Target {
	if msg.IsThread && msg.ParentChannelID != "" {
		return platform.Target{ChannelID: msg.ParentChannelID, ThreadID: msg.ChannelID}
	}
	return platform.Target{ChannelID: msg.ChannelID}
}

// Neutralize defangs broad mention tokens with a zero-width space so
// generated text can never ping a whole server.
func Neutralize(text string) string {
	text = strings.ReplaceAll(text, "@everyone", "@​everyone")
	return strings.ReplaceAll(text, "@here", "@​here")
}

// stripSpeakerPrefix drops a leading "Name:" echo of the character's own
// reply framing.
func stripSpeakerPrefix(text, name string) string {
	if name == "" {
		return strings.TrimSpace(text)
	}
	trimmed := strings.TrimSpace(text)
	if rest, ok := strings.CutPrefix(trimmed, name+":"); ok {
		return strings.TrimSpace(rest)
	}
	return trimmed
}

// Chunk splits text into ordered pieces of at most size runes. Every chunk
// but the last is exactly size runes, cuts always land on rune boundaries,
// and concatenating the chunks reconstructs the input. The platform counts
// message length in characters, not bytes, so the split must too.
func Chunk(text string, size int) []string {
	if text == "" {
		return nil
	}
	chunks := make([]string, 0, len(text)/size+1)
	start, count := 0, 0
	for i := range text {
		if count == size {
			chunks = append(chunks, text[start:i])
			start = i
			count = 0
		}
		count++
	}
	return append(chunks, text[start:])
}
