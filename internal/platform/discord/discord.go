package discord

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/troupehq/troupe/internal/platform"
)

const (
	busyReactionEmoji = "✨"
	inboundBuffer     = 256

	// Single-call fetch ceiling imposed by the platform.
	maxHistoryFetch = 100
)

// Adapter connects the pipeline to Discord through one gateway session. It
// implements the platform capabilities: inbound delivery, history fetch,
// plain and persona sends, and the busy marker.
type Adapter struct {
	logger  *slog.Logger
	session *discordgo.Session
	inbound chan platform.Message

	webhooks  *webhookCache
	galleries *galleryState
}

var (
	_ platform.History        = (*Adapter)(nil)
	_ platform.Sender         = (*Adapter)(nil)
	_ platform.PersonaSender  = (*Adapter)(nil)
	_ platform.ProgressMarker = (*Adapter)(nil)
	_ platform.Inbound        = (*Adapter)(nil)
)

func NewAdapter(log *slog.Logger, token string) (*Adapter, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsAll

	a := &Adapter{
		logger:    log.With(slog.String("service", "discord")),
		session:   session,
		inbound:   make(chan platform.Message, inboundBuffer),
		webhooks:  newWebhookCache(),
		galleries: newGalleryState(),
	}
	session.AddHandler(a.onMessageCreate)
	session.AddHandler(a.onInteractionCreate)
	return a, nil
}

// Open starts the gateway connection.
func (a *Adapter) Open(ctx context.Context) error {
	if err := a.session.Open(); err != nil {
		return fmt.Errorf("discord open connection: %w", err)
	}
	a.logger.Info("gateway connected", slog.String("user", a.session.State.User.Username))
	return nil
}

// Close ends the gateway connection and the inbound channel.
func (a *Adapter) Close() error {
	err := a.session.Close()
	close(a.inbound)
	return err
}

// Inbound delivers normalized messages to the trigger resolver.
func (a *Adapter) Inbound() <-chan platform.Message {
	return a.inbound
}

func (a *Adapter) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.ID == s.State.User.ID {
		return
	}
	if strings.TrimSpace(m.Content) == "" && len(m.Attachments) == 0 {
		return
	}

	msg := a.normalize(m.Message)
	select {
	case a.inbound <- msg:
	default:
		a.logger.Warn("inbound buffer full, dropping message", slog.String("channel", m.ChannelID))
	}
}

// normalize maps a raw Discord message onto the pipeline's message shape.
// Webhook-originated messages are forwarded with the flag set so the
// resolver can ignore persona echoes.
func (a *Adapter) normalize(m *discordgo.Message) platform.Message {
	msg := platform.Message{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		GuildID:   m.GuildID,
		Author: platform.Author{
			ID:   m.Author.ID,
			Name: displayName(m),
			Bot:  m.Author.Bot,
		},
		Content:    m.Content,
		IsDM:       m.GuildID == "",
		Webhook:    m.WebhookID != "",
		ReceivedAt: time.Now().UTC(),
	}

	if ref := m.ReferencedMessage; ref != nil && ref.Author != nil {
		msg.ReplyToID = ref.ID
		msg.ReplyToAuthor = ref.Author.Username
	}

	for _, att := range m.Attachments {
		msg.Attachments = append(msg.Attachments, platform.Attachment{
			ID:          att.ID,
			URL:         att.URL,
			Filename:    att.Filename,
			ContentType: att.ContentType,
		})
	}

	if ch, err := a.channel(m.ChannelID); err == nil {
		if ch.IsThread() {
			msg.IsThread = true
			msg.ParentChannelID = ch.ParentID
		}
		if ch.Type == discordgo.ChannelTypeDM {
			msg.IsDM = true
		}
	}
	return msg
}

func displayName(m *discordgo.Message) string {
	if m.Member != nil && m.Member.Nick != "" {
		return m.Member.Nick
	}
	if m.Author.GlobalName != "" {
		return m.Author.GlobalName
	}
	return m.Author.Username
}

func (a *Adapter) channel(channelID string) (*discordgo.Channel, error) {
	if ch, err := a.session.State.Channel(channelID); err == nil {
		return ch, nil
	}
	return a.session.Channel(channelID)
}

// History fetches recent channel messages, newest first.
func (a *Adapter) History(ctx context.Context, channelID string, limit int) ([]platform.Message, error) {
	if limit <= 0 || limit > maxHistoryFetch {
		limit = maxHistoryFetch
	}
	raw, err := a.session.ChannelMessages(channelID, limit, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}

	messages := make([]platform.Message, 0, len(raw))
	for _, m := range raw {
		if m.Author == nil {
			continue
		}
		messages = append(messages, a.normalize(m))
	}
	return messages, nil
}

// SendChannel posts plain text as the host account.
func (a *Adapter) SendChannel(ctx context.Context, channelID, text string) error {
	_, err := a.session.ChannelMessageSend(channelID, text, discordgo.WithContext(ctx))
	return err
}

// SendDM opens (or reuses) the user's DM channel and posts there.
func (a *Adapter) SendDM(ctx context.Context, userID, text string) error {
	ch, err := a.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("open dm channel: %w", err)
	}
	_, err = a.session.ChannelMessageSend(ch.ID, text, discordgo.WithContext(ctx))
	return err
}

// MarkBusy puts the busy reaction on the triggering message and starts the
// typing indicator for immediate feedback.
func (a *Adapter) MarkBusy(ctx context.Context, channelID, messageID string) error {
	if err := a.session.ChannelTyping(channelID, discordgo.WithContext(ctx)); err != nil {
		a.logger.Debug("typing indicator failed", slog.Any("error", err))
	}
	return a.session.MessageReactionAdd(channelID, messageID, busyReactionEmoji, discordgo.WithContext(ctx))
}

// ClearBusy removes the busy reaction.
func (a *Adapter) ClearBusy(ctx context.Context, channelID, messageID string) error {
	return a.session.MessageReactionRemove(channelID, messageID, busyReactionEmoji, "@me", discordgo.WithContext(ctx))
}
