package discord

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/troupehq/troupe/internal/platform"
)

const webhookName = "troupe-persona"

// webhookCache holds one persona webhook per channel. Provisioning is
// idempotent and safe to race across channels; the double check keeps two
// concurrent sends on the same channel from creating two webhooks.
type webhookCache struct {
	mu       sync.RWMutex
	webhooks map[string]*discordgo.Webhook
}

func newWebhookCache() *webhookCache {
	return &webhookCache{webhooks: make(map[string]*discordgo.Webhook)}
}

func (a *Adapter) webhookFor(ctx context.Context, channelID string) (*discordgo.Webhook, error) {
	a.webhooks.mu.RLock()
	wh, ok := a.webhooks.webhooks[channelID]
	a.webhooks.mu.RUnlock()
	if ok {
		return wh, nil
	}

	a.webhooks.mu.Lock()
	defer a.webhooks.mu.Unlock()
	if wh, ok := a.webhooks.webhooks[channelID]; ok {
		return wh, nil
	}

	existing, err := a.session.ChannelWebhooks(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("list webhooks: %w", err)
	}
	for _, candidate := range existing {
		if candidate.User != nil && candidate.User.ID == a.session.State.User.ID {
			a.webhooks.webhooks[channelID] = candidate
			return candidate, nil
		}
	}

	created, err := a.session.WebhookCreate(channelID, webhookName, "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("create webhook: %w", err)
	}
	a.logger.Info("provisioned persona webhook", slog.String("channel", channelID))
	a.webhooks.webhooks[channelID] = created
	return created, nil
}

// execute sends webhook params at the target, routing through the parent
// channel's webhook with an explicit thread id for thread targets.
func (a *Adapter) execute(ctx context.Context, target platform.Target, wait bool, params *discordgo.WebhookParams) (*discordgo.Message, error) {
	wh, err := a.webhookFor(ctx, target.ChannelID)
	if err != nil {
		return nil, err
	}
	if target.ThreadID != "" {
		return a.session.WebhookThreadExecute(wh.ID, wh.Token, wait, target.ThreadID, params, discordgo.WithContext(ctx))
	}
	return a.session.WebhookExecute(wh.ID, wh.Token, wait, params, discordgo.WithContext(ctx))
}

// SendPersona posts text under the character's name and avatar.
func (a *Adapter) SendPersona(ctx context.Context, target platform.Target, persona platform.Persona, text string) error {
	_, err := a.execute(ctx, target, false, &discordgo.WebhookParams{
		Content:   text,
		Username:  persona.Name,
		AvatarURL: persona.AvatarURL,
	})
	return err
}

// SendPersonaFiles posts local files as direct attachments under the
// persona identity.
func (a *Adapter) SendPersonaFiles(ctx context.Context, target platform.Target, persona platform.Persona, paths []string) error {
	files := make([]*discordgo.File, 0, len(paths))
	handles := make([]*os.File, 0, len(paths))
	defer func() {
		for _, h := range handles {
			h.Close()
		}
	}()

	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open attachment: %w", err)
		}
		handles = append(handles, f)
		files = append(files, &discordgo.File{Name: filepath.Base(path), Reader: f})
	}

	_, err := a.execute(ctx, target, false, &discordgo.WebhookParams{
		Username:  persona.Name,
		AvatarURL: persona.AvatarURL,
		Files:     files,
	})
	return err
}
