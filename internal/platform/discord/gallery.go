package discord

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/troupehq/troupe/internal/platform"
)

const galleryTitle = "Image Gallery"

const (
	galleryPrev    = "prev"
	galleryNext    = "next"
	galleryShuffle = "shuffle"
	galleryClose   = "close"
)

type gallery struct {
	images []string
	index  int
}

// apply advances the gallery for one button action and reports whether the
// gallery closed. Previous and next wrap at both ends.
func (g *gallery) apply(action string) bool {
	switch action {
	case galleryPrev:
		g.index--
		if g.index < 0 {
			g.index = len(g.images) - 1
		}
	case galleryNext:
		g.index++
		if g.index >= len(g.images) {
			g.index = 0
		}
	case galleryShuffle:
		g.index = rand.Intn(len(g.images))
	case galleryClose:
		return true
	}
	return false
}

// galleryState tracks open galleries by message id so button presses can
// page them after the send returns.
type galleryState struct {
	mu        sync.Mutex
	galleries map[string]*gallery
}

func newGalleryState() *galleryState {
	return &galleryState{galleries: make(map[string]*gallery)}
}

// SendPersonaGallery posts URL images as one paged embed with
// previous/next/shuffle/close controls. Paging wraps at both ends.
func (a *Adapter) SendPersonaGallery(ctx context.Context, target platform.Target, persona platform.Persona, imageURLs []string) error {
	if len(imageURLs) == 0 {
		return nil
	}

	g := &gallery{images: imageURLs}
	msg, err := a.execute(ctx, target, true, &discordgo.WebhookParams{
		Username:   persona.Name,
		AvatarURL:  persona.AvatarURL,
		Embeds:     []*discordgo.MessageEmbed{galleryEmbed(g, "")},
		Components: galleryComponents(false),
	})
	if err != nil {
		return fmt.Errorf("send gallery: %w", err)
	}

	a.galleries.mu.Lock()
	a.galleries.galleries[msg.ID] = g
	a.galleries.mu.Unlock()
	return nil
}

func galleryEmbed(g *gallery, footer string) *discordgo.MessageEmbed {
	if footer == "" {
		footer = fmt.Sprintf("Page %d/%d", g.index+1, len(g.images))
	}
	return &discordgo.MessageEmbed{
		Title:  galleryTitle,
		Color:  0x3498db,
		Image:  &discordgo.MessageEmbedImage{URL: g.images[g.index]},
		Footer: &discordgo.MessageEmbedFooter{Text: footer},
	}
}

func galleryComponents(disabled bool) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{Label: "◀", Style: discordgo.PrimaryButton, CustomID: "gallery:" + galleryPrev, Disabled: disabled},
			discordgo.Button{Label: "▶", Style: discordgo.PrimaryButton, CustomID: "gallery:" + galleryNext, Disabled: disabled},
			discordgo.Button{Label: "🔀", Style: discordgo.SecondaryButton, CustomID: "gallery:" + galleryShuffle, Disabled: disabled},
			discordgo.Button{Label: "❌", Style: discordgo.DangerButton, CustomID: "gallery:" + galleryClose, Disabled: disabled},
		}},
	}
}

func (a *Adapter) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionMessageComponent {
		return
	}
	action, ok := strings.CutPrefix(i.MessageComponentData().CustomID, "gallery:")
	if !ok || i.Message == nil {
		return
	}

	a.galleries.mu.Lock()
	g, found := a.galleries.galleries[i.Message.ID]
	if !found {
		a.galleries.mu.Unlock()
		return
	}

	closed := g.apply(action)
	if closed {
		delete(a.galleries.galleries, i.Message.ID)
	}

	footer := ""
	if closed {
		footer = "Gallery closed"
	}
	embed := galleryEmbed(g, footer)
	a.galleries.mu.Unlock()

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{embed},
			Components: galleryComponents(closed),
		},
	})
	if err != nil {
		a.logger.Warn("gallery interaction failed", slog.String("action", action), slog.Any("error", err))
	}
}
