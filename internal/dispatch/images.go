package dispatch

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/troupehq/troupe/internal/pipeline"
	"github.com/troupehq/troupe/internal/platform"
)

const imageWarning = "[System Note: Some attached images could not be delivered.]"

// splitImageRefs classifies image references into remote URLs, readable
// local files, and everything else.
func splitImageRefs(refs []string) (urls, files, bad []string) {
	for _, ref := range refs {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			continue
		}
		if isHTTPURL(ref) {
			urls = append(urls, ref)
			continue
		}
		if info, err := os.Stat(ref); err == nil && !info.IsDir() {
			files = append(files, ref)
			continue
		}
		bad = append(bad, ref)
	}
	return urls, files, bad
}

func isHTTPURL(ref string) bool {
	u, err := url.Parse(ref)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// sendImages delivers an item's images to a persona target: URL refs as
// one paged gallery, local files as direct attachments. Failures degrade
// to a warning message instead of aborting delivery.
func (d *Dispatcher) sendImages(ctx context.Context, target platform.Target, item pipeline.Item) {
	urls, files, bad := splitImageRefs(item.Images)
	failed := len(bad) > 0

	if len(urls) > 0 {
		if err := d.persona.SendPersonaGallery(ctx, target, item.Persona, urls); err != nil {
			d.logger.Warn("gallery send failed", slog.Int("count", len(urls)), slog.Any("error", err))
			failed = true
		}
	}
	if len(files) > 0 {
		if err := d.persona.SendPersonaFiles(ctx, target, item.Persona, files); err != nil {
			d.logger.Warn("file send failed", slog.Int("count", len(files)), slog.Any("error", err))
			failed = true
		}
	}

	if failed {
		if err := d.sender.SendChannel(ctx, item.Source.ChannelID, imageWarning); err != nil {
			d.logger.Warn("image warning send failed", slog.Any("error", err))
		}
	}
}

// sendImagesDM mirrors sendImages for the direct-message route, where no
// persona webhook exists: URLs go out as plain links.
func (d *Dispatcher) sendImagesDM(ctx context.Context, item pipeline.Item) {
	urls, _, bad := splitImageRefs(item.Images)
	if len(urls) > 0 {
		if err := d.sender.SendDM(ctx, item.Source.Author.ID, strings.Join(urls, "\n")); err != nil {
			d.logger.Warn("dm image send failed", slog.Any("error", err))
			bad = append(bad, urls...)
		}
	}
	if len(bad) > 0 {
		if err := d.sender.SendDM(ctx, item.Source.Author.ID, imageWarning); err != nil {
			d.logger.Warn("image warning send failed", slog.Any("error", err))
		}
	}
}
