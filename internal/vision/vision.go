package vision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/troupehq/troupe/internal/platform"
	"github.com/troupehq/troupe/internal/settings"
	"github.com/troupehq/troupe/internal/store"
	"github.com/troupehq/troupe/internal/trigger"
)

const (
	captionPrompt  = "Describe this image in two or three sentences. Mention any visible text."
	captionTimeout = 2 * time.Minute
	linkTimeout    = 30 * time.Second

	// Shown in place of a description when the multimodal call fails.
	// The bracketed form keeps it out of the caption cache.
	captionFailure = "[Error generating image description]"
)

// Captioner describes image attachments through the multimodal endpoint
// and summarizes shared video links from their page metadata. Both paths
// cache by message id, so a message is analyzed once no matter how often
// it reappears in history.
type Captioner struct {
	logger   *slog.Logger
	store    store.Store
	settings *settings.Service
	web      *http.Client
}

func NewCaptioner(log *slog.Logger, st store.Store, svc *settings.Service) *Captioner {
	return &Captioner{
		logger:   log.With(slog.String("service", "vision")),
		store:    st,
		settings: svc,
		web:      &http.Client{Timeout: linkTimeout},
	}
}

// Caption resolves a description for the message: the first image
// attachment when one exists, otherwise a summary of a shared video link.
// The second return is false when the message carries neither or the
// description cannot be produced.
func (c *Captioner) Caption(ctx context.Context, msg platform.Message) (string, bool) {
	if msg.HasImageAttachment() {
		return c.imageCaption(ctx, msg)
	}
	if link := trigger.VideoLink(msg.Content); link != "" {
		return c.linkCaption(ctx, msg, link)
	}
	return "", false
}

func (c *Captioner) imageCaption(ctx context.Context, msg platform.Message) (string, bool) {
	if cached, ok := c.cached(ctx, msg.ID); ok {
		return cached, true
	}

	cfg, err := c.settings.Load(ctx)
	if err != nil || !cfg.MultimodalEnabled {
		return "", false
	}

	caption, err := c.describe(ctx, cfg.MultimodalGeneration(), firstImageURL(msg))
	if err != nil {
		c.logger.Warn("image description failed", slog.String("message", msg.ID), slog.Any("error", err))
		return captionFailure, true
	}

	c.remember(ctx, msg.ID, caption)
	return caption, true
}

// linkCaption reduces the page behind a video link to its title and meta
// description. Fetch failures are silent; the message still reads fine
// without the summary.
func (c *Captioner) linkCaption(ctx context.Context, msg platform.Message, url string) (string, bool) {
	if cached, ok := c.cached(ctx, msg.ID); ok {
		return cached, true
	}

	summary, err := c.fetchLinkSummary(ctx, url)
	if err != nil {
		c.logger.Debug("link summary failed", slog.String("url", url), slog.Any("error", err))
		return "", false
	}
	if summary == "" {
		return "", false
	}

	c.remember(ctx, msg.ID, summary)
	return summary, true
}

func (c *Captioner) cached(ctx context.Context, messageID string) (string, bool) {
	cached, err := c.store.GetCaption(ctx, messageID)
	if err == nil {
		return cached, true
	}
	if !errors.Is(err, store.ErrNotFound) {
		c.logger.Warn("caption cache read failed", slog.String("message", messageID), slog.Any("error", err))
	}
	return "", false
}

func (c *Captioner) remember(ctx context.Context, messageID, caption string) {
	if err := c.store.SetCaption(ctx, messageID, caption); err != nil {
		c.logger.Warn("caption cache write failed", slog.String("message", messageID), slog.Any("error", err))
	}
}

func (c *Captioner) fetchLinkSummary(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.web.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("link fetch: status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", err
	}
	title := strings.TrimSpace(doc.Find("title").First().Text())
	desc, _ := doc.Find(`meta[name="description"]`).Attr("content")
	return strings.TrimSpace(title + " " + strings.TrimSpace(desc)), nil
}

func (c *Captioner) describe(ctx context.Context, gen settings.Generation, imageURL string) (string, error) {
	client := openai.NewClient(
		option.WithAPIKey(gen.APIKey),
		option.WithBaseURL(gen.Endpoint),
	)

	parts := []openai.ChatCompletionContentPartUnionParam{
		{OfText: &openai.ChatCompletionContentPartTextParam{Text: captionPrompt}},
		{OfImageURL: &openai.ChatCompletionContentPartImageParam{
			ImageURL: openai.ChatCompletionContentPartImageImageURLParam{URL: imageURL},
		}},
	}

	callCtx, cancel := context.WithTimeout(ctx, captionTimeout)
	defer cancel()

	completion, err := client.Chat.Completions.New(callCtx, openai.ChatCompletionNewParams{
		Model: gen.Model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{OfArrayOfContentParts: parts},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("multimodal completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("multimodal completion returned no choices")
	}
	return completion.Choices[0].Message.Content, nil
}

func firstImageURL(msg platform.Message) string {
	for _, att := range msg.Attachments {
		if len(att.ContentType) >= 6 && att.ContentType[:6] == "image/" {
			return att.URL
		}
	}
	return ""
}
