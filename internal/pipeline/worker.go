package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/troupehq/troupe/internal/generate"
	"github.com/troupehq/troupe/internal/platform"
	"github.com/troupehq/troupe/internal/plugin"
	"github.com/troupehq/troupe/internal/prompt"
	"github.com/troupehq/troupe/internal/settings"
	"github.com/troupehq/troupe/internal/store"
	"github.com/troupehq/troupe/internal/trigger"
)

// A user message sometimes arrives as "Name: text"; the speaker prefix is
// already carried by the history framing, so it is stripped here.
var speakerPrefixPattern = regexp.MustCompile(`^[^\s:]+:\s*`)

// Captioner resolves attachment descriptions and link summaries for
// history formatting and the current user line.
type Captioner interface {
	Caption(ctx context.Context, msg platform.Message) (string, bool)
}

// Generator produces completion text for an assembled prompt.
type Generator interface {
	Generate(ctx context.Context, gen settings.Generation, req generate.Request) (string, error)
}

// Worker is the single queue consumer. One item at a time, in submission
// order; a failure on one item never stops the loop or loses later items.
type Worker struct {
	logger    *slog.Logger
	queue     *Queue
	store     store.Store
	settings  *settings.Service
	registry  *plugin.Registry
	assembler *prompt.Assembler
	generator Generator
	history   platform.History
	marker    platform.ProgressMarker
	captioner Captioner
	sender    ResponseSender
}

func NewWorker(
	log *slog.Logger,
	q *Queue,
	st store.Store,
	svc *settings.Service,
	reg *plugin.Registry,
	asm *prompt.Assembler,
	gen Generator,
	hist platform.History,
	marker platform.ProgressMarker,
	captioner Captioner,
	sender ResponseSender,
) *Worker {
	return &Worker{
		logger:    log.With(slog.String("service", "worker")),
		queue:     q,
		store:     st,
		settings:  svc,
		registry:  reg,
		assembler: asm,
		generator: gen,
		history:   hist,
		marker:    marker,
		captioner: captioner,
		sender:    sender,
	}
}

// Run drains the queue until it is closed.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("generation worker started")
	for {
		item, ok := w.queue.Pop()
		if !ok {
			w.logger.Info("generation worker stopped")
			return
		}
		w.handle(ctx, item)
	}
}

func (w *Worker) handle(ctx context.Context, item Item) {
	defer func() {
		if rec := recover(); rec != nil {
			w.logger.Error("worker panic", slog.Any("panic", rec), slog.String("channel", item.Source.ChannelID))
		}
	}()

	if err := w.marker.MarkBusy(ctx, item.Source.ChannelID, item.Source.ID); err != nil {
		w.logger.Debug("mark busy", slog.Any("error", err))
	}
	defer func() {
		if err := w.marker.ClearBusy(ctx, item.Source.ChannelID, item.Source.ID); err != nil {
			w.logger.Debug("clear busy", slog.Any("error", err))
		}
	}()

	done := w.process(ctx, &item)
	if !done {
		return
	}
	if err := w.sender.Dispatch(ctx, item); err != nil {
		w.logger.Error("dispatch failed", slog.String("channel", item.Source.ChannelID), slog.Any("error", err))
	}
}

// process fills the generation half of the item. It returns false only
// when there is genuinely nothing to deliver; every failure otherwise ends
// up in item.Error so the user still gets a reply.
func (w *Worker) process(ctx context.Context, item *Item) bool {
	kind := trigger.Classify(item.Source)
	if kind == trigger.KindComment {
		return false
	}
	if kind != trigger.KindPlain {
		w.logger.Debug("message classified",
			slog.String("kind", kind.String()),
			slog.String("channel", item.Source.ChannelID))
	}

	cfg, err := w.settings.Load(ctx)
	if err != nil {
		item.Error = fmt.Sprintf("settings unavailable: %v", err)
		return true
	}

	char, err := w.store.GetCharacter(ctx, item.Character)
	if err != nil {
		item.Error = fmt.Sprintf("character %q unavailable: %v", item.Character, err)
		return true
	}
	item.Persona = platform.Persona{Name: char.Name, AvatarURL: char.Avatar}

	history, err := w.formatHistory(ctx, item.Source.ChannelID, cfg.HistoryLimit)
	if err != nil {
		w.logger.Warn("history fetch failed", slog.String("channel", item.Source.ChannelID), slog.Any("error", err))
	}

	outputs := w.registry.Run(ctx, plugin.Invocation{
		Message:   item.Source,
		Character: char,
		Dimension: item.Dimension,
		Settings:  cfg,
		Store:     w.store,
	})
	item.Images = append(item.Images, liftImages(outputs)...)

	assembled, err := w.assembler.Assemble(ctx, prompt.Input{
		Character:  char,
		Dimension:  item.Dimension,
		User:       item.Source.Author.Name,
		History:    history,
		Plugins:    outputs,
		PresetName: cfg.PresetName,
	})
	if err != nil {
		item.Error = fmt.Sprintf("prompt assembly failed: %v", err)
		return true
	}
	item.Prompt = assembled
	item.Stop = prompt.StopSet(char.Name, prompt.SanitizeName(item.Source.Author.Name))

	req := generate.Request{
		Prompt: assembled,
		User:   w.userMessage(ctx, item.Source, kind),
		Stop:   item.Stop,
	}
	if cfg.UsePrefill {
		req.Prefill = prompt.Prefill(char.Name)
	}

	result, err := w.generator.Generate(ctx, cfg.Generation(), req)
	if err != nil {
		item.Error = err.Error()
		return true
	}
	item.Result = cleanResult(result)
	return true
}

func (w *Worker) formatHistory(ctx context.Context, channelID string, limit int) (string, error) {
	messages, err := w.history.History(ctx, channelID, limit)
	if err != nil {
		return "", err
	}
	var caption prompt.CaptionFunc
	if w.captioner != nil {
		caption = w.captioner.Caption
	}
	return prompt.FormatHistory(ctx, messages, caption), nil
}

// userMessage builds the current-turn user line for the generation call,
// folding in what the classifier tagged. Attachment descriptions and link
// summaries come from the captioner, which caches them by message id;
// search markers are dropped because the search plugin already carries the
// results into the prompt.
func (w *Worker) userMessage(ctx context.Context, msg platform.Message, kind trigger.Kind) string {
	user := cleanUserMessage(msg.Content)

	switch kind {
	case trigger.KindAttachment, trigger.KindVideoLink:
		if w.captioner == nil {
			break
		}
		if desc, ok := w.captioner.Caption(ctx, msg); ok && desc != "" {
			user += " " + prompt.CaptionNote(msg, desc)
		}
	case trigger.KindSearch:
		user = strings.TrimSpace(strings.Replace(user, "search>", "", 1))
	}
	return user
}

// liftImages pulls generated image URLs out of plugin outputs so the
// dispatcher can attach them to the reply.
func liftImages(outputs map[string]map[string]string) []string {
	var images []string
	for _, values := range outputs {
		if url := values["image_url"]; url != "" {
			images = append(images, url)
		}
	}
	return images
}

func cleanUserMessage(content string) string {
	content = prompt.StripMentions(content)
	return speakerPrefixPattern.ReplaceAllString(content, "")
}

func cleanResult(text string) string {
	text = strings.ReplaceAll(text, "[End]", "")
	text = strings.ReplaceAll(text, "[Reply]", "")
	return strings.TrimSpace(text)
}
