package pipeline

import (
	"context"
	"log/slog"

	"github.com/troupehq/troupe/internal/platform"
	"github.com/troupehq/troupe/internal/settings"
	"github.com/troupehq/troupe/internal/store"
	"github.com/troupehq/troupe/internal/trigger"
)

const dmDeniedText = "You do not have permission to talk to this bot in DM."

// Intake consumes inbound platform messages, resolves which character
// should answer, and enqueues work. Resolution only enqueues; several
// inbound messages may resolve concurrently while the worker drains.
type Intake struct {
	logger   *slog.Logger
	store    store.Store
	settings *settings.Service
	queue    *Queue
	sender   platform.Sender
}

func NewIntake(log *slog.Logger, st store.Store, svc *settings.Service, q *Queue, sender platform.Sender) *Intake {
	return &Intake{
		logger:   log.With(slog.String("service", "intake")),
		store:    st,
		settings: svc,
		queue:    q,
		sender:   sender,
	}
}

// Run drains the inbound channel until it closes or ctx ends.
func (i *Intake) Run(ctx context.Context, inbound <-chan platform.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-inbound:
			if !ok {
				return
			}
			i.handle(ctx, msg)
		}
	}
}

func (i *Intake) handle(ctx context.Context, msg platform.Message) {
	cfg, err := i.settings.Load(ctx)
	if err != nil {
		i.logger.Error("load settings", slog.Any("error", err))
		return
	}

	if msg.IsDM && !cfg.DMAllowed(msg.Author.Name) {
		if err := i.sender.SendDM(ctx, msg.Author.ID, dmDeniedText); err != nil {
			i.logger.Warn("send dm denial", slog.Any("error", err))
		}
		return
	}

	dim, err := i.store.EnsureDimension(ctx, msg.ChannelID, msg.ChannelID)
	if err != nil {
		i.logger.Error("ensure dimension", slog.String("channel", msg.ChannelID), slog.Any("error", err))
		return
	}

	known, err := i.knownCharacters(ctx)
	if err != nil {
		i.logger.Error("list characters", slog.Any("error", err))
		return
	}

	decision, ok := trigger.Resolve(msg, dim.Whitelist, known, trigger.RoutingConfig{
		BlacklistMode:    cfg.BlacklistMode,
		DefaultCharacter: cfg.DefaultCharacter,
		CommentPrefix:    settings.CommentPrefix,
	})
	if !ok {
		return
	}

	i.logger.Info("message claimed",
		slog.String("character", decision.Character),
		slog.String("channel", msg.ChannelID),
		slog.Bool("dm", decision.DM))

	i.queue.Push(Item{
		Source:    msg,
		Character: decision.Character,
		Dimension: dim,
		DM:        decision.DM,
		Default:   decision.Default,
	})
}

func (i *Intake) knownCharacters(ctx context.Context) ([]trigger.Candidate, error) {
	chars, err := i.store.ListCharacters(ctx)
	if err != nil {
		return nil, err
	}
	candidates := make([]trigger.Candidate, 0, len(chars))
	for _, c := range chars {
		candidates = append(candidates, trigger.Candidate{Name: c.Name, Triggers: c.Triggers})
	}
	return candidates, nil
}
