package generate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/troupehq/troupe/internal/settings"
)

const requestTimeout = 5 * time.Minute

// Request is one completion call: the assembled prompt as the system turn,
// the cleaned user message as the user turn, and an optional assistant
// prefill that anchors the reply framing.
type Request struct {
	Prompt  string
	User    string
	Stop    []string
	Prefill string
}

// Service calls an OpenAI-compatible chat-completions endpoint. The client
// is rebuilt per call from the current generation settings, so endpoint or
// key edits take effect on the next message.
type Service struct {
	logger *slog.Logger
}

func NewService(log *slog.Logger) *Service {
	return &Service{
		logger: log.With(slog.String("service", "generate")),
	}
}

// Generate runs one bounded completion and returns the raw text.
func (s *Service) Generate(ctx context.Context, gen settings.Generation, req Request) (string, error) {
	client := openai.NewClient(
		option.WithAPIKey(gen.APIKey),
		option.WithBaseURL(gen.Endpoint),
	)

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(req.Prompt),
		openai.UserMessage(req.User),
	}
	if req.Prefill != "" {
		messages = append(messages, openai.AssistantMessage(req.Prefill))
	}

	params := openai.ChatCompletionNewParams{
		Model:       gen.Model,
		Messages:    messages,
		Temperature: openai.Float(gen.Temperature),
	}
	if len(req.Stop) > 0 {
		params.Stop = openai.ChatCompletionNewParamsStopUnion{OfStringArray: req.Stop}
	}

	callCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	started := time.Now()
	completion, err := client.Chat.Completions.New(callCtx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	s.logger.Debug("completion finished",
		slog.String("model", gen.Model),
		slog.Duration("took", time.Since(started)))
	return completion.Choices[0].Message.Content, nil
}
