package prompt

import (
	"context"
	"regexp"
	"strings"

	"github.com/troupehq/troupe/internal/platform"
)

// ResetMarker truncates everything at and before its last occurrence when it
// appears in formatted history, letting a conversation restart mid-channel.
const ResetMarker = "[RESET]"

var (
	mentionPattern  = regexp.MustCompile(`<@!?[0-9]+>`)
	nameCharPattern = regexp.MustCompile(`[^\w]`)
)

// CaptionFunc resolves an attachment or link caption for a message. The
// second return reports whether a caption exists; the pipeline plugs the
// vision captioner in here.
type CaptionFunc func(ctx context.Context, msg platform.Message) (string, bool)

// SanitizeName strips everything but word characters from a display name so
// it cannot break the reply framing.
func SanitizeName(name string) string {
	return nameCharPattern.ReplaceAllString(name, "")
}

// StripMentions removes raw user mention tokens from message content.
func StripMentions(content string) string {
	return mentionPattern.ReplaceAllString(content, "")
}

// CaptionNote frames a resolved caption for inclusion beside the message
// text, picking the wrapper by what the message carries.
func CaptionNote(msg platform.Message, text string) string {
	if msg.HasImageAttachment() {
		return "[Attached File/Image Description: " + text + "]"
	}
	return "[Linked Video: " + text + "]"
}

// FormatHistory renders fetched messages (newest first) into the prompt's
// conversation transcript. System-bracketed lines pass through verbatim,
// comment lines are dropped, a leading caret is stripped, everything else is
// framed as "[Reply]Name: text[End]". The result is chronological, cut at
// the last reset marker, and ends with a blank separator line.
func FormatHistory(ctx context.Context, messages []platform.Message, caption CaptionFunc) string {
	lines := make([]string, 0, len(messages))
	for _, msg := range messages {
		line, ok := formatMessage(ctx, msg, caption)
		if !ok {
			continue
		}
		lines = append(lines, line)
	}

	// Newest-first fetch order; the transcript reads oldest to newest.
	for i, j := 0, len(lines)-1; i < j; i, j = i+1, j-1 {
		lines[i], lines[j] = lines[j], lines[i]
	}

	return applyReset(strings.Join(lines, "\n\n")) + "\n\n"
}

func formatMessage(ctx context.Context, msg platform.Message, caption CaptionFunc) (string, bool) {
	content := StripMentions(msg.Content)

	if caption != nil {
		if text, ok := caption(ctx, msg); ok && text != "" {
			content += " " + CaptionNote(msg, text)
		}
	}

	if strings.HasPrefix(content, "[System") {
		return strings.TrimSpace(content), true
	}
	if strings.HasPrefix(content, "//") {
		return "", false
	}
	content = strings.TrimPrefix(content, "^")

	name := SanitizeName(msg.Author.Name)
	return "[Reply]" + name + ": " + strings.TrimSpace(content) + "[End]", true
}

func applyReset(history string) string {
	if idx := strings.LastIndex(history, ResetMarker); idx != -1 {
		return strings.TrimSpace(history[idx+len(ResetMarker):])
	}
	return strings.TrimSpace(history)
}
