package trigger

import (
	"regexp"
	"strings"

	"github.com/troupehq/troupe/internal/platform"
)

// Kind tags an inbound message with the assembly variant it needs. The
// prefix and link conventions that used to be scattered substring checks
// are evaluated once here, in order, and the rest of the pipeline consumes
// the single resulting tag.
type Kind int

const (
	KindPlain Kind = iota
	// KindComment marks a no-op message (leading comment prefix).
	KindComment
	// KindVideoLink marks a message carrying a video page link whose
	// page summary should ride along with the message text.
	KindVideoLink
	// KindSearch marks a grounded-search request (search> prefix).
	KindSearch
	// KindAttachment marks an attachment-analysis request.
	KindAttachment
)

func (k Kind) String() string {
	switch k {
	case KindComment:
		return "comment"
	case KindVideoLink:
		return "video_link"
	case KindSearch:
		return "search"
	case KindAttachment:
		return "attachment"
	default:
		return "plain"
	}
}

var videoLinkPattern = regexp.MustCompile(
	`(https?://)?(www\.)?(youtube|youtu|youtube-nocookie)\.(com|be)/(watch\?v=|embed/|v/|shorts/|/)?[a-zA-Z0-9_-]{11}`)

// VideoLink extracts the first video page link from content, normalizing a
// missing scheme so the result is fetchable. Empty when there is none.
func VideoLink(content string) string {
	link := videoLinkPattern.FindString(content)
	if link == "" {
		return ""
	}
	if !strings.HasPrefix(link, "http://") && !strings.HasPrefix(link, "https://") {
		link = "https://" + link
	}
	return link
}

type predicate struct {
	kind  Kind
	match func(msg platform.Message) bool
}

var predicates = []predicate{
	{KindComment, func(msg platform.Message) bool {
		return strings.HasPrefix(msg.Content, "//")
	}},
	{KindSearch, func(msg platform.Message) bool {
		return strings.Contains(msg.Content, "search>")
	}},
	{KindVideoLink, func(msg platform.Message) bool {
		return videoLinkPattern.MatchString(msg.Content)
	}},
	{KindAttachment, func(msg platform.Message) bool {
		return msg.HasImageAttachment()
	}},
}

// Classify evaluates the ordered predicates and returns the first matching
// kind, or KindPlain.
func Classify(msg platform.Message) Kind {
	for _, p := range predicates {
		if p.match(msg) {
			return p.kind
		}
	}
	return KindPlain
}
