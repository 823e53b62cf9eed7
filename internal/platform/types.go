package platform

import "time"

// Author identifies the sender of an inbound message.
type Author struct {
	ID   string
	Name string
	Bot  bool
}

// Attachment is a file carried by an inbound message.
type Attachment struct {
	ID          string
	URL         string
	Filename    string
	ContentType string
}

// Message is a platform message normalized for the dispatch pipeline.
// It carries everything trigger resolution and history formatting need,
// so the rest of the pipeline never touches platform SDK types.
type Message struct {
	ID        string
	ChannelID string
	GuildID   string
	Author    Author
	Content   string

	IsDM    bool
	Webhook bool

	// IsThread is set when the message lives in a sub-thread;
	// ParentChannelID then names the channel the thread hangs off.
	IsThread        bool
	ParentChannelID string

	// ReplyToID and ReplyToAuthor are set when the message is a reply.
	// ReplyToAuthor is the display name of the replied-to author.
	ReplyToID     string
	ReplyToAuthor string

	Attachments []Attachment
	ReceivedAt  time.Time
}

// HasImageAttachment reports whether the message carries at least one
// image-typed attachment.
func (m Message) HasImageAttachment() bool {
	for _, att := range m.Attachments {
		if len(att.ContentType) >= 6 && att.ContentType[:6] == "image/" {
			return true
		}
	}
	return false
}

// Persona is the per-send identity used when a reply should appear as a
// character rather than the host account.
type Persona struct {
	Name      string
	AvatarURL string
}

// Target addresses an outbound persona send. ThreadID is set when the
// conversation is a sub-thread; the send is then issued against the parent
// channel's webhook with the thread addressed explicitly.
type Target struct {
	ChannelID string
	ThreadID  string
}
