package chat

import (
	"regexp"
	"time"

	"github.com/darasa-app/gumzo/core"
	"github.com/darasa-app/gumzo/core/attachment"
)

// DeletedPlaceholder replaces the content of soft-deleted messages; the row
// is retained for thread integrity.
const DeletedPlaceholder = "This message was deleted"

// ForwardedPrefix marks forwarded copies.
const ForwardedPrefix = "Forwarded: "

var NowFunc = time.Now // mockable

// ContainerKind scopes a message stream: a group chat or a one-to-one
// direct conversation.
type ContainerKind string

const (
	ContainerGroup  ContainerKind = "group"
	ContainerDirect ContainerKind = "direct"
)

// Container is the scoping unit for a message stream.
type Container struct {
	ID   string        `json:"id"`
	Kind ContainerKind `json:"kind"`
}

// Topic is the realtime feed topic carrying this container's changes.
func (c Container) Topic() string {
	return "messages:" + string(c.Kind) + ":" + c.ID
}

func (c Container) IsZero() bool { return c.ID == "" }

// MessageKind is the payload variant, tagged once at ingestion rather than
// re-derived from optional-field presence at every render site.
type MessageKind string

const (
	KindText  MessageKind = "text"
	KindVoice MessageKind = "voice"
	KindFile  MessageKind = "file"
	KindImage MessageKind = "image"
)

// LinkPreview is attached when message content contains a recognized link.
type LinkPreview struct {
	URL         string `json:"url"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

// Message is one chat message, group- or conversation-scoped (structurally
// identical). At most one of voice attachment, file attachment or link
// preview renders; deleted messages render neither attachment nor reply body.
type Message struct {
	ID               string                 `json:"id"`
	ContainerID      string                 `json:"container_id"`
	ContainerKind    ContainerKind          `json:"container_kind"`
	SenderID         string                 `json:"sender_id"`
	Content          string                 `json:"content"`
	Kind             MessageKind            `json:"kind"`
	CreatedAt        time.Time              `json:"created_at"` // UTC
	EditedAt         time.Time              `json:"edited_at,omitempty"`
	IsDeleted        bool                   `json:"is_deleted"`
	Attachment       *attachment.Descriptor `json:"attachment,omitempty"`
	ReplyToMessageID string                 `json:"reply_to_message_id,omitempty"`
	LinkPreview      *LinkPreview           `json:"link_preview,omitempty"`
}

func (m Message) Container() Container {
	return Container{ID: m.ContainerID, Kind: m.ContainerKind}
}

// HasImage reports whether the message carries an image attachment
// (the collage grouping predicate).
func (m Message) HasImage() bool {
	return !m.IsDeleted && m.Kind == KindImage && m.Attachment != nil
}

// Editable reports whether the edit action is offered: only plain-text,
// non-deleted messages.
func (m Message) Editable() bool {
	return !m.IsDeleted && m.Kind == KindText
}

// resolveKind tags the payload variant once at ingestion, following the
// kind classified at upload. Rows stored before classification carry an
// empty descriptor kind; those fall back to the recorded MIME type.
func (m *Message) resolveKind() {
	switch {
	case m.Attachment == nil:
		m.Kind = KindText
	case m.Attachment.IsVoice(), m.Attachment.Kind == attachment.KindVoice:
		m.Kind = KindVoice
	case m.Attachment.Kind == attachment.KindCamera, isImageMIME(m.Attachment.FileType):
		m.Kind = KindImage
	default:
		m.Kind = KindFile
	}
}

func isImageMIME(mime string) bool {
	return len(mime) > 6 && mime[:6] == "image/"
}

var linkRegex = regexp.MustCompile(`https?://[^\s]+`)

// detectLinkPreview attaches a bare link preview when the content contains a
// recognized URL. Title/description/image enrichment is the platform's
// concern; text-only messages carry just the URL.
func detectLinkPreview(m *Message) {
	if m.Kind != KindText || m.IsDeleted {
		return
	}
	if url := linkRegex.FindString(m.Content); url != "" {
		m.LinkPreview = &LinkPreview{URL: url}
	}
}

// EditMessage defines what may be provided to modify an existing Message.
type EditMessage struct {
	Content string `json:"content" validate:"required"`
}

func (em *EditMessage) Validate(v Validator) error {
	em.Content = core.CleanString(em.Content)
	return v.Struct(em)
}

// Validator is the subset of *validator.Validate the chat domain needs.
type Validator interface {
	Struct(s interface{}) error
}
