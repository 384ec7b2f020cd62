package chat

import (
	"sync"

	"github.com/darasa-app/gumzo/core"
)

// noticeMaxLen caps the text summary of a transient notice.
const noticeMaxLen = 50

// Notice is a transient, in-session signal raised when a foreign message
// lands at the tail of a stream. It is unrelated to the platform's durable
// notification records.
type Notice struct {
	MessageID   string `json:"message_id"`
	ContainerID string `json:"container_id"`
	SenderID    string `json:"sender_id"`
	Summary     string `json:"summary"`
}

// Notifier watches the tail of one container's stream and raises at most one
// notice per newest message id.
type Notifier struct {
	viewerID     string
	mutex        sync.Mutex
	lastNotified string
}

func NewNotifier(viewerID string) *Notifier {
	return &Notifier{viewerID: viewerID}
}

// Observe compares the newest message against the last-notified id and
// returns a Notice when it is new and not authored by the viewer, else nil.
func (n *Notifier) Observe(newest *Message) *Notice {
	if newest == nil {
		return nil
	}

	n.mutex.Lock()
	defer n.mutex.Unlock()

	if newest.ID == n.lastNotified {
		return nil
	}
	n.lastNotified = newest.ID

	if newest.SenderID == n.viewerID {
		return nil
	}
	return &Notice{
		MessageID:   newest.ID,
		ContainerID: newest.ContainerID,
		SenderID:    newest.SenderID,
		Summary:     summarize(*newest),
	}
}

func summarize(m Message) string {
	switch m.Kind {
	case KindVoice:
		return "Sent a voice message"
	case KindFile, KindImage:
		if m.Attachment != nil {
			return core.TruncateString("Sent a file: "+m.Attachment.FileName, noticeMaxLen)
		}
		return "Sent a file"
	default:
		return core.TruncateString(m.Content, noticeMaxLen)
	}
}
