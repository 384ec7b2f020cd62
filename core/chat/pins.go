package chat

import "time"

// PinnedMessage marks a message surfaced at the top of its container.
type PinnedMessage struct {
	ID            string        `json:"id"`
	ContainerID   string        `json:"container_id"`
	ContainerKind ContainerKind `json:"container_kind"`
	MessageID     string        `json:"message_id"`
	PinnedBy      string        `json:"pinned_by"`
	PinnedAt      time.Time     `json:"pinned_at"` // UTC
}
