package core

// Change-feed event types, mirroring the platform's wire values.
const (
	FeedEventInsert = "INSERT"
	FeedEventUpdate = "UPDATE"
	FeedEventDelete = "DELETE"

	// FeedEventBroadcast is a client-originated, non-persisted event (typing).
	FeedEventBroadcast = "BROADCAST"
)

type (
	// FeedEvent is one change pushed by the platform's realtime feed.
	FeedEvent struct {
		Type    string
		Topic   string
		Payload []byte // raw record JSON
	}

	FeedHandler func(event FeedEvent)

	// Subscription must be released on scope exit; a channel registered
	// without a matching Unsubscribe leaks on the feed connection.
	Subscription interface {
		Unsubscribe() error
	}

	// FeedChannel accumulates event handlers for one topic before Subscribe.
	FeedChannel interface {
		On(eventTypes []string, handler FeedHandler) FeedChannel
		Subscribe() (Subscription, error)
	}

	// Feed is the platform's realtime change feed. The core only consumes it;
	// delivery, ordering and durability are the platform's concern.
	Feed interface {
		Channel(topic string) FeedChannel
		Broadcast(event FeedEvent) error
		Close() error
	}
)
