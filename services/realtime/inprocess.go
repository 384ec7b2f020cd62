package realtime

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/darasa-app/gumzo/core"
)

// InProcessFeed is a core.Feed that loops events back to local subscribers.
// It backs tests and single-node development runs where no realtime endpoint
// is available; Broadcast delivers synchronously on the caller's goroutine.
type InProcessFeed struct {
	mu     sync.RWMutex
	topics map[string][]*localSubscription
	closed bool
}

var _ core.Feed = (*InProcessFeed)(nil)

func NewInProcessFeed() *InProcessFeed {
	return &InProcessFeed{topics: make(map[string][]*localSubscription)}
}

func (f *InProcessFeed) Channel(topic string) core.FeedChannel {
	return &localChannel{feed: f, topic: topic}
}

func (f *InProcessFeed) Broadcast(event core.FeedEvent) error {
	f.mu.RLock()
	if f.closed {
		f.mu.RUnlock()
		return errors.New("feed closed")
	}
	subs := make([]*localSubscription, len(f.topics[event.Topic]))
	copy(subs, f.topics[event.Topic])
	f.mu.RUnlock()

	for _, sub := range subs {
		for _, h := range sub.handlers[event.Type] {
			h(event)
		}
	}
	return nil
}

func (f *InProcessFeed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.topics = make(map[string][]*localSubscription)
	return nil
}

type localChannel struct {
	feed     *InProcessFeed
	topic    string
	handlers map[string][]core.FeedHandler
}

var _ core.FeedChannel = (*localChannel)(nil)

func (c *localChannel) On(eventTypes []string, handler core.FeedHandler) core.FeedChannel {
	if c.handlers == nil {
		c.handlers = make(map[string][]core.FeedHandler)
	}
	for _, t := range eventTypes {
		c.handlers[t] = append(c.handlers[t], handler)
	}
	return c
}

func (c *localChannel) Subscribe() (core.Subscription, error) {
	sub := &localSubscription{feed: c.feed, topic: c.topic, handlers: c.handlers}

	c.feed.mu.Lock()
	defer c.feed.mu.Unlock()
	if c.feed.closed {
		return nil, errors.New("feed closed")
	}
	c.feed.topics[c.topic] = append(c.feed.topics[c.topic], sub)
	return sub, nil
}

type localSubscription struct {
	feed     *InProcessFeed
	topic    string
	handlers map[string][]core.FeedHandler
}

func (s *localSubscription) Unsubscribe() error {
	s.feed.mu.Lock()
	defer s.feed.mu.Unlock()

	subs := s.feed.topics[s.topic]
	for i, sub := range subs {
		if sub == s {
			s.feed.topics[s.topic] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(s.feed.topics[s.topic]) == 0 {
		delete(s.feed.topics, s.topic)
	}
	return nil
}
