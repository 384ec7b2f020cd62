package realtime

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/darasa-app/gumzo/core"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	maxMessageSize = 1 << 16
	sendBuffer     = 256
)

// envelope is the wire frame exchanged with the platform's feed endpoint.
type envelope struct {
	Type  string          `json:"type"`
	Topic string          `json:"topic"`
	Data  json.RawMessage `json:"data,omitempty"`
}

const (
	frameJoin      = "phx_join"
	frameLeave     = "phx_leave"
	frameHeartbeat = "heartbeat"
	frameBroadcast = "broadcast"
)

// WebsocketFeed is a core.Feed over a single websocket connection to the
// platform's realtime endpoint. Events are fanned out to topic subscribers
// on the read pump goroutine; handlers must not block.
type WebsocketFeed struct {
	conn   *websocket.Conn
	logger core.Logger

	send chan []byte
	done chan struct{}

	mu     sync.RWMutex
	topics map[string][]*subscription
	closed bool
}

var _ core.Feed = (*WebsocketFeed)(nil)

// Dial connects to the feed endpoint and starts the read/write pumps.
func Dial(conf *core.Config, logger core.Logger) (*WebsocketFeed, error) {
	conn, _, err := websocket.DefaultDialer.Dial(conf.Realtime.URL, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "dialing %s", conf.Realtime.URL)
	}

	f := &WebsocketFeed{
		conn:   conn,
		logger: logger,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
		topics: make(map[string][]*subscription),
	}

	heartbeat := conf.Realtime.HeartbeatInterval
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}
	go f.writePump(heartbeat)
	go f.readPump()

	return f, nil
}

func (f *WebsocketFeed) Channel(topic string) core.FeedChannel {
	return &channel{feed: f, topic: topic}
}

func (f *WebsocketFeed) Broadcast(event core.FeedEvent) error {
	return f.write(envelope{Type: frameBroadcast, Topic: event.Topic, Data: event.Payload})
}

func (f *WebsocketFeed) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	f.topics = make(map[string][]*subscription)
	f.mu.Unlock()

	close(f.done)
	return f.conn.Close()
}

func (f *WebsocketFeed) write(env envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return errors.Wrap(err, "encoding frame")
	}
	select {
	case f.send <- data:
		return nil
	case <-f.done:
		return errors.New("feed closed")
	}
}

func (f *WebsocketFeed) readPump() {
	defer f.Close()

	f.conn.SetReadLimit(maxMessageSize)
	f.conn.SetReadDeadline(time.Now().Add(pongWait))
	f.conn.SetPongHandler(func(string) error {
		f.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := f.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				f.logger.Error(fmt.Sprintf("realtime: read: %v", err), err)
			}
			return
		}

		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			f.logger.Warn(fmt.Sprintf("realtime: dropping unparsable frame: %v", err))
			continue
		}
		f.dispatch(env)
	}
}

func (f *WebsocketFeed) writePump(heartbeat time.Duration) {
	ticker := time.NewTicker(heartbeat)
	defer func() {
		ticker.Stop()
		f.conn.Close()
	}()

	for {
		select {
		case data := <-f.send:
			f.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := f.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				f.logger.Error(fmt.Sprintf("realtime: write: %v", err), err)
				return
			}
		case <-ticker.C:
			f.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := f.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-f.done:
			f.conn.SetWriteDeadline(time.Now().Add(writeWait))
			f.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (f *WebsocketFeed) dispatch(env envelope) {
	event := core.FeedEvent{Type: env.Type, Topic: env.Topic, Payload: env.Data}

	f.mu.RLock()
	subs := f.topics[env.Topic]
	f.mu.RUnlock()

	for _, sub := range subs {
		for _, h := range sub.handlers[env.Type] {
			h(event)
		}
	}
}

func (f *WebsocketFeed) subscribe(sub *subscription) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return errors.New("feed closed")
	}
	first := len(f.topics[sub.topic]) == 0
	f.topics[sub.topic] = append(f.topics[sub.topic], sub)
	f.mu.Unlock()

	if first {
		return f.write(envelope{Type: frameJoin, Topic: sub.topic})
	}
	return nil
}

func (f *WebsocketFeed) unsubscribe(sub *subscription) error {
	f.mu.Lock()
	subs := f.topics[sub.topic]
	for i, s := range subs {
		if s == sub {
			f.topics[sub.topic] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	last := len(f.topics[sub.topic]) == 0
	if last {
		delete(f.topics, sub.topic)
	}
	closed := f.closed
	f.mu.Unlock()

	if last && !closed {
		return f.write(envelope{Type: frameLeave, Topic: sub.topic})
	}
	return nil
}

// channel accumulates handlers for one topic until Subscribe.
type channel struct {
	feed     *WebsocketFeed
	topic    string
	handlers map[string][]core.FeedHandler
}

var _ core.FeedChannel = (*channel)(nil)

func (c *channel) On(eventTypes []string, handler core.FeedHandler) core.FeedChannel {
	if c.handlers == nil {
		c.handlers = make(map[string][]core.FeedHandler)
	}
	for _, t := range eventTypes {
		c.handlers[t] = append(c.handlers[t], handler)
	}
	return c
}

func (c *channel) Subscribe() (core.Subscription, error) {
	sub := &subscription{feed: c.feed, topic: c.topic, handlers: c.handlers}
	if err := c.feed.subscribe(sub); err != nil {
		return nil, err
	}
	return sub, nil
}

type subscription struct {
	feed     *WebsocketFeed
	topic    string
	handlers map[string][]core.FeedHandler
}

func (s *subscription) Unsubscribe() error {
	return s.feed.unsubscribe(s)
}
