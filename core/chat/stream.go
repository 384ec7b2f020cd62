package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/darasa-app/gumzo/core"
)

// Stream is the live, ordered message sequence of one mounted container.
// It exclusively owns its in-memory list: no two streams for the same
// container run concurrently (one chat surface visible at a time).
// A Stream must be Closed on scope exit to release its feed subscription.
type Stream struct {
	container Container
	viewer    core.Identity
	svc       *Service
	sub       core.Subscription
	notifier  *Notifier
	typing    *TypingSet

	mutex    sync.Mutex
	messages []Message // sorted by CreatedAt ascending

	onNotice func(Notice)
}

// Stream mounts a live message stream for the container: history is loaded
// oldest-first and the container's feed topic is subscribed for changes.
func (svc *Service) Stream(ctx context.Context, container Container, viewer core.Identity) (*Stream, error) {
	history, err := svc.repo.QueryMessages(ctx, container)
	if err != nil {
		return nil, errors.Wrap(err, "loading message history")
	}
	for i := range history {
		ingest(&history[i])
	}
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].CreatedAt.Before(history[j].CreatedAt)
	})

	s := &Stream{
		container: container,
		viewer:    viewer,
		svc:       svc,
		notifier:  NewNotifier(viewer.ID),
		typing:    NewTypingSet(),
		messages:  history,
	}

	sub, err := svc.feed.Channel(container.Topic()).
		On([]string{core.FeedEventInsert, core.FeedEventUpdate}, s.applyChange).
		On([]string{core.FeedEventBroadcast}, s.applyBroadcast).
		Subscribe()
	if err != nil {
		return nil, errors.Wrap(err, "subscribing to message feed")
	}
	s.sub = sub
	return s, nil
}

// Close releases the feed subscription. Mandatory on unmount.
func (s *Stream) Close() error {
	if s.sub == nil {
		return nil
	}
	return errors.Wrap(s.sub.Unsubscribe(), "unsubscribing message feed")
}

// OnNotice registers the transient-notification callback raised when a
// foreign message lands at the tail of the stream.
func (s *Stream) OnNotice(fn func(Notice)) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.onNotice = fn
}

func (s *Stream) Container() Container { return s.container }

// Messages returns a snapshot of the ordered list, oldest-first.
func (s *Stream) Messages() []Message {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// SenderIDs returns the distinct sender set of the current list, feeding
// the batched profile lookup.
func (s *Stream) SenderIDs() []string {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	seen := make(map[string]bool, len(s.messages))
	var ids []string
	for _, m := range s.messages {
		if !seen[m.SenderID] {
			seen[m.SenderID] = true
			ids = append(ids, m.SenderID)
		}
	}
	return ids
}

// Collages recomputes the render-only collage grouping from the current list.
func (s *Stream) Collages() []Collage {
	return GroupCollages(s.Messages())
}

// ResolveReply resolves a reply back-reference against the current list.
func (s *Stream) ResolveReply(m Message) *Message {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return ResolveReply(s.messages, m)
}

// TypingUsers returns the users currently typing in this container,
// excluding the viewer.
func (s *Stream) TypingUsers() []string {
	return s.typing.ActiveUsers(NowFunc(), s.viewer.ID)
}

// Typing records a keystroke-debounce cycle for the viewer.
func (s *Stream) Typing(ctx context.Context) error {
	return s.svc.SetTyping(ctx, s.container, s.viewer.ID)
}

// Send persists a plain-text message. Whitespace-only content after trim is
// a validation no-op: the composer simply does not submit, no error raised.
// The message is reflected locally before the insert resolves; a failed
// insert returns the error but does not roll the local list back, so a
// failed send may stick until the next mount.
func (s *Stream) Send(ctx context.Context, content, replyToMessageID string) (*Message, error) {
	content = core.CleanString(content)
	if content == "" {
		return nil, nil
	}

	msg := Message{
		ID:               uuid.New().String(),
		ContainerID:      s.container.ID,
		ContainerKind:    s.container.Kind,
		SenderID:         s.viewer.ID,
		Content:          content,
		Kind:             KindText,
		CreatedAt:        NowFunc().UTC(),
		ReplyToMessageID: replyToMessageID,
	}
	return s.persist(ctx, msg)
}

// SendVoice uploads the recording and persists a voice message. Duration is
// the caller's wall-clock measurement during recording. A failed upload
// aborts the whole send; no partial message is created.
func (s *Stream) SendVoice(ctx context.Context, blob []byte, durationSeconds int) (*Message, error) {
	desc, err := s.svc.pipeline.UploadVoice(ctx, s.container.ID, blob, durationSeconds)
	if err != nil {
		return nil, err
	}

	msg := Message{
		ID:            uuid.New().String(),
		ContainerID:   s.container.ID,
		ContainerKind: s.container.Kind,
		SenderID:      s.viewer.ID,
		CreatedAt:     NowFunc().UTC(),
		Attachment:    &desc,
	}
	return s.persist(ctx, msg)
}

// SendFile uploads an arbitrary file and persists a file message. A failed
// upload aborts the whole send; no partial message is created.
func (s *Stream) SendFile(ctx context.Context, fileName string, blob []byte) (*Message, error) {
	desc, err := s.svc.pipeline.UploadFile(ctx, s.container.ID, fileName, blob)
	if err != nil {
		return nil, err
	}

	msg := Message{
		ID:            uuid.New().String(),
		ContainerID:   s.container.ID,
		ContainerKind: s.container.Kind,
		SenderID:      s.viewer.ID,
		CreatedAt:     NowFunc().UTC(),
		Attachment:    &desc,
	}
	return s.persist(ctx, msg)
}

func (s *Stream) persist(ctx context.Context, msg Message) (*Message, error) {
	ingest(&msg)
	s.insertLocal(msg)

	created, err := s.svc.repo.CreateMessage(ctx, msg)
	if err != nil {
		return nil, errors.Wrap(err, "inserting message")
	}
	ingest(&created)
	s.replaceLocal(created)
	return &created, nil
}

// Edit updates a plain-text message's content. Messages carrying a voice or
// file attachment are not editable. The list is not reordered on edit.
func (s *Stream) Edit(ctx context.Context, id, content string) error {
	content = core.CleanString(content)
	if content == "" {
		return core.NewFieldError("content", "this field is required")
	}

	msg, ok := s.get(id)
	if !ok {
		return ErrNotFound
	}
	if msg.SenderID != s.viewer.ID {
		return ErrNotSender
	}
	if !msg.Editable() {
		return core.NewValidationError(ErrNotEditable, core.FieldError{Field: "id", Error: ErrNotEditable.Error()})
	}

	editedAt := NowFunc().UTC()
	if err := s.svc.repo.UpdateMessageContent(ctx, s.container, id, content, editedAt); err != nil {
		return errors.Wrap(err, "updating message")
	}

	msg.Content = content
	msg.EditedAt = editedAt
	msg.LinkPreview = nil
	ingest(&msg)
	s.replaceLocal(msg)
	return nil
}

// SoftDelete marks a message deleted, replacing its content with the fixed
// placeholder while keeping the row for thread integrity. Deleting an
// already-deleted message is a no-op that touches neither EditedAt nor the
// placeholder. A voice binary is removed from storage best-effort: a failed
// removal is logged, never rolled back.
func (s *Stream) SoftDelete(ctx context.Context, id string) error {
	msg, ok := s.get(id)
	if !ok {
		return ErrNotFound
	}
	if msg.SenderID != s.viewer.ID {
		return ErrNotSender
	}
	if msg.IsDeleted {
		return nil
	}

	if err := s.svc.repo.MarkMessageDeleted(ctx, s.container, id, DeletedPlaceholder); err != nil {
		return errors.Wrap(err, "deleting message")
	}

	if msg.Kind == KindVoice && msg.Attachment != nil {
		if err := s.svc.pipeline.Remove(ctx, core.BucketVoiceMessages, msg.Attachment.Path); err != nil {
			s.svc.logger.Warn(fmt.Sprintf("removing voice binary for message %s: %v", id, err), err)
		}
	}

	msg.IsDeleted = true
	msg.Content = DeletedPlaceholder
	msg.LinkPreview = nil
	s.replaceLocal(msg)
	return nil
}

// feed callbacks

func (s *Stream) applyChange(event core.FeedEvent) {
	var msg Message
	if err := json.Unmarshal(event.Payload, &msg); err != nil {
		s.svc.logger.Warn(fmt.Sprintf("decoding feed payload on %s: %v", event.Topic, err), err)
		return
	}
	ingest(&msg)

	switch event.Type {
	case core.FeedEventInsert:
		s.insertLocal(msg)
		s.raiseNotice()
	case core.FeedEventUpdate:
		s.replaceLocal(msg)
	}
}

func (s *Stream) applyBroadcast(event core.FeedEvent) {
	var typing typingEvent
	if err := json.Unmarshal(event.Payload, &typing); err != nil {
		return
	}
	if typing.UserID != "" {
		s.typing.Set(typing.UserID, typing.At)
	}
}

// insertLocal appends keeping CreatedAt order; repeats of an id already in
// the list (the echo of an optimistic insert) are ignored.
func (s *Stream) insertLocal(msg Message) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, m := range s.messages {
		if m.ID == msg.ID {
			return
		}
	}
	s.messages = append(s.messages, msg)
	sort.SliceStable(s.messages, func(i, j int) bool {
		return s.messages[i].CreatedAt.Before(s.messages[j].CreatedAt)
	})
}

// replaceLocal swaps a message in place, never reordering the list.
func (s *Stream) replaceLocal(msg Message) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for i := range s.messages {
		if s.messages[i].ID == msg.ID {
			s.messages[i] = msg
			return
		}
	}
}

func (s *Stream) get(id string) (Message, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, m := range s.messages {
		if m.ID == id {
			return m, true
		}
	}
	return Message{}, false
}

func (s *Stream) raiseNotice() {
	s.mutex.Lock()
	newestIdx := len(s.messages) - 1
	if newestIdx < 0 {
		s.mutex.Unlock()
		return
	}
	newest := s.messages[newestIdx]
	onNotice := s.onNotice
	s.mutex.Unlock()

	if notice := s.notifier.Observe(&newest); notice != nil && onNotice != nil {
		onNotice(*notice)
	}
}
