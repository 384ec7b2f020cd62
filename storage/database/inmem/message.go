package inmemdb

import (
	"context"
	"time"

	"github.com/darasa-app/gumzo/core/chat"
)

type typingEntry struct {
	userID string
	at     time.Time
}

type MessageRepository struct {
	db *messageTable

	// FailCreate makes CreateMessage fail with this error; lets tests
	// exercise persistence failures without a real backend. When
	// FailContainerID is set only writes to that container fail.
	FailCreate      error
	FailContainerID string
}

var _ chat.Repository = (*MessageRepository)(nil)

func NewMessageRepository(db *DB) *MessageRepository {
	return &MessageRepository{db: db.message}
}

func (repo *MessageRepository) QueryMessages(_ context.Context, container chat.Container) ([]chat.Message, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	stored := repo.db.messages[container.Topic()]
	msgs := make([]chat.Message, 0, len(stored))
	for _, m := range stored {
		msgs = append(msgs, *m)
	}
	return msgs, nil
}

func (repo *MessageRepository) GetMessageByID(_ context.Context, container chat.Container, id string) (chat.Message, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, m := range repo.db.messages[container.Topic()] {
		if m.ID == id {
			return *m, nil
		}
	}
	return chat.Message{}, chat.ErrNotFound
}

func (repo *MessageRepository) CreateMessage(_ context.Context, msg chat.Message) (chat.Message, error) {
	if repo.FailCreate != nil && (repo.FailContainerID == "" || repo.FailContainerID == msg.ContainerID) {
		return chat.Message{}, repo.FailCreate
	}

	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	topic := msg.Container().Topic()
	stored := msg
	repo.db.messages[topic] = append(repo.db.messages[topic], &stored)
	return msg, nil
}

func (repo *MessageRepository) UpdateMessageContent(_ context.Context, container chat.Container, id, content string, editedAt time.Time) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, m := range repo.db.messages[container.Topic()] {
		if m.ID == id {
			m.Content = content
			m.EditedAt = editedAt
			return nil
		}
	}
	return chat.ErrNotFound
}

func (repo *MessageRepository) MarkMessageDeleted(_ context.Context, container chat.Container, id, placeholder string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, m := range repo.db.messages[container.Topic()] {
		if m.ID == id {
			m.IsDeleted = true
			m.Content = placeholder
			m.Attachment = nil
			m.LinkPreview = nil
			return nil
		}
	}
	return chat.ErrNotFound
}

func (repo *MessageRepository) UpsertTypingIndicator(_ context.Context, container chat.Container, userID string, at time.Time) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	topic := container.Topic()
	if repo.db.typing[topic] == nil {
		repo.db.typing[topic] = make(map[string]typingEntry)
	}
	repo.db.typing[topic][userID] = typingEntry{userID: userID, at: at}
	return nil
}

func (repo *MessageRepository) PinMessage(_ context.Context, pin chat.PinnedMessage) (chat.PinnedMessage, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	topic := chat.Container{ID: pin.ContainerID, Kind: pin.ContainerKind}.Topic()
	for _, p := range repo.db.pins[topic] {
		if p.MessageID == pin.MessageID {
			return *p, nil
		}
	}
	stored := pin
	repo.db.pins[topic] = append(repo.db.pins[topic], &stored)
	return pin, nil
}

func (repo *MessageRepository) UnpinMessage(_ context.Context, container chat.Container, messageID string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	topic := container.Topic()
	pins := repo.db.pins[topic]
	for i, p := range pins {
		if p.MessageID == messageID {
			repo.db.pins[topic] = append(pins[:i], pins[i+1:]...)
			return nil
		}
	}
	return nil
}

func (repo *MessageRepository) QueryPinnedMessages(_ context.Context, container chat.Container) ([]chat.PinnedMessage, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	stored := repo.db.pins[container.Topic()]
	pins := make([]chat.PinnedMessage, 0, len(stored))
	for _, p := range stored {
		pins = append(pins, *p)
	}
	return pins, nil
}
