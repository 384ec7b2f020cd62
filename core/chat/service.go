package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"

	"github.com/darasa-app/gumzo/core"
	"github.com/darasa-app/gumzo/core/attachment"
	"github.com/darasa-app/gumzo/core/profile"
)

var (
	// errors
	ErrNotFound    = errors.New("message not found")
	ErrNotEditable = errors.New("only text messages can be edited")
	ErrNotSender   = errors.New("only the sender can modify a message")
)

type (
	// Repository is the structured store client for the message collections.
	// Cross-collection joins (message -> sender profile) are done in
	// application code via a second batched query, never server-side.
	Repository interface {
		// QueryMessages returns the container's messages oldest-first.
		QueryMessages(ctx context.Context, container Container) ([]Message, error)
		GetMessageByID(ctx context.Context, container Container, id string) (Message, error)
		CreateMessage(ctx context.Context, msg Message) (Message, error)
		UpdateMessageContent(ctx context.Context, container Container, id, content string, editedAt time.Time) error
		MarkMessageDeleted(ctx context.Context, container Container, id, placeholder string) error
		UpsertTypingIndicator(ctx context.Context, container Container, userID string, at time.Time) error
		PinMessage(ctx context.Context, pin PinnedMessage) (PinnedMessage, error)
		UnpinMessage(ctx context.Context, container Container, messageID string) error
		QueryPinnedMessages(ctx context.Context, container Container) ([]PinnedMessage, error)
	}

	Service struct {
		repo     Repository
		pipeline *attachment.Pipeline
		feed     core.Feed
		profiles *profile.Service
		logger   core.Logger
	}
)

func NewService(
	repo Repository,
	pipeline *attachment.Pipeline,
	feed core.Feed,
	profiles *profile.Service,
	logger core.Logger,
) *Service {
	return &Service{
		repo:     repo,
		pipeline: pipeline,
		feed:     feed,
		profiles: profiles,
		logger:   logger,
	}
}

// GetMessage fetches one message of the container.
func (svc *Service) GetMessage(ctx context.Context, container Container, id string) (Message, error) {
	msg, err := svc.repo.GetMessageByID(ctx, container, id)
	if err != nil {
		return Message{}, err
	}
	ingest(&msg)
	return msg, nil
}

// Forward fans a message out to the chosen destinations as new inserts with
// a forwarded marker. Non-text payloads degrade to their content field;
// attachments are not re-uploaded. The fan-out is sequential and not
// transactional: a failed destination does not stop later ones, and earlier
// successes stand. The result carries per-destination outcomes.
func (svc *Service) Forward(ctx context.Context, sender core.Identity, source Message, destinations []Container) ForwardResult {
	var res ForwardResult
	now := NowFunc().UTC()

	for _, dest := range destinations {
		msg := Message{
			ID:            uuid.New().String(),
			ContainerID:   dest.ID,
			ContainerKind: dest.Kind,
			SenderID:      sender.ID,
			Content:       ForwardedPrefix + source.Content,
			Kind:          KindText,
			CreatedAt:     now,
		}
		created, err := svc.repo.CreateMessage(ctx, msg)
		if err != nil {
			svc.logger.Warn(fmt.Sprintf("forwarding to %s %s: %v", dest.Kind, dest.ID, err), err)
			res.Failed = append(res.Failed, ForwardFailure{Destination: dest, Error: err.Error()})
			continue
		}
		res.Sent = append(res.Sent, created)
	}
	return res
}

// CompleteMention parses the trailing mention token of a composing input
// and fetches matching profiles, restricted to scopeIDs in group context.
// ok is false when the text does not end in a mention token.
func (svc *Service) CompleteMention(ctx context.Context, text string, scopeIDs []string) (suggestions []profile.Profile, ok bool, err error) {
	partial, ok := ParseMentionQuery(text)
	if !ok {
		return nil, false, nil
	}
	suggestions, err = svc.profiles.Search(ctx, partial, scopeIDs)
	if err != nil {
		return nil, true, pkgerrors.Wrap(err, "searching mention profiles")
	}
	return suggestions, true, nil
}

type typingEvent struct {
	ContainerID string    `json:"container_id"`
	UserID      string    `json:"user_id"`
	At          time.Time `json:"at"`
}

// SetTyping records a keystroke-debounce cycle: the indicator row is
// overwritten and the event broadcast on the container's topic. Indicators
// expire after TypingTTL of composer inactivity.
func (svc *Service) SetTyping(ctx context.Context, container Container, userID string) error {
	now := NowFunc().UTC()
	if err := svc.repo.UpsertTypingIndicator(ctx, container, userID, now); err != nil {
		return pkgerrors.Wrap(err, "upserting typing indicator")
	}

	payload, err := json.Marshal(typingEvent{ContainerID: container.ID, UserID: userID, At: now})
	if err != nil {
		return pkgerrors.Wrap(err, "encoding typing event")
	}
	return pkgerrors.Wrap(svc.feed.Broadcast(core.FeedEvent{
		Type:    core.FeedEventBroadcast,
		Topic:   container.Topic(),
		Payload: payload,
	}), "broadcasting typing event")
}

// Pin surfaces a message at the top of its container.
func (svc *Service) Pin(ctx context.Context, container Container, messageID string, pinnedBy core.Identity) (PinnedMessage, error) {
	if _, err := svc.repo.GetMessageByID(ctx, container, messageID); err != nil {
		return PinnedMessage{}, err
	}
	pin := PinnedMessage{
		ID:            uuid.New().String(),
		ContainerID:   container.ID,
		ContainerKind: container.Kind,
		MessageID:     messageID,
		PinnedBy:      pinnedBy.ID,
		PinnedAt:      NowFunc().UTC(),
	}
	created, err := svc.repo.PinMessage(ctx, pin)
	return created, pkgerrors.Wrap(err, "pinning message")
}

func (svc *Service) Unpin(ctx context.Context, container Container, messageID string) error {
	return pkgerrors.Wrap(svc.repo.UnpinMessage(ctx, container, messageID), "unpinning message")
}

func (svc *Service) Pins(ctx context.Context, container Container) ([]PinnedMessage, error) {
	pins, err := svc.repo.QueryPinnedMessages(ctx, container)
	return pins, pkgerrors.Wrap(err, "querying pinned messages")
}

// ResolveSenders fetches display metadata for the distinct sender set of a
// message batch in one batched lookup.
func (svc *Service) ResolveSenders(ctx context.Context, messages []Message) (map[string]profile.Profile, error) {
	ids := make([]string, 0, len(messages))
	for _, m := range messages {
		ids = append(ids, m.SenderID)
	}
	return svc.profiles.Resolve(ctx, ids)
}

// ingest tags the payload variant and link preview once, at the point a
// message enters the in-memory list.
func ingest(m *Message) {
	m.resolveKind()
	if m.LinkPreview == nil {
		detectLinkPreview(m)
	}
}
