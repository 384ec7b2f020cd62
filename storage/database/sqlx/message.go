package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/darasa-app/gumzo/core/attachment"
	"github.com/darasa-app/gumzo/core/chat"
)

// Messages live in two structurally identical tables, split the way the
// platform splits them: "messages" keyed by group_id and "direct_messages"
// keyed by conversation_id.
type messageRepository struct {
	db *sqlx.DB
}

var _ chat.Repository = (*messageRepository)(nil) // interface compliance check

func NewMessageRepository(db *sqlx.DB) *messageRepository {
	return &messageRepository{db: db}
}

type messageRow struct {
	ID               string      `db:"id"`
	ContainerID      string      `db:"container_id"`
	SenderID         string      `db:"sender_id"`
	Content          string      `db:"content"`
	CreatedAt        time.Time   `db:"created_at"`
	EditedAt         null.Time   `db:"edited_at"`
	IsDeleted        bool        `db:"is_deleted"`
	ReplyToMessageID null.String `db:"reply_to_message_id"`
	AttachmentURL    null.String `db:"attachment_url"`
	AttachmentPath   null.String `db:"attachment_path"`
	FileName         null.String `db:"file_name"`
	FileType         null.String `db:"file_type"`
	FileSize         null.Int64  `db:"file_size"`
	VoiceDuration    null.Int    `db:"voice_duration"`
}

func (repo messageRepository) table(kind chat.ContainerKind) (table, containerCol string) {
	if kind == chat.ContainerDirect {
		return "direct_messages", "conversation_id"
	}
	return "messages", "group_id"
}

func (repo messageRepository) row(msg chat.Message) messageRow {
	row := messageRow{
		ID:               msg.ID,
		ContainerID:      msg.ContainerID,
		SenderID:         msg.SenderID,
		Content:          msg.Content,
		CreatedAt:        msg.CreatedAt.UTC(),
		EditedAt:         null.NewTime(msg.EditedAt.UTC(), !msg.EditedAt.IsZero()),
		IsDeleted:        msg.IsDeleted,
		ReplyToMessageID: null.NewString(msg.ReplyToMessageID, msg.ReplyToMessageID != ""),
	}
	if at := msg.Attachment; at != nil {
		row.AttachmentURL = null.StringFrom(at.URL)
		row.AttachmentPath = null.StringFrom(at.Path)
		row.FileName = null.NewString(at.FileName, at.FileName != "")
		row.FileType = null.NewString(at.FileType, at.FileType != "")
		row.FileSize = null.NewInt64(at.FileSize, at.FileSize > 0)
		row.VoiceDuration = null.NewInt(at.VoiceDuration, at.VoiceDuration > 0)
	}
	return row
}

func (repo messageRepository) unrow(row messageRow, kind chat.ContainerKind) chat.Message {
	msg := chat.Message{
		ID:               row.ID,
		ContainerID:      row.ContainerID,
		ContainerKind:    kind,
		SenderID:         row.SenderID,
		Content:          row.Content,
		CreatedAt:        row.CreatedAt,
		EditedAt:         row.EditedAt.Time,
		IsDeleted:        row.IsDeleted,
		ReplyToMessageID: row.ReplyToMessageID.String,
	}
	if row.AttachmentURL.Valid {
		msg.Attachment = &attachment.Descriptor{
			URL:           row.AttachmentURL.String,
			Path:          row.AttachmentPath.String,
			FileName:      row.FileName.String,
			FileType:      row.FileType.String,
			FileSize:      row.FileSize.Int64,
			VoiceDuration: row.VoiceDuration.Int,
		}
	}
	return msg
}

// trapNoRowsErr maps psql "no rows" err to chat.ErrNotFound
func (repo messageRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return chat.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

const messageCols = `id, %[1]s AS container_id, sender_id, content, created_at, edited_at, is_deleted,
	reply_to_message_id, attachment_url, attachment_path, file_name, file_type, file_size, voice_duration`

func (repo messageRepository) QueryMessages(ctx context.Context, container chat.Container) ([]chat.Message, error) {
	table, col := repo.table(container.Kind)
	q := fmt.Sprintf("SELECT "+messageCols+" FROM %[2]s WHERE %[1]s = $1 ORDER BY created_at, id", col, table)

	var rows []messageRow
	if err := repo.db.SelectContext(ctx, &rows, q, container.ID); err != nil {
		return nil, errors.Wrap(err, "querying messages")
	}

	msgs := make([]chat.Message, 0, len(rows))
	for _, row := range rows {
		msgs = append(msgs, repo.unrow(row, container.Kind))
	}
	return msgs, nil
}

func (repo messageRepository) GetMessageByID(ctx context.Context, container chat.Container, id string) (chat.Message, error) {
	table, col := repo.table(container.Kind)
	q := fmt.Sprintf("SELECT "+messageCols+" FROM %[2]s WHERE %[1]s = $1 AND id = $2", col, table)

	var row messageRow
	if err := repo.db.GetContext(ctx, &row, q, container.ID, id); err != nil {
		return chat.Message{}, repo.trapNoRowsErr(err, "finding message by ID")
	}
	return repo.unrow(row, container.Kind), nil
}

func (repo messageRepository) CreateMessage(ctx context.Context, msg chat.Message) (chat.Message, error) {
	table, col := repo.table(msg.ContainerKind)
	q := fmt.Sprintf(`INSERT INTO %s
		(id, %s, sender_id, content, created_at, edited_at, is_deleted,
		 reply_to_message_id, attachment_url, attachment_path, file_name, file_type, file_size, voice_duration)
		VALUES (:id, :container_id, :sender_id, :content, :created_at, :edited_at, :is_deleted,
		 :reply_to_message_id, :attachment_url, :attachment_path, :file_name, :file_type, :file_size, :voice_duration)`,
		table, col)

	if _, err := repo.db.NamedExecContext(ctx, q, repo.row(msg)); err != nil {
		return chat.Message{}, errors.Wrap(err, "inserting message")
	}
	return msg, nil
}

func (repo messageRepository) UpdateMessageContent(ctx context.Context, container chat.Container, id, content string, editedAt time.Time) error {
	table, col := repo.table(container.Kind)
	q := fmt.Sprintf("UPDATE %s SET content = $1, edited_at = $2 WHERE %s = $3 AND id = $4", table, col)

	res, err := repo.db.ExecContext(ctx, q, content, editedAt.UTC(), container.ID, id)
	if err != nil {
		return errors.Wrap(err, "updating message content")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return chat.ErrNotFound
	}
	return nil
}

func (repo messageRepository) MarkMessageDeleted(ctx context.Context, container chat.Container, id, placeholder string) error {
	table, col := repo.table(container.Kind)
	// attachment columns are cleared so no render path can resurrect the file
	q := fmt.Sprintf(`UPDATE %s SET is_deleted = true, content = $1,
		attachment_url = NULL, attachment_path = NULL, file_name = NULL,
		file_type = NULL, file_size = NULL, voice_duration = NULL
		WHERE %s = $2 AND id = $3`, table, col)

	res, err := repo.db.ExecContext(ctx, q, placeholder, container.ID, id)
	if err != nil {
		return errors.Wrap(err, "marking message deleted")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return chat.ErrNotFound
	}
	return nil
}

func (repo messageRepository) UpsertTypingIndicator(ctx context.Context, container chat.Container, userID string, at time.Time) error {
	q := `INSERT INTO typing_indicators (container_id, container_kind, user_id, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (container_id, user_id) DO UPDATE SET updated_at = EXCLUDED.updated_at`

	if _, err := repo.db.ExecContext(ctx, q, container.ID, container.Kind, userID, at.UTC()); err != nil {
		return errors.Wrap(err, "upserting typing indicator")
	}
	return nil
}

type pinnedRow struct {
	ID            string    `db:"id"`
	ContainerID   string    `db:"container_id"`
	ContainerKind string    `db:"container_kind"`
	MessageID     string    `db:"message_id"`
	PinnedBy      string    `db:"pinned_by"`
	PinnedAt      time.Time `db:"pinned_at"`
}

func (repo messageRepository) PinMessage(ctx context.Context, pin chat.PinnedMessage) (chat.PinnedMessage, error) {
	q := `INSERT INTO pinned_messages (id, container_id, container_kind, message_id, pinned_by, pinned_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (container_id, message_id) DO NOTHING`

	_, err := repo.db.ExecContext(ctx, q, pin.ID, pin.ContainerID, pin.ContainerKind, pin.MessageID, pin.PinnedBy, pin.PinnedAt.UTC())
	if err != nil {
		return chat.PinnedMessage{}, errors.Wrap(err, "pinning message")
	}
	return pin, nil
}

func (repo messageRepository) UnpinMessage(ctx context.Context, container chat.Container, messageID string) error {
	q := "DELETE FROM pinned_messages WHERE container_id = $1 AND message_id = $2"
	if _, err := repo.db.ExecContext(ctx, q, container.ID, messageID); err != nil {
		return errors.Wrap(err, "unpinning message")
	}
	return nil
}

func (repo messageRepository) QueryPinnedMessages(ctx context.Context, container chat.Container) ([]chat.PinnedMessage, error) {
	q := `SELECT id, container_id, container_kind, message_id, pinned_by, pinned_at
		FROM pinned_messages WHERE container_id = $1 ORDER BY pinned_at`

	var rows []pinnedRow
	if err := repo.db.SelectContext(ctx, &rows, q, container.ID); err != nil {
		return nil, errors.Wrap(err, "querying pinned messages")
	}

	pins := make([]chat.PinnedMessage, 0, len(rows))
	for _, row := range rows {
		pins = append(pins, chat.PinnedMessage{
			ID:            row.ID,
			ContainerID:   row.ContainerID,
			ContainerKind: chat.ContainerKind(row.ContainerKind),
			MessageID:     row.MessageID,
			PinnedBy:      row.PinnedBy,
			PinnedAt:      row.PinnedAt,
		})
	}
	return pins, nil
}
