package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/darasa-app/gumzo/core/group"
)

type groupRepository struct {
	db *sqlx.DB
}

var _ group.Repository = (*groupRepository)(nil) // interface compliance check

func NewGroupRepository(db *sqlx.DB) *groupRepository {
	return &groupRepository{db: db}
}

// trapNoRowsErr maps psql "no rows" err to group.ErrNotFound
func (repo groupRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return group.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo groupRepository) GetGroupByID(ctx context.Context, id string) (group.Group, error) {
	var g group.Group
	q := `SELECT id, name, owner_id AS "ownerid", created_at AS "createdat" FROM groups WHERE id = $1`
	if err := repo.db.GetContext(ctx, &g, q, id); err != nil {
		return group.Group{}, repo.trapNoRowsErr(err, "finding group by ID")
	}
	return g, nil
}

func (repo groupRepository) QueryGroupsByMember(ctx context.Context, userID string) ([]group.Group, error) {
	q := `SELECT g.id, g.name, g.owner_id AS "ownerid", g.created_at AS "createdat"
		FROM groups g
		JOIN group_members m ON m.group_id = g.id
		WHERE m.user_id = $1
		ORDER BY g.name`

	var groups []group.Group
	if err := repo.db.SelectContext(ctx, &groups, q, userID); err != nil {
		return nil, errors.Wrap(err, "querying groups by member")
	}
	return groups, nil
}

func (repo groupRepository) CreateGroup(ctx context.Context, g group.Group) (group.Group, error) {
	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	q := "INSERT INTO groups (id, name, owner_id, created_at) VALUES ($1, $2, $3, $4)"
	if _, err := repo.db.ExecContext(ctx, q, g.ID, g.Name, g.OwnerID, g.CreatedAt.UTC()); err != nil {
		return group.Group{}, errors.Wrap(err, "inserting group")
	}
	return g, nil
}

func (repo groupRepository) QueryMembers(ctx context.Context, groupID string) ([]group.Member, error) {
	q := `SELECT group_id AS "groupid", user_id AS "userid", role, joined_at AS "joinedat"
		FROM group_members WHERE group_id = $1 ORDER BY joined_at`

	var members []group.Member
	if err := repo.db.SelectContext(ctx, &members, q, groupID); err != nil {
		return nil, errors.Wrap(err, "querying group members")
	}
	return members, nil
}

func (repo groupRepository) AddMember(ctx context.Context, m group.Member) (group.Member, error) {
	q := `INSERT INTO group_members (group_id, user_id, role, joined_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (group_id, user_id) DO NOTHING`
	if _, err := repo.db.ExecContext(ctx, q, m.GroupID, m.UserID, m.Role, m.JoinedAt.UTC()); err != nil {
		return group.Member{}, errors.Wrap(err, "inserting group member")
	}
	return m, nil
}

func (repo groupRepository) IsMember(ctx context.Context, groupID, userID string) (bool, error) {
	var exists bool
	q := "SELECT EXISTS (SELECT 1 FROM group_members WHERE group_id = $1 AND user_id = $2)"
	if err := repo.db.GetContext(ctx, &exists, q, groupID, userID); err != nil {
		return false, errors.Wrap(err, "checking group membership")
	}
	return exists, nil
}

func (repo groupRepository) CreateInvitation(ctx context.Context, inv group.Invitation) (group.Invitation, error) {
	q := `INSERT INTO group_invitations (id, group_id, email, invited_by, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := repo.db.ExecContext(ctx, q,
		inv.ID, inv.GroupID, inv.Email, inv.InvitedBy, inv.Status, inv.CreatedAt.UTC(), inv.UpdatedAt.UTC())
	if err != nil {
		return group.Invitation{}, errors.Wrap(err, "inserting invitation")
	}
	return inv, nil
}

func (repo groupRepository) GetInvitationByID(ctx context.Context, id string) (group.Invitation, error) {
	var inv group.Invitation
	q := `SELECT id, group_id AS "groupid", email, invited_by AS "invitedby", status,
		created_at AS "createdat", updated_at AS "updatedat"
		FROM group_invitations WHERE id = $1`
	if err := repo.db.GetContext(ctx, &inv, q, id); err != nil {
		if err == sql.ErrNoRows {
			return group.Invitation{}, group.ErrInvitationNotFound
		}
		return group.Invitation{}, errors.Wrap(err, "finding invitation by ID")
	}
	return inv, nil
}

func (repo groupRepository) UpdateInvitationStatus(ctx context.Context, id, status string, at time.Time) error {
	q := "UPDATE group_invitations SET status = $1, updated_at = $2 WHERE id = $3"
	res, err := repo.db.ExecContext(ctx, q, status, at.UTC(), id)
	if err != nil {
		return errors.Wrap(err, "updating invitation status")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return group.ErrInvitationNotFound
	}
	return nil
}

func (repo groupRepository) ExpireInvitationsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	q := "UPDATE group_invitations SET status = $1, updated_at = $2 WHERE status = $3 AND created_at < $4"
	res, err := repo.db.ExecContext(ctx, q, group.InvitationExpired, time.Now().UTC(), group.InvitationPending, cutoff.UTC())
	if err != nil {
		return 0, errors.Wrap(err, "expiring invitations")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "expiring invitations")
	}
	return n, nil
}

func (repo groupRepository) GetOrCreateConversation(ctx context.Context, userA, userB string) (group.Conversation, error) {
	// participants are stored ordered so each pair maps to a single row
	if userB < userA {
		userA, userB = userB, userA
	}

	var conv group.Conversation
	q := `SELECT id, user_a AS "usera", user_b AS "userb", created_at AS "createdat"
		FROM conversations WHERE user_a = $1 AND user_b = $2`
	err := repo.db.GetContext(ctx, &conv, q, userA, userB)
	if err == nil {
		return conv, nil
	}
	if err != sql.ErrNoRows {
		return group.Conversation{}, errors.Wrap(err, "finding conversation")
	}

	conv = group.Conversation{ID: uuid.New().String(), UserA: userA, UserB: userB, CreatedAt: time.Now().UTC()}
	iq := `INSERT INTO conversations (id, user_a, user_b, created_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_a, user_b) DO NOTHING`
	if _, err = repo.db.ExecContext(ctx, iq, conv.ID, conv.UserA, conv.UserB, conv.CreatedAt); err != nil {
		return group.Conversation{}, errors.Wrap(err, "inserting conversation")
	}

	// re-read in case a concurrent insert won the conflict
	if err = repo.db.GetContext(ctx, &conv, q, userA, userB); err != nil {
		return group.Conversation{}, errors.Wrap(err, "finding conversation")
	}
	return conv, nil
}

func (repo groupRepository) GetConversationByID(ctx context.Context, id string) (group.Conversation, error) {
	var conv group.Conversation
	q := `SELECT id, user_a AS "usera", user_b AS "userb", created_at AS "createdat"
		FROM conversations WHERE id = $1`
	if err := repo.db.GetContext(ctx, &conv, q, id); err != nil {
		return group.Conversation{}, repo.trapNoRowsErr(err, "finding conversation by ID")
	}
	return conv, nil
}
