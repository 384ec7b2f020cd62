package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/darasa-app/gumzo/core/group"
)

type GroupRepository struct {
	db *groupTable
}

var _ group.Repository = (*GroupRepository)(nil)

func NewGroupRepository(db *DB) *GroupRepository {
	return &GroupRepository{db: db.group}
}

func (repo *GroupRepository) GetGroupByID(_ context.Context, id string) (group.Group, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if g, ok := repo.db.groups[id]; ok {
		return *g, nil
	}
	return group.Group{}, group.ErrNotFound
}

func (repo *GroupRepository) QueryGroupsByMember(_ context.Context, userID string) ([]group.Group, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var groups []group.Group
	for gid, members := range repo.db.members {
		for _, m := range members {
			if m.UserID == userID {
				if g, ok := repo.db.groups[gid]; ok {
					groups = append(groups, *g)
				}
				break
			}
		}
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })
	return groups, nil
}

func (repo *GroupRepository) CreateGroup(_ context.Context, g group.Group) (group.Group, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	stored := g
	repo.db.groups[g.ID] = &stored
	return g, nil
}

func (repo *GroupRepository) QueryMembers(_ context.Context, groupID string) ([]group.Member, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	stored := repo.db.members[groupID]
	members := make([]group.Member, 0, len(stored))
	for _, m := range stored {
		members = append(members, *m)
	}
	return members, nil
}

func (repo *GroupRepository) AddMember(_ context.Context, m group.Member) (group.Member, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, existing := range repo.db.members[m.GroupID] {
		if existing.UserID == m.UserID {
			return *existing, nil
		}
	}
	stored := m
	repo.db.members[m.GroupID] = append(repo.db.members[m.GroupID], &stored)
	return m, nil
}

func (repo *GroupRepository) IsMember(_ context.Context, groupID, userID string) (bool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, m := range repo.db.members[groupID] {
		if m.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (repo *GroupRepository) CreateInvitation(_ context.Context, inv group.Invitation) (group.Invitation, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	stored := inv
	repo.db.invitations[inv.ID] = &stored
	return inv, nil
}

func (repo *GroupRepository) GetInvitationByID(_ context.Context, id string) (group.Invitation, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if inv, ok := repo.db.invitations[id]; ok {
		return *inv, nil
	}
	return group.Invitation{}, group.ErrInvitationNotFound
}

func (repo *GroupRepository) UpdateInvitationStatus(_ context.Context, id, status string, at time.Time) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	inv, ok := repo.db.invitations[id]
	if !ok {
		return group.ErrInvitationNotFound
	}
	inv.Status = status
	inv.UpdatedAt = at
	return nil
}

func (repo *GroupRepository) ExpireInvitationsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var n int64
	for _, inv := range repo.db.invitations {
		if inv.Status == group.InvitationPending && inv.CreatedAt.Before(cutoff) {
			inv.Status = group.InvitationExpired
			inv.UpdatedAt = time.Now().UTC()
			n++
		}
	}
	return n, nil
}

func (repo *GroupRepository) GetOrCreateConversation(_ context.Context, userA, userB string) (group.Conversation, error) {
	if userB < userA {
		userA, userB = userB, userA
	}

	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, conv := range repo.db.conversations {
		if conv.UserA == userA && conv.UserB == userB {
			return *conv, nil
		}
	}

	conv := group.Conversation{ID: uuid.New().String(), UserA: userA, UserB: userB, CreatedAt: time.Now().UTC()}
	stored := conv
	repo.db.conversations[conv.ID] = &stored
	return conv, nil
}

func (repo *GroupRepository) GetConversationByID(_ context.Context, id string) (group.Conversation, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if conv, ok := repo.db.conversations[id]; ok {
		return *conv, nil
	}
	return group.Conversation{}, group.ErrNotFound
}
