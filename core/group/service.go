package group

import (
	"context"
	"errors"
	"net/mail"
	"time"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"

	"github.com/darasa-app/gumzo/core"
	"github.com/darasa-app/gumzo/core/profile"
)

var (
	// errors
	ErrNotFound           = errors.New("group not found")
	ErrInvitationNotFound = errors.New("invitation not found")
	ErrInvitationClosed   = errors.New("invitation is no longer open")
	ErrAlreadyMember      = errors.New("user is already a member of this group")
)

var NowFunc = time.Now // mockable

type (
	Repository interface {
		GetGroupByID(ctx context.Context, id string) (Group, error)
		QueryGroupsByMember(ctx context.Context, userID string) ([]Group, error)
		CreateGroup(ctx context.Context, g Group) (Group, error)
		QueryMembers(ctx context.Context, groupID string) ([]Member, error)
		AddMember(ctx context.Context, m Member) (Member, error)
		IsMember(ctx context.Context, groupID, userID string) (bool, error)
		CreateInvitation(ctx context.Context, inv Invitation) (Invitation, error)
		GetInvitationByID(ctx context.Context, id string) (Invitation, error)
		UpdateInvitationStatus(ctx context.Context, id, status string, at time.Time) error
		// ExpireInvitationsBefore closes pending invitations created before
		// the cutoff and returns how many were touched.
		ExpireInvitationsBefore(ctx context.Context, cutoff time.Time) (int64, error)
		GetOrCreateConversation(ctx context.Context, userA, userB string) (Conversation, error)
		GetConversationByID(ctx context.Context, id string) (Conversation, error)
	}

	Service struct {
		repo     Repository
		mailSvc  core.EmailService
		profiles *profile.Service
		conf     *core.Config
	}
)

func NewService(repo Repository, mailSvc core.EmailService, profiles *profile.Service, conf *core.Config) *Service {
	return &Service{repo: repo, mailSvc: mailSvc, profiles: profiles, conf: conf}
}

func (svc *Service) Create(ctx context.Context, ng NewGroup, owner core.Identity) (Group, error) {
	now := NowFunc().UTC()
	grp := Group{
		ID:        uuid.New().String(),
		Name:      ng.Name,
		OwnerID:   owner.ID,
		CreatedAt: now,
	}
	grp, err := svc.repo.CreateGroup(ctx, grp)
	if err != nil {
		return Group{}, pkgerrors.Wrap(err, "creating group")
	}

	_, err = svc.repo.AddMember(ctx, Member{
		GroupID:  grp.ID,
		UserID:   owner.ID,
		Role:     RoleOwner,
		JoinedAt: now,
	})
	if err != nil {
		return Group{}, pkgerrors.Wrap(err, "adding owner member")
	}
	return grp, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (Group, error) {
	return svc.repo.GetGroupByID(ctx, id)
}

func (svc *Service) QueryByMember(ctx context.Context, userID string) ([]Group, error) {
	return svc.repo.QueryGroupsByMember(ctx, userID)
}

func (svc *Service) Members(ctx context.Context, groupID string) ([]Member, error) {
	return svc.repo.QueryMembers(ctx, groupID)
}

// MemberIDs returns the roster as a plain id set; this is the member scope
// restricting mention autocomplete in group context.
func (svc *Service) MemberIDs(ctx context.Context, groupID string) ([]string, error) {
	members, err := svc.repo.QueryMembers(ctx, groupID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "querying members")
	}
	ids := make([]string, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.UserID)
	}
	return ids, nil
}

func (svc *Service) IsMember(ctx context.Context, groupID, userID string) (bool, error) {
	return svc.repo.IsMember(ctx, groupID, userID)
}

// Invite creates a pending invitation and emails the invitee.
func (svc *Service) Invite(ctx context.Context, groupID string, im InviteMember, inviter core.Identity) (Invitation, error) {
	grp, err := svc.repo.GetGroupByID(ctx, groupID)
	if err != nil {
		return Invitation{}, err
	}

	now := NowFunc().UTC()
	inv := Invitation{
		ID:        uuid.New().String(),
		GroupID:   grp.ID,
		Email:     im.Email,
		InvitedBy: inviter.ID,
		Status:    InvitationPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	inv, err = svc.repo.CreateInvitation(ctx, inv)
	if err != nil {
		return Invitation{}, pkgerrors.Wrap(err, "creating invitation")
	}

	inviterProfile := svc.profiles.Get(ctx, inviter.ID)
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Address: inv.Email}},
		Subject:      "You have been invited to " + grp.Name,
		TemplateName: "group-invitation",
		TemplateData: map[string]interface{}{
			"InviterName":  inviterProfile.DisplayLabel(),
			"GroupName":    grp.Name,
			"InvitationID": inv.ID,
		},
	})
	return inv, nil
}

// Accept closes a pending invitation and adds the accepting user to the
// roster.
func (svc *Service) Accept(ctx context.Context, invitationID string, user core.Identity) (Member, error) {
	inv, err := svc.repo.GetInvitationByID(ctx, invitationID)
	if err != nil {
		return Member{}, err
	}
	if inv.Status != InvitationPending {
		return Member{}, ErrInvitationClosed
	}

	isMember, err := svc.repo.IsMember(ctx, inv.GroupID, user.ID)
	if err != nil {
		return Member{}, pkgerrors.Wrap(err, "checking membership")
	}
	if isMember {
		return Member{}, ErrAlreadyMember
	}

	now := NowFunc().UTC()
	member, err := svc.repo.AddMember(ctx, Member{
		GroupID:  inv.GroupID,
		UserID:   user.ID,
		Role:     RoleMember,
		JoinedAt: now,
	})
	if err != nil {
		return Member{}, pkgerrors.Wrap(err, "adding member")
	}
	if err = svc.repo.UpdateInvitationStatus(ctx, inv.ID, InvitationAccepted, now); err != nil {
		return Member{}, pkgerrors.Wrap(err, "closing invitation")
	}
	return member, nil
}

// ExpireInvitations closes pending invitations older than maxAge.
func (svc *Service) ExpireInvitations(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := NowFunc().UTC().Add(-maxAge)
	n, err := svc.repo.ExpireInvitationsBefore(ctx, cutoff)
	return n, pkgerrors.Wrap(err, "expiring invitations")
}

// Conversation returns the direct conversation between the two users,
// creating it on first contact.
func (svc *Service) Conversation(ctx context.Context, userA, userB string) (Conversation, error) {
	conv, err := svc.repo.GetOrCreateConversation(ctx, userA, userB)
	return conv, pkgerrors.Wrap(err, "resolving conversation")
}

func (svc *Service) ConversationByID(ctx context.Context, id string) (Conversation, error) {
	return svc.repo.GetConversationByID(ctx, id)
}
