package group_test

import (
	"context"
	"testing"
	"time"

	"github.com/darasa-app/gumzo/core"
	"github.com/darasa-app/gumzo/core/group"
	"github.com/darasa-app/gumzo/core/profile"
	emailsvc "github.com/darasa-app/gumzo/services/email"
	inmemdb "github.com/darasa-app/gumzo/storage/database/inmem"
	testutil "github.com/darasa-app/gumzo/tests"
)

type groupFixture struct {
	repo     *inmemdb.GroupRepository
	profiles *inmemdb.ProfileRepository
	svc      *group.Service
}

func setup(t *testing.T) *groupFixture {
	t.Helper()

	conf := testutil.NewTestConfig()
	core.ParseEmailTemplates(conf, testutil.NopLogger{})

	db := inmemdb.NewDB()
	repo := inmemdb.NewGroupRepository(db)
	profRepo := inmemdb.NewProfileRepository(db)
	svc := group.NewService(
		repo,
		emailsvc.NewConsoleServiceMock(conf),
		profile.NewService(profRepo, profile.NewCache()),
		conf,
	)
	return &groupFixture{repo: repo, profiles: profRepo, svc: svc}
}

var (
	owner   = core.Identity{ID: "owner", Username: "mwalimu", Email: "mwalimu@darasa.app"}
	student = core.Identity{ID: "student", Username: "ali", Email: "ali@darasa.app"}
)

func TestService_Create(t *testing.T) {
	fix := setup(t)
	ctx := context.Background()

	grp, err := fix.svc.Create(ctx, group.NewGroup{Name: "Form 4 Physics"}, owner)
	if err != nil {
		t.Fatalf("Create(): %v", err)
	}
	if grp.OwnerID != owner.ID {
		t.Errorf("OwnerID = %s; want %s", grp.OwnerID, owner.ID)
	}

	isMember, err := fix.svc.IsMember(ctx, grp.ID, owner.ID)
	if err != nil {
		t.Fatalf("IsMember(): %v", err)
	}
	if !isMember {
		t.Error("owner is not on the roster after create")
	}

	members, err := fix.svc.Members(ctx, grp.ID)
	if err != nil {
		t.Fatalf("Members(): %v", err)
	}
	if len(members) != 1 || members[0].Role != group.RoleOwner {
		t.Errorf("members = %+v; want single owner entry", members)
	}
}

func TestService_InviteAndAccept(t *testing.T) {
	fix := setup(t)
	ctx := context.Background()

	testutil.CreateProfile(t, fix.profiles, owner.ID, "Mwalimu Juma", "mwalimu", time.Now().UTC())
	grp, err := fix.svc.Create(ctx, group.NewGroup{Name: "Form 4 Physics"}, owner)
	if err != nil {
		t.Fatalf("Create(): %v", err)
	}

	sentBefore := len(emailsvc.SentMessages)
	inv, err := fix.svc.Invite(ctx, grp.ID, group.InviteMember{Email: student.Email}, owner)
	if err != nil {
		t.Fatalf("Invite(): %v", err)
	}
	if inv.Status != group.InvitationPending {
		t.Errorf("Status = %s; want pending", inv.Status)
	}

	sent := emailsvc.SentMessages[sentBefore:]
	if len(sent) != 1 {
		t.Fatalf("sent emails = %d; want 1", len(sent))
	}
	if got := sent[0].To[0].Address; got != student.Email {
		t.Errorf("email to = %s; want %s", got, student.Email)
	}
	if sent[0].TextContent == "" {
		t.Error("invitation email has no rendered body")
	}

	t.Run("unknown group", func(t *testing.T) {
		if _, err := fix.svc.Invite(ctx, "nope", group.InviteMember{Email: student.Email}, owner); err != group.ErrNotFound {
			t.Errorf("Invite() = %v; want ErrNotFound", err)
		}
	})

	t.Run("accept joins the roster and closes the invitation", func(t *testing.T) {
		member, err := fix.svc.Accept(ctx, inv.ID, student)
		if err != nil {
			t.Fatalf("Accept(): %v", err)
		}
		if member.GroupID != grp.ID || member.Role != group.RoleMember {
			t.Errorf("member = %+v; want plain membership of %s", member, grp.ID)
		}

		closed, err := fix.repo.GetInvitationByID(ctx, inv.ID)
		if err != nil {
			t.Fatalf("GetInvitationByID(): %v", err)
		}
		if closed.Status != group.InvitationAccepted {
			t.Errorf("Status = %s; want accepted", closed.Status)
		}
	})

	t.Run("closed invitation cannot be accepted again", func(t *testing.T) {
		if _, err := fix.svc.Accept(ctx, inv.ID, core.Identity{ID: "someone-else"}); err != group.ErrInvitationClosed {
			t.Errorf("Accept() = %v; want ErrInvitationClosed", err)
		}
	})

	t.Run("existing member cannot accept", func(t *testing.T) {
		inv2, err := fix.svc.Invite(ctx, grp.ID, group.InviteMember{Email: student.Email}, owner)
		if err != nil {
			t.Fatalf("Invite(): %v", err)
		}
		if _, err = fix.svc.Accept(ctx, inv2.ID, student); err != group.ErrAlreadyMember {
			t.Errorf("Accept() = %v; want ErrAlreadyMember", err)
		}
	})

	t.Run("unknown invitation", func(t *testing.T) {
		if _, err := fix.svc.Accept(ctx, "nope", student); err != group.ErrInvitationNotFound {
			t.Errorf("Accept() = %v; want ErrInvitationNotFound", err)
		}
	})
}

func TestService_ExpireInvitations(t *testing.T) {
	fix := setup(t)
	ctx := context.Background()

	grp, err := fix.svc.Create(ctx, group.NewGroup{Name: "Form 4 Physics"}, owner)
	if err != nil {
		t.Fatalf("Create(): %v", err)
	}

	now := time.Date(2021, 6, 15, 12, 0, 0, 0, time.UTC)

	group.NowFunc = func() time.Time { return now.Add(-8 * 24 * time.Hour) }
	stale, err := fix.svc.Invite(ctx, grp.ID, group.InviteMember{Email: "old@darasa.app"}, owner)
	if err != nil {
		t.Fatalf("Invite(): %v", err)
	}
	group.NowFunc = func() time.Time { return now.Add(-time.Hour) }
	fresh, err := fix.svc.Invite(ctx, grp.ID, group.InviteMember{Email: "new@darasa.app"}, owner)
	if err != nil {
		t.Fatalf("Invite(): %v", err)
	}
	group.NowFunc = func() time.Time { return now }
	defer func() { group.NowFunc = time.Now }()

	n, err := fix.svc.ExpireInvitations(ctx, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("ExpireInvitations(): %v", err)
	}
	if n != 1 {
		t.Errorf("expired = %d; want 1", n)
	}

	got, err := fix.repo.GetInvitationByID(ctx, stale.ID)
	if err != nil {
		t.Fatalf("GetInvitationByID(): %v", err)
	}
	if got.Status != group.InvitationExpired {
		t.Errorf("stale Status = %s; want expired", got.Status)
	}
	got, err = fix.repo.GetInvitationByID(ctx, fresh.ID)
	if err != nil {
		t.Fatalf("GetInvitationByID(): %v", err)
	}
	if got.Status != group.InvitationPending {
		t.Errorf("fresh Status = %s; want still pending", got.Status)
	}
}

func TestService_Conversation(t *testing.T) {
	fix := setup(t)
	ctx := context.Background()

	conv, err := fix.svc.Conversation(ctx, "bob", "alice")
	if err != nil {
		t.Fatalf("Conversation(): %v", err)
	}
	if !conv.Includes("alice") || !conv.Includes("bob") {
		t.Errorf("conversation = %+v; want both participants", conv)
	}

	// same pair in either order resolves to the same conversation
	again, err := fix.svc.Conversation(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("Conversation(): %v", err)
	}
	if again.ID != conv.ID {
		t.Errorf("ID = %s; want %s", again.ID, conv.ID)
	}

	byID, err := fix.svc.ConversationByID(ctx, conv.ID)
	if err != nil {
		t.Fatalf("ConversationByID(): %v", err)
	}
	if byID.Other("alice") != "bob" {
		t.Errorf("Other(alice) = %s; want bob", byID.Other("alice"))
	}

	if _, err = fix.svc.ConversationByID(ctx, "nope"); err != group.ErrNotFound {
		t.Errorf("ConversationByID(nope) = %v; want ErrNotFound", err)
	}
}
