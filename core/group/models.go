package group

import (
	"time"

	"github.com/darasa-app/gumzo/core"
)

// Member roles within a group.
const (
	RoleOwner  = "owner"
	RoleMember = "member"
)

// Invitation statuses.
const (
	InvitationPending  = "pending"
	InvitationAccepted = "accepted"
	InvitationExpired  = "expired"
)

type Group struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

type Member struct {
	GroupID  string    `json:"group_id"`
	UserID   string    `json:"user_id"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"` // UTC
}

type Invitation struct {
	ID        string    `json:"id"`
	GroupID   string    `json:"group_id"`
	Email     string    `json:"email"`
	InvitedBy string    `json:"invited_by"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// Conversation is a one-to-one direct chat between two users.
type Conversation struct {
	ID        string    `json:"id"`
	UserA     string    `json:"user_a"`
	UserB     string    `json:"user_b"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

// Includes reports whether the user is one of the two participants.
func (c Conversation) Includes(userID string) bool {
	return c.UserA == userID || c.UserB == userID
}

// Other returns the participant facing userID.
func (c Conversation) Other(userID string) string {
	if c.UserA == userID {
		return c.UserB
	}
	return c.UserA
}

// NewGroup contains information needed to create a new Group.
type NewGroup struct {
	Name string `json:"name" validate:"required,alphanum_"`
}

func (ng *NewGroup) Validate(v Validator) error {
	ng.Name = core.CleanString(ng.Name)
	return v.Struct(ng)
}

// InviteMember defines an invitation request.
type InviteMember struct {
	Email string `json:"email" validate:"required,email"`
}

func (im *InviteMember) Validate(v Validator) error {
	im.Email = core.CleanString(im.Email, true /* lower */)
	return v.Struct(im)
}

// Validator is the subset of *validator.Validate the group domain needs.
type Validator interface {
	Struct(s interface{}) error
}
