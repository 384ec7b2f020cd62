package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasa-app/gumzo/core/group"
)

type groupApi struct {
	svc      *group.Service
	validate *validator.Validate
}

func registerGroupAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *group.Service, validate *validator.Validate) {
	api := groupApi{svc: svc, validate: validate}

	gg := g.Group("/groups", jwt)
	gg.POST("", api.create)
	gg.GET("", api.query)
	gg.GET("/:groupID/members", api.members, api.memberMiddleware())
	gg.POST("/:groupID/invitations", api.invite, api.memberMiddleware())

	g.POST("/invitations/:invitationID/accept", api.accept, jwt)
	g.POST("/conversations", api.conversation, jwt)
}

type ConversationRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

// memberMiddleware gates group detail endpoints to members.
func (api *groupApi) memberMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			identity, err := currentIdentity(ctx)
			if err != nil {
				return err
			}
			ok, err := api.svc.IsMember(ctx.Request().Context(), ctx.Param("groupID"), identity.ID)
			if err != nil {
				return errors.Wrap(err, "checking group membership")
			}
			if !ok {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}

// Handlers

func (api *groupApi) create(ctx echo.Context) error {
	var data group.NewGroup
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGroup")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	identity, err := currentIdentity(ctx)
	if err != nil {
		return err
	}

	g, err := api.svc.Create(ctx.Request().Context(), data, identity)
	if err != nil {
		return errors.Wrap(err, "creating group")
	}
	return ctx.JSON(http.StatusCreated, g)
}

func (api *groupApi) query(ctx echo.Context) error {
	identity, err := currentIdentity(ctx)
	if err != nil {
		return err
	}

	groups, err := api.svc.QueryByMember(ctx.Request().Context(), identity.ID)
	if err != nil {
		return errors.Wrap(err, "querying groups")
	}
	if groups == nil {
		groups = []group.Group{}
	}
	return ctx.JSON(http.StatusOK, groups)
}

func (api *groupApi) members(ctx echo.Context) error {
	members, err := api.svc.Members(ctx.Request().Context(), ctx.Param("groupID"))
	if err != nil {
		return errors.Wrap(err, "querying members")
	}
	if members == nil {
		members = []group.Member{}
	}
	return ctx.JSON(http.StatusOK, members)
}

func (api *groupApi) invite(ctx echo.Context) error {
	var data group.InviteMember
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to InviteMember")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	identity, err := currentIdentity(ctx)
	if err != nil {
		return err
	}

	inv, err := api.svc.Invite(ctx.Request().Context(), ctx.Param("groupID"), data, identity)
	if err != nil {
		return errors.Wrap(err, "inviting member")
	}
	return ctx.JSON(http.StatusCreated, inv)
}

func (api *groupApi) accept(ctx echo.Context) error {
	identity, err := currentIdentity(ctx)
	if err != nil {
		return err
	}

	member, err := api.svc.Accept(ctx.Request().Context(), ctx.Param("invitationID"), identity)
	if err != nil {
		return errors.Wrap(err, "accepting invitation")
	}
	return ctx.JSON(http.StatusOK, member)
}

func (api *groupApi) conversation(ctx echo.Context) error {
	var data ConversationRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ConversationRequest")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	identity, err := currentIdentity(ctx)
	if err != nil {
		return err
	}

	conv, err := api.svc.Conversation(ctx.Request().Context(), identity.ID, data.UserID)
	if err != nil {
		return errors.Wrap(err, "getting conversation")
	}
	return ctx.JSON(http.StatusOK, conv)
}
