package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasa-app/gumzo/core/chat"
	"github.com/darasa-app/gumzo/core/group"
)

const containerContextKey = "container"

// containerMiddleware resolves the :kind/:id path pair into a chat.Container
// and gates access: group members only for group chats, the two participants
// only for direct conversations.
func containerMiddleware(groupSvc *group.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			identity, err := currentIdentity(ctx)
			if err != nil {
				return err
			}

			kind := chat.ContainerKind(ctx.Param("kind"))
			id := ctx.Param("id")

			switch kind {
			case chat.ContainerGroup:
				ok, err := groupSvc.IsMember(ctx.Request().Context(), id, identity.ID)
				if err != nil {
					return errors.Wrap(err, "checking group membership")
				}
				if !ok {
					return errHttpForbidden
				}
			case chat.ContainerDirect:
				conv, err := groupSvc.ConversationByID(ctx.Request().Context(), id)
				if err != nil {
					if errors.Cause(err) == group.ErrNotFound {
						return errHttpNotFound
					}
					return errors.Wrap(err, "finding conversation")
				}
				if !conv.Includes(identity.ID) {
					return errHttpForbidden
				}
			default:
				return errHttpNotFound
			}

			ctx.Set(containerContextKey, chat.Container{ID: id, Kind: kind})
			return next(ctx)
		}
	}
}

func getContextContainer(ctx echo.Context) (chat.Container, error) {
	if container, ok := ctx.Get(containerContextKey).(chat.Container); ok {
		return container, nil
	}
	return chat.Container{}, errors.New("container object not found in echo.Context")
}
