package echoapi

import (
	"io/ioutil"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasa-app/gumzo/core/chat"
	"github.com/darasa-app/gumzo/core/group"
	"github.com/darasa-app/gumzo/core/profile"
)

type chatApi struct {
	svc      *chat.Service
	groupSvc *group.Service
	validate *validator.Validate
}

func registerChatAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := chatApi{
		svc:      deps.ChatSvc,
		groupSvc: deps.GroupSvc,
		validate: deps.Validate,
	}

	cg := g.Group("/chats/:kind/:id", jwt, containerMiddleware(api.groupSvc))
	cg.GET("", api.view)
	cg.POST("/messages", api.send)
	cg.POST("/messages/voice", api.sendVoice)
	cg.POST("/messages/files", api.sendFile)
	cg.PUT("/messages/:messageID", api.edit)
	cg.DELETE("/messages/:messageID", api.destroy)
	cg.POST("/messages/:messageID/forward", api.forward)
	cg.POST("/messages/:messageID/pin", api.pin)
	cg.DELETE("/messages/:messageID/pin", api.unpin)
	cg.GET("/pins", api.pins)
	cg.POST("/typing", api.typing)
	cg.GET("/mentions", api.mentions)
}

type (
	SendMessageRequest struct {
		Content          string `json:"content"`
		ReplyToMessageID string `json:"reply_to_message_id,omitempty"`
	}

	ChatViewResponse struct {
		Messages []chat.Message             `json:"messages"`
		Senders  map[string]profile.Profile `json:"senders"`
		Collages []chat.Collage             `json:"collages"`
		Pins     []chat.PinnedMessage       `json:"pins"`
	}

	ForwardRequest struct {
		Destinations []chat.Container `json:"destinations" validate:"required,min=1"`
	}

	MentionResponse struct {
		Suggestions []profile.Profile `json:"suggestions"`
	}
)

// mount opens a live stream for the request's container and viewer. Callers
// must Close it before returning.
func (api *chatApi) mount(ctx echo.Context) (*chat.Stream, error) {
	container, err := getContextContainer(ctx)
	if err != nil {
		return nil, err
	}
	viewer, err := currentIdentity(ctx)
	if err != nil {
		return nil, err
	}
	return api.svc.Stream(ctx.Request().Context(), container, viewer)
}

// Handlers

func (api *chatApi) view(ctx echo.Context) error {
	stream, err := api.mount(ctx)
	if err != nil {
		return errors.Wrap(err, "mounting stream")
	}
	defer func() { _ = stream.Close() }()

	messages := stream.Messages()
	senders, err := api.svc.ResolveSenders(ctx.Request().Context(), messages)
	if err != nil {
		return errors.Wrap(err, "resolving senders")
	}
	pins, err := api.svc.Pins(ctx.Request().Context(), stream.Container())
	if err != nil {
		return errors.Wrap(err, "querying pins")
	}
	if pins == nil {
		pins = []chat.PinnedMessage{}
	}

	return ctx.JSON(http.StatusOK, ChatViewResponse{
		Messages: messages,
		Senders:  senders,
		Collages: stream.Collages(),
		Pins:     pins,
	})
}

func (api *chatApi) send(ctx echo.Context) error {
	var data SendMessageRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SendMessageRequest")
	}

	stream, err := api.mount(ctx)
	if err != nil {
		return errors.Wrap(err, "mounting stream")
	}
	defer func() { _ = stream.Close() }()

	msg, err := stream.Send(ctx.Request().Context(), data.Content, data.ReplyToMessageID)
	if err != nil {
		return errors.Wrap(err, "sending message")
	}
	if msg == nil { // whitespace-only content: composer no-op
		return ctx.NoContent(http.StatusNoContent)
	}
	return ctx.JSON(http.StatusCreated, msg)
}

func (api *chatApi) sendVoice(ctx echo.Context) error {
	blob, _, err := readFormFile(ctx, "voice")
	if err != nil {
		return err
	}
	duration, _ := strconv.Atoi(ctx.FormValue("duration"))

	stream, err := api.mount(ctx)
	if err != nil {
		return errors.Wrap(err, "mounting stream")
	}
	defer func() { _ = stream.Close() }()

	msg, err := stream.SendVoice(ctx.Request().Context(), blob, duration)
	if err != nil {
		return errors.Wrap(err, "sending voice message")
	}
	return ctx.JSON(http.StatusCreated, msg)
}

func (api *chatApi) sendFile(ctx echo.Context) error {
	blob, fileName, err := readFormFile(ctx, "file")
	if err != nil {
		return err
	}

	stream, err := api.mount(ctx)
	if err != nil {
		return errors.Wrap(err, "mounting stream")
	}
	defer func() { _ = stream.Close() }()

	msg, err := stream.SendFile(ctx.Request().Context(), fileName, blob)
	if err != nil {
		return errors.Wrap(err, "sending file message")
	}
	return ctx.JSON(http.StatusCreated, msg)
}

func (api *chatApi) edit(ctx echo.Context) error {
	var data chat.EditMessage
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EditMessage")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	stream, err := api.mount(ctx)
	if err != nil {
		return errors.Wrap(err, "mounting stream")
	}
	defer func() { _ = stream.Close() }()

	if err = stream.Edit(ctx.Request().Context(), ctx.Param("messageID"), data.Content); err != nil {
		return errors.Wrap(err, "editing message")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *chatApi) destroy(ctx echo.Context) error {
	stream, err := api.mount(ctx)
	if err != nil {
		return errors.Wrap(err, "mounting stream")
	}
	defer func() { _ = stream.Close() }()

	if err = stream.SoftDelete(ctx.Request().Context(), ctx.Param("messageID")); err != nil {
		return errors.Wrap(err, "deleting message")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *chatApi) forward(ctx echo.Context) error {
	var data ForwardRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ForwardRequest")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	container, err := getContextContainer(ctx)
	if err != nil {
		return err
	}
	sender, err := currentIdentity(ctx)
	if err != nil {
		return err
	}

	// the sender must have access to every destination
	for _, dest := range data.Destinations {
		if err = api.checkAccess(ctx, dest, sender.ID); err != nil {
			return err
		}
	}

	source, err := api.svc.GetMessage(ctx.Request().Context(), container, ctx.Param("messageID"))
	if err != nil {
		return errors.Wrap(err, "finding source message")
	}

	res := api.svc.Forward(ctx.Request().Context(), sender, source, data.Destinations)
	return ctx.JSON(http.StatusOK, res)
}

func (api *chatApi) checkAccess(ctx echo.Context, dest chat.Container, userID string) error {
	switch dest.Kind {
	case chat.ContainerGroup:
		ok, err := api.groupSvc.IsMember(ctx.Request().Context(), dest.ID, userID)
		if err != nil {
			return errors.Wrap(err, "checking group membership")
		}
		if !ok {
			return errHttpForbidden
		}
	case chat.ContainerDirect:
		conv, err := api.groupSvc.ConversationByID(ctx.Request().Context(), dest.ID)
		if err != nil {
			return errors.Wrap(err, "finding conversation")
		}
		if !conv.Includes(userID) {
			return errHttpForbidden
		}
	default:
		return errHttpNotFound
	}
	return nil
}

func (api *chatApi) pin(ctx echo.Context) error {
	container, err := getContextContainer(ctx)
	if err != nil {
		return err
	}
	identity, err := currentIdentity(ctx)
	if err != nil {
		return err
	}

	pin, err := api.svc.Pin(ctx.Request().Context(), container, ctx.Param("messageID"), identity)
	if err != nil {
		return errors.Wrap(err, "pinning message")
	}
	return ctx.JSON(http.StatusCreated, pin)
}

func (api *chatApi) unpin(ctx echo.Context) error {
	container, err := getContextContainer(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Unpin(ctx.Request().Context(), container, ctx.Param("messageID")); err != nil {
		return errors.Wrap(err, "unpinning message")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *chatApi) pins(ctx echo.Context) error {
	container, err := getContextContainer(ctx)
	if err != nil {
		return err
	}
	pins, err := api.svc.Pins(ctx.Request().Context(), container)
	if err != nil {
		return errors.Wrap(err, "querying pins")
	}
	if pins == nil {
		pins = []chat.PinnedMessage{}
	}
	return ctx.JSON(http.StatusOK, pins)
}

func (api *chatApi) typing(ctx echo.Context) error {
	container, err := getContextContainer(ctx)
	if err != nil {
		return err
	}
	identity, err := currentIdentity(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.SetTyping(ctx.Request().Context(), container, identity.ID); err != nil {
		return errors.Wrap(err, "setting typing indicator")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *chatApi) mentions(ctx echo.Context) error {
	container, err := getContextContainer(ctx)
	if err != nil {
		return err
	}

	// group chats restrict suggestions to members; direct chats search globally
	var scopeIDs []string
	if container.Kind == chat.ContainerGroup {
		scopeIDs, err = api.groupSvc.MemberIDs(ctx.Request().Context(), container.ID)
		if err != nil {
			return errors.Wrap(err, "querying member IDs")
		}
	}

	suggestions, ok, err := api.svc.CompleteMention(ctx.Request().Context(), ctx.QueryParam("text"), scopeIDs)
	if err != nil {
		return errors.Wrap(err, "completing mention")
	}
	if !ok || suggestions == nil {
		suggestions = []profile.Profile{}
	}
	return ctx.JSON(http.StatusOK, MentionResponse{Suggestions: suggestions})
}

func readFormFile(ctx echo.Context, field string) (blob []byte, fileName string, err error) {
	fh, err := ctx.FormFile(field)
	if err != nil {
		return nil, "", echo.NewHTTPError(http.StatusBadRequest, field+" file is required")
	}
	f, err := fh.Open()
	if err != nil {
		return nil, "", errors.Wrap(err, "opening uploaded file")
	}
	defer func() { _ = f.Close() }()

	blob, err = ioutil.ReadAll(f)
	if err != nil {
		return nil, "", errors.Wrap(err, "reading uploaded file")
	}
	return blob, fh.Filename, nil
}
