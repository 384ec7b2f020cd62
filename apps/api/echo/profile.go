package echoapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasa-app/gumzo/core/profile"
)

type profileApi struct {
	svc *profile.Service
}

func registerProfileAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *profile.Service) {
	api := profileApi{svc: svc}

	pg := g.Group("/profiles", jwt)
	pg.GET("", api.resolve)
	pg.GET("/:id", api.retrieve)
	pg.GET("/:id/presence", api.presence)

	g.POST("/presence/heartbeat", api.heartbeat, jwt)
}

type PresenceResponse struct {
	Online bool   `json:"online"`
	Label  string `json:"label"`
}

// Handlers

// resolve batch-fetches display metadata: GET /profiles?ids=a,b,c
func (api *profileApi) resolve(ctx echo.Context) error {
	raw := strings.TrimSpace(ctx.QueryParam("ids"))
	if raw == "" {
		return ctx.JSON(http.StatusOK, map[string]profile.Profile{})
	}

	profiles, err := api.svc.Resolve(ctx.Request().Context(), strings.Split(raw, ","))
	if err != nil {
		return errors.Wrap(err, "resolving profiles")
	}
	return ctx.JSON(http.StatusOK, profiles)
}

func (api *profileApi) retrieve(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.svc.Get(ctx.Request().Context(), ctx.Param("id")))
}

func (api *profileApi) presence(ctx echo.Context) error {
	prof := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	return ctx.JSON(http.StatusOK, PresenceResponse{
		Online: profile.IsOnline(prof.LastSeenAt),
		Label:  profile.Describe(prof.LastSeenAt),
	})
}

func (api *profileApi) heartbeat(ctx echo.Context) error {
	identity, err := currentIdentity(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Heartbeat(ctx.Request().Context(), identity.ID); err != nil {
		return errors.Wrap(err, "recording heartbeat")
	}
	return ctx.NoContent(http.StatusNoContent)
}
