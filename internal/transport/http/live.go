package http

import (
	"log/slog"
	"net/http"

	"qr_photo/internal/lib/logger/sl"
	"qr_photo/internal/live"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// the bearer token gates the feed, browsers on any origin may connect
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// LiveSession godoc
// @Summary Live photo feed
// @Description Websocket that pushes a JSON event for every photo uploaded to or deleted from the session. Browsers pass the access token as ?token=.
// @Tags sessions
// @Param id path string true "Session ID" format(uuid)
// @Param token query string false "Access token when no Authorization header can be sent"
// @Success 101 {object} models.PhotoEvent
// @Failure 401 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/sessions/{id}/live [get]
func (r *Routers) LiveSession(c echo.Context) error {
	const op = "http.routers.LiveSession"

	log := r.log.With(
		slog.String("op", op),
	)

	id, err := pathUUID(c, "id", errSessionNotFound)
	if err != nil {
		return fail(c, log, err)
	}

	ctx := c.Request().Context()

	if _, err := r.SessionService.GetSession(ctx, currentUser(c), id); err != nil {
		return fail(c, log, err)
	}

	sub, err := r.Live.Subscribe(ctx, id)
	if err != nil {
		return fail(c, log, err)
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader has already answered the request
		r.Live.Unsubscribe(sub)
		log.Warn("websocket upgrade failed", sl.Err(err))
		return nil
	}

	log.Info("live feed opened", slog.String("session_id", id.String()), slog.String("user", currentUser(c).Username))

	live.Stream(ctx, log, r.Live, sub, conn)

	return nil
}
