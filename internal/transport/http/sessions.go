package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"qr_photo/internal/lib/apperr"
	"qr_photo/internal/transport/http/dto"
	"qr_photo/internal/transport/http/dto/response"

	"github.com/labstack/echo/v4"
)

var errSessionNotFound = apperr.NotFound("session not found")

// CreateSession godoc
// @Summary Create session
// @Description Creates an active event session owned by the current user.
// @Tags sessions
// @Accept json
// @Produce json
// @Param request body dto.CreateSessionRequest true "Session"
// @Success 201 {object} models.Session
// @Failure 400 {object} response.ErrorResponse "Name is missing"
// @Failure 401 {object} response.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/sessions [post]
func (r *Routers) CreateSession(c echo.Context) error {
	const op = "http.routers.CreateSession"

	log := r.log.With(
		slog.String("op", op),
	)

	var req dto.CreateSessionRequest

	if err := bindAndValidate(c, &req); err != nil {
		return invalidRequest(c, log, err)
	}

	session, err := r.SessionService.CreateSession(c.Request().Context(), currentUser(c), req.Name, req.Description)
	if err != nil {
		return fail(c, log, err)
	}

	return c.JSON(http.StatusCreated, session)
}

// ListSessions godoc
// @Summary List sessions
// @Description Sessions visible to the current user, newest first. Only active sessions are listed unless active is false or all.
// @Tags sessions
// @Produce json
// @Param active query string false "true (default), false or all"
// @Success 200 {array} models.Session
// @Failure 400 {object} response.ErrorResponse
// @Failure 401 {object} response.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/sessions [get]
func (r *Routers) ListSessions(c echo.Context) error {
	const op = "http.routers.ListSessions"

	log := r.log.With(
		slog.String("op", op),
	)

	var active *bool

	switch raw := c.QueryParam("active"); raw {
	case "all":
	case "":
		t := true
		active = &t
	default:
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, response.Validation("active must be true, false or all"))
		}
		active = &v
	}

	sessions, err := r.SessionService.ListSessions(c.Request().Context(), currentUser(c), active)
	if err != nil {
		return fail(c, log, err)
	}

	return c.JSON(http.StatusOK, sessions)
}

// GetSession godoc
// @Summary Get session
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID" format(uuid)
// @Success 200 {object} models.Session
// @Failure 403 {object} response.ErrorResponse "Session outside the allow-list"
// @Failure 404 {object} response.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/sessions/{id} [get]
func (r *Routers) GetSession(c echo.Context) error {
	const op = "http.routers.GetSession"

	log := r.log.With(
		slog.String("op", op),
	)

	id, err := pathUUID(c, "id", errSessionNotFound)
	if err != nil {
		return fail(c, log, err)
	}

	session, err := r.SessionService.GetSession(c.Request().Context(), currentUser(c), id)
	if err != nil {
		return fail(c, log, err)
	}

	return c.JSON(http.StatusOK, session)
}

// UpdateSession godoc
// @Summary Toggle session uploads
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID" format(uuid)
// @Param request body dto.UpdateSessionRequest true "New state"
// @Success 200 {object} models.Session
// @Failure 400 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/sessions/{id} [patch]
func (r *Routers) UpdateSession(c echo.Context) error {
	const op = "http.routers.UpdateSession"

	log := r.log.With(
		slog.String("op", op),
	)

	id, err := pathUUID(c, "id", errSessionNotFound)
	if err != nil {
		return fail(c, log, err)
	}

	var req dto.UpdateSessionRequest

	if err := bindAndValidate(c, &req); err != nil {
		return invalidRequest(c, log, err)
	}

	session, err := r.SessionService.SetSessionActive(c.Request().Context(), currentUser(c), id, *req.IsActive)
	if err != nil {
		return fail(c, log, err)
	}

	return c.JSON(http.StatusOK, session)
}

// DeleteSession godoc
// @Summary Deactivate session
// @Description Marks the session inactive. Its photos are kept.
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID" format(uuid)
// @Success 200 {object} response.Response
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/sessions/{id} [delete]
func (r *Routers) DeleteSession(c echo.Context) error {
	const op = "http.routers.DeleteSession"

	log := r.log.With(
		slog.String("op", op),
	)

	id, err := pathUUID(c, "id", errSessionNotFound)
	if err != nil {
		return fail(c, log, err)
	}

	if err := r.SessionService.DeleteSession(c.Request().Context(), currentUser(c), id); err != nil {
		return fail(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessMessage("session deactivated successfully"))
}

// SessionQR godoc
// @Summary Session QR code
// @Description Base64 PNG QR code pointing at the guest upload page of the session.
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID" format(uuid)
// @Success 200 {object} models.SessionQR
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/sessions/{id}/qr [get]
func (r *Routers) SessionQR(c echo.Context) error {
	const op = "http.routers.SessionQR"

	log := r.log.With(
		slog.String("op", op),
	)

	id, err := pathUUID(c, "id", errSessionNotFound)
	if err != nil {
		return fail(c, log, err)
	}

	qr, err := r.SessionService.GenerateQR(c.Request().Context(), currentUser(c), id)
	if err != nil {
		return fail(c, log, err)
	}

	return c.JSON(http.StatusOK, qr)
}

// CheckPublicSession godoc
// @Summary Check session for guests
// @Description Unauthenticated check used by the upload page.
// @Tags public
// @Produce json
// @Param id path string true "Session ID" format(uuid)
// @Success 200 {object} models.PublicSession
// @Failure 404 {object} response.ErrorResponse "Session not found or inactive"
// @Router /api/public/sessions/{id}/check [get]
func (r *Routers) CheckPublicSession(c echo.Context) error {
	const op = "http.routers.CheckPublicSession"

	log := r.log.With(
		slog.String("op", op),
	)

	id, err := pathUUID(c, "id", apperr.ErrSessionNotActive)
	if err != nil {
		return fail(c, log, err)
	}

	session, err := r.SessionService.CheckPublicSession(c.Request().Context(), id)
	if err != nil {
		return fail(c, log, err)
	}

	return c.JSON(http.StatusOK, session)
}
