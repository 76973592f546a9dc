package http

import (
	"log/slog"
	"net/http"

	"qr_photo/internal/lib/apperr"
	"qr_photo/internal/transport/http/dto"
	"qr_photo/internal/transport/http/dto/response"

	"github.com/labstack/echo/v4"
)

var errUserNotFound = apperr.NotFound("user not found")

// CreateUser godoc
// @Summary Create admin user
// @Tags users
// @Accept json
// @Produce json
// @Param request body dto.CreateUserRequest true "User"
// @Success 201 {object} models.User
// @Failure 400 {object} response.ErrorResponse "Invalid data or unknown session"
// @Failure 403 {object} response.ErrorResponse "Superadmin access required"
// @Failure 409 {object} response.ErrorResponse "Username already exists"
// @Security ApiKeyAuth
// @Router /api/users [post]
func (r *Routers) CreateUser(c echo.Context) error {
	const op = "http.routers.CreateUser"

	log := r.log.With(
		slog.String("op", op),
	)

	var req dto.CreateUserRequest

	if err := bindAndValidate(c, &req); err != nil {
		return invalidRequest(c, log, err)
	}

	user, err := r.UserService.CreateUser(c.Request().Context(), currentUser(c), req.ToDomain())
	if err != nil {
		return fail(c, log, err)
	}

	return c.JSON(http.StatusCreated, user)
}

// ListUsers godoc
// @Summary List admin users
// @Tags users
// @Produce json
// @Success 200 {array} models.User
// @Failure 403 {object} response.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/users [get]
func (r *Routers) ListUsers(c echo.Context) error {
	const op = "http.routers.ListUsers"

	log := r.log.With(
		slog.String("op", op),
	)

	users, err := r.UserService.ListUsers(c.Request().Context(), currentUser(c))
	if err != nil {
		return fail(c, log, err)
	}

	return c.JSON(http.StatusOK, users)
}

// UpdateUser godoc
// @Summary Update admin user
// @Description Omitted fields, and a blank password, are left unchanged.
// @Tags users
// @Accept json
// @Produce json
// @Param id path string true "User ID" format(uuid)
// @Param request body dto.UpdateUserRequest true "Changes"
// @Success 200 {object} models.User
// @Failure 400 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/users/{id} [put]
func (r *Routers) UpdateUser(c echo.Context) error {
	const op = "http.routers.UpdateUser"

	log := r.log.With(
		slog.String("op", op),
	)

	id, err := pathUUID(c, "id", errUserNotFound)
	if err != nil {
		return fail(c, log, err)
	}

	var req dto.UpdateUserRequest

	if err := bindAndValidate(c, &req); err != nil {
		return invalidRequest(c, log, err)
	}

	user, err := r.UserService.UpdateUser(c.Request().Context(), currentUser(c), id, req.ToDomain())
	if err != nil {
		return fail(c, log, err)
	}

	return c.JSON(http.StatusOK, user)
}

// DeleteUser godoc
// @Summary Delete admin user
// @Description A superadmin cannot delete their own account.
// @Tags users
// @Produce json
// @Param id path string true "User ID" format(uuid)
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/users/{id} [delete]
func (r *Routers) DeleteUser(c echo.Context) error {
	const op = "http.routers.DeleteUser"

	log := r.log.With(
		slog.String("op", op),
	)

	id, err := pathUUID(c, "id", errUserNotFound)
	if err != nil {
		return fail(c, log, err)
	}

	if err := r.UserService.DeleteUser(c.Request().Context(), currentUser(c), id); err != nil {
		return fail(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessMessage("user deleted successfully"))
}
