package http

import (
	"log/slog"
	"net/http"

	"qr_photo/internal/transport/http/dto/request"
	"qr_photo/internal/transport/http/dto/response"

	"github.com/labstack/echo/v4"
)

// Login godoc
// @Summary Admin login
// @Description Exchanges username and password for a bearer access token and a refresh token.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body request.LoginRequest true "Credentials"
// @Success 200 {object} models.TokenPair
// @Failure 400 {object} response.ErrorResponse "Invalid request format"
// @Failure 401 {object} response.ErrorResponse "Invalid credentials"
// @Router /api/auth/login [post]
func (r *Routers) Login(c echo.Context) error {
	const op = "http.routers.Login"

	log := r.log.With(
		slog.String("op", op),
	)

	var req request.LoginRequest

	if err := bindAndValidate(c, &req); err != nil {
		return invalidRequest(c, log, err)
	}

	tokens, err := r.AuthService.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return fail(c, log, err)
	}

	return c.JSON(http.StatusOK, tokens)
}

// Refresh godoc
// @Summary Refresh tokens
// @Description Rotates a refresh token. The submitted refresh token cannot be used again.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body request.RefreshRequest true "Refresh token"
// @Success 200 {object} models.TokenPair
// @Failure 400 {object} response.ErrorResponse "Invalid request format"
// @Failure 401 {object} response.ErrorResponse "Invalid refresh token"
// @Router /api/auth/refresh [post]
func (r *Routers) Refresh(c echo.Context) error {
	const op = "http.routers.Refresh"

	log := r.log.With(
		slog.String("op", op),
	)

	var req request.RefreshRequest

	if err := bindAndValidate(c, &req); err != nil {
		return invalidRequest(c, log, err)
	}

	tokens, err := r.AuthService.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return fail(c, log, err)
	}

	return c.JSON(http.StatusOK, tokens)
}

// Logout godoc
// @Summary Logout
// @Description Revokes every refresh token of the current user.
// @Tags auth
// @Produce json
// @Success 200 {object} response.Response
// @Failure 401 {object} response.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/auth/logout [post]
func (r *Routers) Logout(c echo.Context) error {
	const op = "http.routers.Logout"

	log := r.log.With(
		slog.String("op", op),
	)

	if err := r.AuthService.Logout(c.Request().Context(), currentUser(c).ID); err != nil {
		return fail(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessMessage("logged out"))
}

// Me godoc
// @Summary Current user
// @Tags auth
// @Produce json
// @Success 200 {object} models.User
// @Failure 401 {object} response.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/auth/me [get]
func (r *Routers) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, currentUser(c))
}
