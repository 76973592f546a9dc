package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"qr_photo/internal/lib/apperr"
	"qr_photo/internal/lib/logger/sl"
	"qr_photo/internal/transport/http/dto"
	"qr_photo/internal/transport/http/dto/response"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

var errPhotoNotFound = apperr.NotFound("photo not found")

// UploadPhoto godoc
// @Summary Guest photo upload
// @Description Stores a base64 encoded photo in an active session. No authentication.
// @Tags public
// @Accept json
// @Produce json
// @Param request body dto.UploadPhotoRequest true "Photo"
// @Success 201 {object} models.Photo
// @Failure 400 {object} response.ErrorResponse "Invalid image data or size"
// @Failure 404 {object} response.ErrorResponse "Session not found or inactive"
// @Router /api/photos [post]
func (r *Routers) UploadPhoto(c echo.Context) error {
	const op = "http.routers.UploadPhoto"

	log := r.log.With(
		slog.String("op", op),
		slog.String("client_ip", c.RealIP()),
	)

	var req dto.UploadPhotoRequest

	if err := bindAndValidate(c, &req); err != nil {
		return invalidRequest(c, log, err)
	}

	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		return fail(c, log, apperr.ErrSessionNotActive)
	}

	photo, err := r.PhotoService.UploadPhoto(c.Request().Context(), req.ToDomain(sessionID))
	if err != nil {
		return fail(c, log, err)
	}

	return c.JSON(http.StatusCreated, photo)
}

// ListSessionPhotos godoc
// @Summary Photos of a session
// @Description Newest first.
// @Tags photos
// @Produce json
// @Param id path string true "Session ID" format(uuid)
// @Success 200 {array} models.Photo
// @Failure 403 {object} response.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/photos/session/{id} [get]
func (r *Routers) ListSessionPhotos(c echo.Context) error {
	const op = "http.routers.ListSessionPhotos"

	log := r.log.With(
		slog.String("op", op),
	)

	id, err := pathUUID(c, "id", errSessionNotFound)
	if err != nil {
		return fail(c, log, err)
	}

	photos, err := r.PhotoService.ListPhotosForSession(c.Request().Context(), currentUser(c), id)
	if err != nil {
		return fail(c, log, err)
	}

	return c.JSON(http.StatusOK, photos)
}

// GetPhoto godoc
// @Summary Get photo
// @Tags photos
// @Produce json
// @Param id path string true "Photo ID" format(uuid)
// @Success 200 {object} models.Photo
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/photos/{id} [get]
func (r *Routers) GetPhoto(c echo.Context) error {
	const op = "http.routers.GetPhoto"

	log := r.log.With(
		slog.String("op", op),
	)

	id, err := pathUUID(c, "id", errPhotoNotFound)
	if err != nil {
		return fail(c, log, err)
	}

	photo, err := r.PhotoService.GetPhoto(c.Request().Context(), currentUser(c), id)
	if err != nil {
		return fail(c, log, err)
	}

	return c.JSON(http.StatusOK, photo)
}

// PhotoThumbnail godoc
// @Summary Photo thumbnail
// @Description JPEG preview fitting into a width x width box.
// @Tags photos
// @Produce jpeg
// @Param id path string true "Photo ID" format(uuid)
// @Param width query int false "Box size in pixels (default 300, max 1200)"
// @Success 200 {file} binary
// @Failure 400 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/photos/{id}/thumbnail [get]
func (r *Routers) PhotoThumbnail(c echo.Context) error {
	const op = "http.routers.PhotoThumbnail"

	log := r.log.With(
		slog.String("op", op),
	)

	id, err := pathUUID(c, "id", errPhotoNotFound)
	if err != nil {
		return fail(c, log, err)
	}

	width := 0
	if raw := c.QueryParam("width"); raw != "" {
		width, err = strconv.Atoi(raw)
		if err != nil || width <= 0 {
			return c.JSON(http.StatusBadRequest, response.Validation("width must be a positive integer"))
		}
	}

	thumb, err := r.PhotoService.PhotoThumbnail(c.Request().Context(), currentUser(c), id, width)
	if err != nil {
		return fail(c, log, err)
	}

	c.Response().Header().Set("Cache-Control", "private, max-age=3600")

	return c.Blob(http.StatusOK, "image/jpeg", thumb)
}

// DeletePhoto godoc
// @Summary Delete photo
// @Tags photos
// @Produce json
// @Param id path string true "Photo ID" format(uuid)
// @Success 200 {object} response.Response
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/photos/{id} [delete]
func (r *Routers) DeletePhoto(c echo.Context) error {
	const op = "http.routers.DeletePhoto"

	log := r.log.With(
		slog.String("op", op),
	)

	id, err := pathUUID(c, "id", errPhotoNotFound)
	if err != nil {
		return fail(c, log, err)
	}

	if err := r.PhotoService.DeletePhoto(c.Request().Context(), currentUser(c), id); err != nil {
		return fail(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessMessage("photo deleted successfully"))
}

// BulkDownload godoc
// @Summary Download photos as zip
// @Description Streams the selected photos as a zip archive. Unknown ids and photos outside the allow-list are skipped.
// @Tags photos
// @Accept json
// @Produce application/zip
// @Param request body []string true "Photo IDs"
// @Success 200 {file} binary
// @Failure 400 {object} response.ErrorResponse "Empty selection"
// @Failure 404 {object} response.ErrorResponse "No accessible photos found"
// @Security ApiKeyAuth
// @Router /api/photos/bulk-download [post]
func (r *Routers) BulkDownload(c echo.Context) error {
	const op = "http.routers.BulkDownload"

	log := r.log.With(
		slog.String("op", op),
	)

	var raw []string
	if err := json.NewDecoder(c.Request().Body).Decode(&raw); err != nil {
		return c.JSON(http.StatusBadRequest, response.Validation("body must be a JSON array of photo ids"))
	}

	// malformed ids become uuid.Nil, which matches no photo and is skipped
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, _ := uuid.Parse(s)
		ids = append(ids, id)
	}

	plan, err := r.PhotoService.BulkDownload(c.Request().Context(), currentUser(c), ids)
	if err != nil {
		return fail(c, log, err)
	}

	header := c.Response().Header()
	header.Set(echo.HeaderContentType, "application/zip")
	header.Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, plan.Filename))
	c.Response().WriteHeader(http.StatusOK)

	if err := r.PhotoService.WriteArchive(c.Response(), plan); err != nil {
		// headers are gone, the client sees a truncated archive
		log.Error("archive stream aborted", sl.Err(err))
	}

	return nil
}
