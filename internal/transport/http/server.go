package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"qr_photo/internal/domain/models"
	"qr_photo/internal/lib/logger/sl"
	"qr_photo/internal/live"
	"qr_photo/internal/transport/http/dto/response"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	_ "qr_photo/docs"
)

type AuthService interface {
	Login(ctx context.Context, username, password string) (models.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error)
	Logout(ctx context.Context, userID uuid.UUID) error
	CurrentUser(ctx context.Context, userID uuid.UUID) (models.User, error)
}

type SessionService interface {
	CreateSession(ctx context.Context, caller models.User, name string, description *string) (models.Session, error)
	ListSessions(ctx context.Context, caller models.User, active *bool) ([]models.Session, error)
	GetSession(ctx context.Context, caller models.User, id uuid.UUID) (models.Session, error)
	CheckPublicSession(ctx context.Context, id uuid.UUID) (models.PublicSession, error)
	GenerateQR(ctx context.Context, caller models.User, id uuid.UUID) (models.SessionQR, error)
	SetSessionActive(ctx context.Context, caller models.User, id uuid.UUID, active bool) (models.Session, error)
	DeleteSession(ctx context.Context, caller models.User, id uuid.UUID) error
}

type PhotoService interface {
	UploadPhoto(ctx context.Context, input models.PhotoUpload) (models.Photo, error)
	ListPhotosForSession(ctx context.Context, caller models.User, sessionID uuid.UUID) ([]models.Photo, error)
	GetPhoto(ctx context.Context, caller models.User, id uuid.UUID) (models.Photo, error)
	PhotoThumbnail(ctx context.Context, caller models.User, id uuid.UUID, width int) ([]byte, error)
	DeletePhoto(ctx context.Context, caller models.User, id uuid.UUID) error
	BulkDownload(ctx context.Context, caller models.User, ids []uuid.UUID) (models.PhotoArchive, error)
	WriteArchive(w io.Writer, a models.PhotoArchive) error
}

type UserService interface {
	CreateUser(ctx context.Context, caller models.User, input models.UserCreate) (models.User, error)
	UpdateUser(ctx context.Context, caller models.User, id uuid.UUID, patch models.UserPatch) (models.User, error)
	DeleteUser(ctx context.Context, caller models.User, id uuid.UUID) error
	ListUsers(ctx context.Context, caller models.User) ([]models.User, error)
}

type Routers struct {
	log            *slog.Logger
	AuthService    AuthService
	SessionService SessionService
	PhotoService   PhotoService
	UserService    UserService
	Live           *live.Hub
}

func NewRouter(log *slog.Logger, authService AuthService, sessionService SessionService, photoService PhotoService, userService UserService, liveHub *live.Hub) *Routers {
	return &Routers{
		log:            log,
		AuthService:    authService,
		SessionService: sessionService,
		PhotoService:   photoService,
		UserService:    userService,
		Live:           liveHub,
	}
}

const currentUserKey = "current_user"

// fail writes the error envelope for err. Internal errors are logged, the
// client only sees a generic message.
func fail(c echo.Context, log *slog.Logger, err error) error {
	status, body := response.FromError(err)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", sl.Err(err))
	} else {
		log.Debug("request rejected", slog.String("kind", body.Error), sl.Err(err))
	}

	return c.JSON(status, body)
}

func invalidRequest(c echo.Context, log *slog.Logger, err error) error {
	log.Warn("invalid request", sl.Err(err))

	return c.JSON(http.StatusBadRequest, response.Validation(validationDetails(err)))
}

func validationDetails(err error) string {
	if he, ok := err.(*echo.HTTPError); ok {
		if msg, ok := he.Message.(string); ok {
			return msg
		}
	}
	return err.Error()
}

// bindAndValidate binds the request body into req and runs the struct
// validator registered on the echo instance.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return err
	}
	return c.Validate(req)
}

func currentUser(c echo.Context) models.User {
	user, _ := c.Get(currentUserKey).(models.User)
	return user
}

// pathUUID parses the named path parameter. A malformed id cannot name an
// existing record, so it is reported with notFound.
func pathUUID(c echo.Context, name string, notFound error) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, notFound
	}
	return id, nil
}

// Health godoc
// @Summary Liveness check
// @Tags system
// @Produce json
// @Success 200 {object} response.Response
// @Router /health [get]
func (r *Routers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, response.SuccessMessage("ok"))
}

// Root godoc
// @Summary API banner
// @Tags system
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/ [get]
func (r *Routers) Root(c echo.Context) error {
	return c.JSON(http.StatusOK, response.SuccessMessage("QR Photo Upload API"))
}
