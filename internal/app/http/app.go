package httpapp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"qr_photo/internal/lib/apperr"
	"qr_photo/internal/lib/logger/sl"
	appmiddleware "qr_photo/internal/middleware"
	httprouters "qr_photo/internal/transport/http"
	"qr_photo/internal/transport/http/dto/response"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

type Options struct {
	Host         string
	Port         string
	Secret       string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	CORSOrigins  []string
	// MaxUploadSize is the largest decoded photo accepted; the request
	// body limit is derived from it.
	MaxUploadSize int64
}

type Server struct {
	log     *slog.Logger
	e       *echo.Echo
	routers *httprouters.Routers
	opts    Options
}

func New(log *slog.Logger, opts Options, routers *httprouters.Routers) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Validator = &CustomValidator{validator: validator.New()}
	e.HTTPErrorHandler = errorHandler(log)

	e.Server.ReadTimeout = opts.ReadTimeout
	e.Server.WriteTimeout = opts.WriteTimeout
	e.Server.IdleTimeout = opts.IdleTimeout

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:  origins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders:  []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		ExposeHeaders: []string{echo.HeaderContentDisposition},
	}))
	e.Use(middleware.Recover())
	e.Use(appmiddleware.PrometheusMetrics)

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogRemoteIP: true,
		LogMethod:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: false,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				slog.String("method", v.Method),
				slog.String("URI", redactToken(v.URI)),
				slog.Int("status", v.Status),
				slog.String("remote ip", v.RemoteIP),
				slog.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				attrs = append(attrs, sl.Err(v.Error))
			}

			log.Info("request", attrs...)

			return nil
		},
	}))

	return &Server{
		log:     log,
		e:       e,
		routers: routers,
		opts:    opts,
	}
}

// Handler exposes the configured echo instance, mostly for httptest.
func (s *Server) Handler() http.Handler {
	return s.e
}

func (s *Server) MustRun() {
	const op = "http.Server.MustRun"

	s.log.Info(op, slog.String("Start", "server"), slog.String("addr", s.addr()))

	if err := s.Start(); err != nil {
		panic(err)
	}
}

func (s *Server) Start() error {
	const op = "http.Server.Start"

	if err := s.e.Start(s.addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s server stopped: %w", op, err)
	}

	return nil
}

func (s *Server) Stop() error {
	const op = "http.Server.Stop"

	optCtx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	s.log.Info("stopping http server", slog.String("op", op))

	if err := s.e.Shutdown(optCtx); err != nil {
		return fmt.Errorf("%s could not shutdown server gracefuly: %w", op, err)
	}

	return nil
}

func (s *Server) addr() string {
	return net.JoinHostPort(s.opts.Host, s.opts.Port)
}

// redactToken masks the token query parameter the live feed accepts.
func redactToken(uri string) string {
	u, err := url.ParseRequestURI(uri)
	if err != nil {
		path, _, _ := strings.Cut(uri, "?")
		return path
	}

	q := u.Query()
	if !q.Has("token") {
		return uri
	}
	q.Set("token", "REDACTED")
	u.RawQuery = q.Encode()

	return u.String()
}

// uploadBodyLimit covers the base64 expansion of the largest accepted
// photo plus the JSON envelope around it.
func uploadBodyLimit(maxSize int64) string {
	if maxSize <= 0 {
		return "100M"
	}
	limit := maxSize*4/3 + 64<<10
	return fmt.Sprintf("%dK", limit>>10+1)
}

func (s *Server) BuildRouters() {
	s.e.GET("/health", s.routers.Health)
	s.e.GET("/metrics", echoprometheus.NewHandler())
	s.e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := s.e.Group("/api")
	{
		api.GET("/", s.routers.Root)

		api.POST("/auth/login", s.routers.Login)
		api.POST("/auth/refresh", s.routers.Refresh)
		api.GET("/public/sessions/:id/check", s.routers.CheckPublicSession)
		api.POST("/photos", s.routers.UploadPhoto, middleware.BodyLimit(uploadBodyLimit(s.opts.MaxUploadSize)))

		api.GET("/sessions/:id/live", s.routers.LiveSession, s.routers.LiveJWTMiddleware(s.opts.Secret), s.routers.LoadUser)

		secured := api.Group("", s.routers.JWTMiddleware(s.opts.Secret), s.routers.LoadUser)
		{
			secured.POST("/auth/logout", s.routers.Logout)
			secured.GET("/auth/me", s.routers.Me)

			secured.GET("/sessions", s.routers.ListSessions)
			secured.POST("/sessions", s.routers.CreateSession)
			secured.GET("/sessions/:id", s.routers.GetSession)
			secured.PATCH("/sessions/:id", s.routers.UpdateSession)
			secured.DELETE("/sessions/:id", s.routers.DeleteSession)
			secured.GET("/sessions/:id/qr", s.routers.SessionQR)

			secured.POST("/photos/bulk-download", s.routers.BulkDownload)
			secured.GET("/photos/session/:id", s.routers.ListSessionPhotos)
			secured.GET("/photos/:id", s.routers.GetPhoto)
			secured.GET("/photos/:id/thumbnail", s.routers.PhotoThumbnail)
			secured.DELETE("/photos/:id", s.routers.DeletePhoto)

			users := secured.Group("/users", s.routers.RequireSuperadmin)
			{
				users.GET("", s.routers.ListUsers)
				users.POST("", s.routers.CreateUser)
				users.PUT("/:id", s.routers.UpdateUser)
				users.DELETE("/:id", s.routers.DeleteUser)
			}
		}
	}
}

// errorHandler renders errors that reach echo (unknown routes, body
// limits, panics) in the same envelope the handlers use.
func errorHandler(log *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var he *echo.HTTPError
		if !errors.As(err, &he) {
			log.Error("unhandled error", sl.Err(err))
			status, body := response.FromError(err)
			_ = c.JSON(status, body)
			return
		}

		kind := apperr.KindInternal
		switch he.Code {
		case http.StatusUnauthorized:
			kind = apperr.KindUnauthenticated
		case http.StatusForbidden:
			kind = apperr.KindUnauthorized
		case http.StatusNotFound, http.StatusMethodNotAllowed:
			kind = apperr.KindNotFound
		case http.StatusBadRequest, http.StatusRequestEntityTooLarge, http.StatusUnsupportedMediaType:
			kind = apperr.KindValidation
		}

		details := http.StatusText(he.Code)
		if msg, ok := he.Message.(string); ok && kind != apperr.KindInternal {
			details = msg
		}

		_ = c.JSON(he.Code, response.ErrorResponseWithDetails(string(kind), details))
	}
}
