package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	httpapp "qr_photo/internal/app/http"
	"qr_photo/internal/config"
	"qr_photo/internal/lib/imaging"
	"qr_photo/internal/lib/logger/sl"
	"qr_photo/internal/lib/qr"
	"qr_photo/internal/live"
	"qr_photo/internal/repository"
	"qr_photo/internal/repository/memory"
	sqliterepo "qr_photo/internal/repository/sqlite"
	"qr_photo/internal/services/auth"
	photosvc "qr_photo/internal/services/photo_service"
	sessionsvc "qr_photo/internal/services/session_service"
	tokensvc "qr_photo/internal/services/token_service"
	usersvc "qr_photo/internal/services/user_service"
	"qr_photo/internal/storage/postgresql"
	redisapp "qr_photo/internal/storage/redis"
	sqlitestore "qr_photo/internal/storage/sqlite"
	httprouters "qr_photo/internal/transport/http"
)

type App struct {
	log        *slog.Logger
	HTTPServer *httpapp.Server

	db       *postgresql.Storage
	sqlite   *sqlitestore.Storage
	redis    *redisapp.Client
	stopLive context.CancelFunc
}

// New wires storage, services and the HTTP server from cfg. The first
// superadmin is created here when the user store has none.
func New(ctx context.Context, log *slog.Logger, cfg *config.Config) (*App, error) {
	const op = "app.New"

	a := &App{log: log}

	repo, err := a.openRepository(ctx, cfg)
	if err != nil {
		a.Stop()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	tokenRepo, err := a.openTokenRepository(ctx, cfg)
	if err != nil {
		a.Stop()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	tokenService := tokensvc.NewTokenService(log, tokenRepo, cfg.Auth.Secret, cfg.Auth.TokenTTL, cfg.Auth.RefreshTTL)
	authService := auth.New(log, repo.User, repo.User, tokenService)
	sessionService := sessionsvc.NewSessionService(log, repo.Session, qr.NewGenerator(cfg.QR.Size), cfg.PublicBaseURL)
	hub := live.NewHub(log)
	liveCtx, stopLive := context.WithCancel(context.Background())
	a.stopLive = stopLive
	go hub.Run(liveCtx)

	photoService := photosvc.NewPhotoService(log, repo.Photo, repo.Session, imaging.NewThumbnailer(cfg.Photos.ThumbnailCacheTTL), hub, cfg.Photos.MaxSize)
	userService := usersvc.NewUserService(log, repo.User, repo.Session, tokenService)

	if err := authService.EnsureSuperadmin(ctx, cfg.Auth.SuperadminUsername, cfg.Auth.SuperadminPassword); err != nil {
		a.Stop()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	routers := httprouters.NewRouter(log, authService, sessionService, photoService, userService, hub)

	a.HTTPServer = httpapp.New(log, httpapp.Options{
		Host:          cfg.HTTP.Host,
		Port:          cfg.HTTP.Port,
		Secret:        cfg.Auth.Secret,
		ReadTimeout:   cfg.HTTP.ReadTimeout,
		WriteTimeout:  cfg.HTTP.WriteTimeout,
		IdleTimeout:   cfg.HTTP.IdleTimeout,
		CORSOrigins:   cfg.HTTP.CORSOrigins,
		MaxUploadSize: cfg.Photos.MaxSize,
	}, routers)
	a.HTTPServer.BuildRouters()

	return a, nil
}

func (a *App) openRepository(ctx context.Context, cfg *config.Config) (*repository.Repository, error) {
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		a.log.Warn("using in-memory storage, data is lost on restart")
		return memory.New().Repository(), nil
	case config.DriverSQLite:
		db, err := sqlitestore.New(ctx, cfg.Storage.DSN)
		if err != nil {
			return nil, err
		}
		a.sqlite = db

		if err := db.Migrate(ctx); err != nil {
			return nil, err
		}

		return sqliterepo.New(db.DB()).Repository(), nil
	}

	db, err := postgresql.New(ctx, cfg.Storage.DSN)
	if err != nil {
		return nil, err
	}
	a.db = db

	if err := db.Migrate(ctx); err != nil {
		return nil, err
	}

	return repository.NewRepository(db.Pool()), nil
}

func (a *App) openTokenRepository(ctx context.Context, cfg *config.Config) (repository.TokenRepository, error) {
	if cfg.Redis.Addr == "" {
		return repository.NewCacheTokenRepo(10 * time.Minute), nil
	}

	client := redisapp.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	a.redis = client

	if err := client.HealthCheck(ctx); err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}

	return repository.NewRedisTokenRepo(client), nil
}

func (a *App) Handler() http.Handler {
	return a.HTTPServer.Handler()
}

// Stop shuts the HTTP server down and closes storage connections. It is
// safe to call on a partially built App.
func (a *App) Stop() {
	const op = "app.Stop"

	log := a.log.With(slog.String("op", op))

	if a.HTTPServer != nil {
		if err := a.HTTPServer.Stop(); err != nil {
			log.Error("failed to stop http server", sl.Err(err))
		}
	}

	// closes open live feeds, the http server does not track hijacked conns
	if a.stopLive != nil {
		a.stopLive()
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			log.Error("failed to close redis", sl.Err(err))
		}
	}

	if a.db != nil {
		a.db.Stop()
	}

	if a.sqlite != nil {
		if err := a.sqlite.Stop(); err != nil {
			log.Error("failed to close sqlite", sl.Err(err))
		}
	}
}
