package repository

import (
	"context"
	"time"

	"qr_photo/internal/domain/models"

	"github.com/google/uuid"
)

type UserRepository interface {
	SaveUser(ctx context.Context, user models.User) (uuid.UUID, error)
	UserByID(ctx context.Context, userID uuid.UUID) (models.User, error)
	UserByUsername(ctx context.Context, username string) (models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUser(ctx context.Context, user models.User) error
	DeleteUser(ctx context.Context, userID uuid.UUID) error
	HasSuperadmin(ctx context.Context) (bool, error)
}

type SessionRepository interface {
	SaveSession(ctx context.Context, session models.Session) error
	SessionByID(ctx context.Context, sessionID uuid.UUID) (models.Session, error)
	ListSessions(ctx context.Context, filter models.SessionFilter) ([]models.Session, error)
	SetSessionActive(ctx context.Context, sessionID uuid.UUID, active bool) error
	ExistingSessionIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error)
}

type PhotoRepository interface {
	SavePhoto(ctx context.Context, photo models.Photo) error
	PhotoByID(ctx context.Context, photoID uuid.UUID) (models.Photo, error)
	PhotosBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Photo, error)
	PhotosByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Photo, error)
	DeletePhoto(ctx context.Context, photoID uuid.UUID) error
}

type TokenRepository interface {
	SaveRefreshToken(ctx context.Context, userID, token string, exp time.Duration) error
	// ConsumeRefreshToken removes the token and reports whether it was
	// present. Of concurrent calls for one token at most one sees true.
	ConsumeRefreshToken(ctx context.Context, userID, token string) (bool, error)
	DeleteAllUserTokens(ctx context.Context, userID string) error
}
