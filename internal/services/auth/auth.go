package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"qr_photo/internal/domain/models"
	"qr_photo/internal/lib/apperr"
	"qr_photo/internal/lib/jwt"
	"qr_photo/internal/lib/logger/sl"
	tokensvc "qr_photo/internal/services/token_service"
	"qr_photo/internal/storage"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = apperr.New(apperr.KindUnauthenticated, "invalid credentials")
	ErrInvalidToken       = apperr.New(apperr.KindUnauthenticated, "invalid token")
	ErrUserNotFound       = apperr.New(apperr.KindUnauthenticated, "user not found")
)

type Auth struct {
	log      *slog.Logger
	users    UserProvider
	usrSaver UserSaver
	tokens   TokenIssuer
}

type UserProvider interface {
	UserByID(ctx context.Context, userID uuid.UUID) (models.User, error)
	UserByUsername(ctx context.Context, username string) (models.User, error)
	HasSuperadmin(ctx context.Context) (bool, error)
}

type UserSaver interface {
	SaveUser(ctx context.Context, user models.User) (uuid.UUID, error)
}

type TokenIssuer interface {
	GenerateTokens(ctx context.Context, user models.User) (models.TokenPair, error)
	ConsumeRefreshToken(ctx context.Context, refreshToken string) (models.TokenClaims, error)
	RevokeAll(ctx context.Context, userID uuid.UUID) error
}

func New(log *slog.Logger, userProvider UserProvider, userSaver UserSaver, tokens TokenIssuer) *Auth {
	return &Auth{
		log:      log,
		users:    userProvider,
		usrSaver: userSaver,
		tokens:   tokens,
	}
}

func (a *Auth) Login(ctx context.Context, username, password string) (models.TokenPair, error) {
	const op = "auth.Login"

	log := a.log.With(
		slog.String("op", op),
		slog.String("username", username),
	)

	log.Info("attempting to login user")

	user, err := a.users.UserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Warn("user not found", sl.Err(err))

			return models.TokenPair{}, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}
		log.Error("failed to get user", sl.Err(err))

		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		log.Info("invalid credentials", sl.Err(err))

		return models.TokenPair{}, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	tokens, err := a.tokens.GenerateTokens(ctx, user)
	if err != nil {
		log.Error("failed to generate tokens", sl.Err(err))

		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user logged in successfully")

	return tokens, nil
}

// CurrentUser loads the user behind already verified token claims. A user
// deleted after the token was issued is treated as unauthenticated.
func (a *Auth) CurrentUser(ctx context.Context, userID uuid.UUID) (models.User, error) {
	const op = "auth.CurrentUser"

	user, err := a.users.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return models.User{}, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		a.log.Error("failed to get user", slog.String("op", op), sl.Err(err))

		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// Refresh exchanges a refresh token for a new pair. The old refresh token
// is consumed.
func (a *Auth) Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error) {
	const op = "auth.Refresh"

	log := a.log.With(slog.String("op", op))

	claims, err := a.tokens.ConsumeRefreshToken(ctx, refreshToken)
	if err != nil {
		if !rejectedToken(err) {
			log.Error("failed to consume refresh token", sl.Err(err))

			return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
		}
		log.Info("refresh rejected", sl.Err(err))

		return models.TokenPair{}, fmt.Errorf("%s: %w: %w", op, ErrInvalidToken, err)
	}

	user, err := a.CurrentUser(ctx, claims.UserID)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	tokens, err := a.tokens.GenerateTokens(ctx, user)
	if err != nil {
		log.Error("failed to generate tokens", sl.Err(err))

		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("tokens refreshed", slog.String("user_id", user.ID.String()))

	return tokens, nil
}

func (a *Auth) Logout(ctx context.Context, userID uuid.UUID) error {
	const op = "auth.Logout"

	if err := a.tokens.RevokeAll(ctx, userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	a.log.Info("user logged out", slog.String("op", op), slog.String("user_id", userID.String()))

	return nil
}

// EnsureSuperadmin creates the initial superadmin account when the user
// registry has none.
func (a *Auth) EnsureSuperadmin(ctx context.Context, username, password string) error {
	const op = "auth.EnsureSuperadmin"

	log := a.log.With(
		slog.String("op", op),
		slog.String("username", username),
	)

	exists, err := a.users.HasSuperadmin(ctx)
	if err != nil {
		log.Error("failed to check for superadmin", sl.Err(err))

		return fmt.Errorf("%s: %w", op, err)
	}
	if exists {
		return nil
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("failed to generate password hash", sl.Err(err))

		return fmt.Errorf("%s: %w", op, err)
	}

	_, err = a.usrSaver.SaveUser(ctx, models.User{
		ID:              uuid.New(),
		Username:        username,
		PasswordHash:    passHash,
		IsSuperadmin:    true,
		AllowedSessions: []uuid.UUID{},
		CreatedAt:       time.Now().UTC(),
		CreatedBy:       models.CreatedBySystem,
	})
	if err != nil {
		log.Error("failed to save superadmin", sl.Err(err))

		return fmt.Errorf("%s: %w", op, err)
	}

	log.Warn("created initial superadmin, change its password")

	return nil
}

func rejectedToken(err error) bool {
	return errors.Is(err, jwt.ErrInvalidToken) ||
		errors.Is(err, jwt.ErrInvalidTokenClaims) ||
		errors.Is(err, jwt.ErrWrongTokenType) ||
		errors.Is(err, tokensvc.ErrTokenNotInStorage)
}
