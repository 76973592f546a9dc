package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"qr_photo/internal/domain/models"
	"qr_photo/internal/lib/apperr"
	"qr_photo/internal/lib/logger/sl"
	"qr_photo/internal/repository"
	"qr_photo/internal/storage"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrSuperadminRequired = apperr.New(apperr.KindUnauthorized, "superadmin access required")
	ErrUserNotFound       = apperr.NotFound("user not found")
	ErrDeleteSelf         = apperr.Validation("cannot delete yourself")
	ErrUsernameRequired   = apperr.Validation("username is required")
	ErrPasswordRequired   = apperr.Validation("password is required")
	ErrPasswordTooLong    = apperr.Validation(fmt.Sprintf("password must not exceed %d bytes", maxPasswordBytes))
)

// bcrypt rejects longer input; the limit is in bytes, not characters
const maxPasswordBytes = 72

type SessionChecker interface {
	ExistingSessionIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error)
}

type TokenRevoker interface {
	RevokeAll(ctx context.Context, userID uuid.UUID) error
}

type UserService struct {
	log      *slog.Logger
	repo     repository.UserRepository
	sessions SessionChecker
	tokens   TokenRevoker
}

func NewUserService(log *slog.Logger, repo repository.UserRepository, sessions SessionChecker, tokens TokenRevoker) *UserService {
	return &UserService{
		log:      log,
		repo:     repo,
		sessions: sessions,
		tokens:   tokens,
	}
}

func (s *UserService) CreateUser(ctx context.Context, caller models.User, input models.UserCreate) (models.User, error) {
	const op = "services.UserService.CreateUser"

	log := s.log.With(
		slog.String("op", op),
		slog.String("username", input.Username),
	)

	if !caller.IsSuperadmin {
		return models.User{}, fmt.Errorf("%s: %w", op, ErrSuperadminRequired)
	}

	username := strings.TrimSpace(input.Username)
	if username == "" {
		return models.User{}, fmt.Errorf("%s: %w", op, ErrUsernameRequired)
	}
	if input.Password == "" {
		return models.User{}, fmt.Errorf("%s: %w", op, ErrPasswordRequired)
	}
	if len(input.Password) > maxPasswordBytes {
		return models.User{}, fmt.Errorf("%s: %w", op, ErrPasswordTooLong)
	}

	allowed, err := s.checkSessions(ctx, input.AllowedSessions)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("failed to generate password hash", sl.Err(err))
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	user := models.User{
		ID:              uuid.New(),
		Username:        username,
		PasswordHash:    passHash,
		IsSuperadmin:    input.IsSuperadmin,
		AllowedSessions: allowed,
		CreatedAt:       time.Now().UTC(),
		CreatedBy:       caller.ID.String(),
	}

	if _, err := s.repo.SaveUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			log.Warn("user already exists")
			return models.User{}, fmt.Errorf("%s: %w", op, apperr.ErrDuplicateUsername)
		}
		log.Error("failed to save user", sl.Err(err))
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user created", slog.String("user_id", user.ID.String()))

	return user, nil
}

// UpdateUser applies the non-nil fields of patch. A blank password keeps
// the current credential.
func (s *UserService) UpdateUser(ctx context.Context, caller models.User, id uuid.UUID, patch models.UserPatch) (models.User, error) {
	const op = "services.UserService.UpdateUser"

	log := s.log.With(
		slog.String("op", op),
		slog.String("user_id", id.String()),
	)

	if !caller.IsSuperadmin {
		return models.User{}, fmt.Errorf("%s: %w", op, ErrSuperadminRequired)
	}

	user, err := s.repo.UserByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return models.User{}, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		log.Error("failed to get user", sl.Err(err))
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	if patch.Username != nil {
		username := strings.TrimSpace(*patch.Username)
		if username == "" {
			return models.User{}, fmt.Errorf("%s: %w", op, ErrUsernameRequired)
		}
		user.Username = username
	}

	passwordChanged := false
	if patch.Password != nil && *patch.Password != "" {
		if len(*patch.Password) > maxPasswordBytes {
			return models.User{}, fmt.Errorf("%s: %w", op, ErrPasswordTooLong)
		}
		passHash, err := bcrypt.GenerateFromPassword([]byte(*patch.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Error("failed to generate password hash", sl.Err(err))
			return models.User{}, fmt.Errorf("%s: %w", op, err)
		}
		user.PasswordHash = passHash
		passwordChanged = true
	}

	if patch.IsSuperadmin != nil {
		user.IsSuperadmin = *patch.IsSuperadmin
	}

	if patch.AllowedSessions != nil {
		allowed, err := s.checkSessions(ctx, *patch.AllowedSessions)
		if err != nil {
			return models.User{}, fmt.Errorf("%s: %w", op, err)
		}
		user.AllowedSessions = allowed
	}

	if err := s.repo.UpdateUser(ctx, user); err != nil {
		switch {
		case errors.Is(err, storage.ErrUserExists):
			return models.User{}, fmt.Errorf("%s: %w", op, apperr.ErrDuplicateUsername)
		case errors.Is(err, storage.ErrUserNotFound):
			return models.User{}, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		log.Error("failed to update user", sl.Err(err))
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	if passwordChanged {
		s.revoke(ctx, log, id)
	}

	log.Info("user updated")

	return user, nil
}

func (s *UserService) DeleteUser(ctx context.Context, caller models.User, id uuid.UUID) error {
	const op = "services.UserService.DeleteUser"

	log := s.log.With(
		slog.String("op", op),
		slog.String("user_id", id.String()),
	)

	if !caller.IsSuperadmin {
		return fmt.Errorf("%s: %w", op, ErrSuperadminRequired)
	}

	if id == caller.ID {
		return fmt.Errorf("%s: %w", op, ErrDeleteSelf)
	}

	if err := s.repo.DeleteUser(ctx, id); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		log.Error("failed to delete user", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	s.revoke(ctx, log, id)
	log.Info("user deleted")

	return nil
}

func (s *UserService) ListUsers(ctx context.Context, caller models.User) ([]models.User, error) {
	const op = "services.UserService.ListUsers"

	if !caller.IsSuperadmin {
		return nil, fmt.Errorf("%s: %w", op, ErrSuperadminRequired)
	}

	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		s.log.Error("failed to list users", slog.String("op", op), sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return users, nil
}

// checkSessions verifies every id names an existing session and returns
// the ids without duplicates.
func (s *UserService) checkSessions(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	if len(out) == 0 {
		return out, nil
	}

	existing, err := s.sessions.ExistingSessionIDs(ctx, out)
	if err != nil {
		s.log.Error("failed to check sessions", sl.Err(err))
		return nil, err
	}

	for _, id := range out {
		if !slices.Contains(existing, id) {
			return nil, apperr.Validation(fmt.Sprintf("session %s not found", id))
		}
	}

	return out, nil
}

// revoke drops refresh tokens after a credential change. Failures are
// only logged.
func (s *UserService) revoke(ctx context.Context, log *slog.Logger, id uuid.UUID) {
	if s.tokens == nil {
		return
	}
	if err := s.tokens.RevokeAll(ctx, id); err != nil {
		log.Warn("failed to revoke refresh tokens", sl.Err(err))
	}
}
