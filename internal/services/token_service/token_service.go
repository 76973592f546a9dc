package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"qr_photo/internal/domain/models"
	"qr_photo/internal/lib/jwt"
	"qr_photo/internal/lib/logger/sl"
	"qr_photo/internal/repository"

	"github.com/google/uuid"
)

var ErrTokenNotInStorage = errors.New("token not found in storage")

const TokenType = "bearer"

type TokenService struct {
	log        *slog.Logger
	repo       repository.TokenRepository
	secret     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewTokenService(log *slog.Logger, repo repository.TokenRepository, secret string, accessTTL, refreshTTL time.Duration) *TokenService {
	return &TokenService{
		log:        log,
		repo:       repo,
		secret:     secret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// GenerateTokens issues an access/refresh pair and remembers the refresh
// token until it expires.
func (s *TokenService) GenerateTokens(ctx context.Context, user models.User) (models.TokenPair, error) {
	const op = "services.TokenService.GenerateTokens"

	log := s.log.With(
		slog.String("op", op),
		slog.String("user_id", user.ID.String()),
	)

	accessToken, err := jwt.NewToken(user, jwt.TypeAccess, s.secret, s.accessTTL)
	if err != nil {
		log.Error("failed to sign access token", sl.Err(err))
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	refreshToken, err := jwt.NewToken(user, jwt.TypeRefresh, s.secret, s.refreshTTL)
	if err != nil {
		log.Error("failed to sign refresh token", sl.Err(err))
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.repo.SaveRefreshToken(ctx, user.ID.String(), refreshToken, s.refreshTTL); err != nil {
		log.Error("failed to store refresh token", sl.Err(err))
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	return models.TokenPair{
		AccessToken:  accessToken,
		TokenType:    TokenType,
		RefreshToken: refreshToken,
		UserID:       user.ID,
	}, nil
}

// ConsumeRefreshToken validates a refresh token and removes it from the
// store, so each refresh token can be used once.
func (s *TokenService) ConsumeRefreshToken(ctx context.Context, refreshToken string) (models.TokenClaims, error) {
	const op = "services.TokenService.ConsumeRefreshToken"

	log := s.log.With(slog.String("op", op))

	claims, err := jwt.ParseToken(refreshToken, jwt.TypeRefresh, s.secret)
	if err != nil {
		log.Info("rejected refresh token", sl.Err(err))
		return models.TokenClaims{}, fmt.Errorf("%s: %w", op, err)
	}

	userID := claims.UserID.String()

	consumed, err := s.repo.ConsumeRefreshToken(ctx, userID, refreshToken)
	if err != nil {
		log.Error("failed to consume refresh token", sl.Err(err))
		return models.TokenClaims{}, fmt.Errorf("%s: %w", op, err)
	}
	if !consumed {
		log.Info("refresh token is unknown or already used", slog.String("user_id", userID))
		return models.TokenClaims{}, fmt.Errorf("%s: %w", op, ErrTokenNotInStorage)
	}

	return claims, nil
}

// RevokeAll drops every refresh token of the user. Access tokens stay
// valid until they expire.
func (s *TokenService) RevokeAll(ctx context.Context, userID uuid.UUID) error {
	const op = "services.TokenService.RevokeAll"

	if err := s.repo.DeleteAllUserTokens(ctx, userID.String()); err != nil {
		s.log.Error("failed to revoke refresh tokens", slog.String("op", op), sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
