package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"qr_photo/internal/domain/models"
	"qr_photo/internal/lib/jwt"
	"qr_photo/internal/lib/logger/handlers/slogdiscard"
	"qr_photo/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockTokenRepository struct {
	mock.Mock
}

func (m *MockTokenRepository) SaveRefreshToken(ctx context.Context, userID, token string, exp time.Duration) error {
	args := m.Called(ctx, userID, token, exp)
	return args.Error(0)
}

func (m *MockTokenRepository) ConsumeRefreshToken(ctx context.Context, userID, token string) (bool, error) {
	args := m.Called(ctx, userID, token)
	return args.Bool(0), args.Error(1)
}

func (m *MockTokenRepository) DeleteAllUserTokens(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

const testSecret = "test-secret"

var (
	testUser = models.User{
		ID:       uuid.MustParse("123e4567-e89b-12d3-a456-426614174000"),
		Username: "admin",
	}
	testCtx = context.Background()
)

func newTestService(repo *MockTokenRepository) *TokenService {
	return NewTokenService(slogdiscard.NewDiscardLogger(), repo, testSecret, 15*time.Minute, time.Hour)
}

func TestGenerateTokens_Success(t *testing.T) {
	repo := new(MockTokenRepository)
	service := newTestService(repo)

	repo.On("SaveRefreshToken", testCtx, testUser.ID.String(), mock.Anything, time.Hour).
		Return(nil)

	tokens, err := service.GenerateTokens(testCtx, testUser)

	require.NoError(t, err)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)
	assert.Equal(t, "bearer", tokens.TokenType)
	assert.Equal(t, testUser.ID, tokens.UserID)

	claims, err := jwt.ParseToken(tokens.AccessToken, jwt.TypeAccess, testSecret)
	require.NoError(t, err)
	assert.Equal(t, testUser.ID, claims.UserID)

	_, err = jwt.ParseToken(tokens.RefreshToken, jwt.TypeAccess, testSecret)
	assert.ErrorIs(t, err, jwt.ErrWrongTokenType)

	repo.AssertExpectations(t)
}

func TestGenerateTokens_RepoError(t *testing.T) {
	repo := new(MockTokenRepository)
	service := newTestService(repo)

	expectedErr := errors.New("storage error")
	repo.On("SaveRefreshToken", testCtx, testUser.ID.String(), mock.Anything, mock.Anything).
		Return(expectedErr)

	tokens, err := service.GenerateTokens(testCtx, testUser)

	assert.ErrorIs(t, err, expectedErr)
	assert.Empty(t, tokens.AccessToken)
	repo.AssertExpectations(t)
}

func TestConsumeRefreshToken_Success(t *testing.T) {
	repo := new(MockTokenRepository)
	service := newTestService(repo)

	refreshToken, err := jwt.NewToken(testUser, jwt.TypeRefresh, testSecret, time.Hour)
	require.NoError(t, err)

	repo.On("ConsumeRefreshToken", testCtx, testUser.ID.String(), refreshToken).Return(true, nil)

	claims, err := service.ConsumeRefreshToken(testCtx, refreshToken)

	require.NoError(t, err)
	assert.Equal(t, testUser.ID, claims.UserID)
	assert.Equal(t, testUser.Username, claims.Username)
	repo.AssertExpectations(t)
}

func TestConsumeRefreshToken_NotInStorage(t *testing.T) {
	repo := new(MockTokenRepository)
	service := newTestService(repo)

	refreshToken, err := jwt.NewToken(testUser, jwt.TypeRefresh, testSecret, time.Hour)
	require.NoError(t, err)

	repo.On("ConsumeRefreshToken", testCtx, testUser.ID.String(), refreshToken).Return(false, nil)

	_, err = service.ConsumeRefreshToken(testCtx, refreshToken)

	assert.ErrorIs(t, err, ErrTokenNotInStorage)
	repo.AssertExpectations(t)
}

func TestConsumeRefreshToken_SingleUseUnderConcurrency(t *testing.T) {
	service := NewTokenService(slogdiscard.NewDiscardLogger(), repository.NewCacheTokenRepo(time.Minute), testSecret, 15*time.Minute, time.Hour)

	pair, err := service.GenerateTokens(testCtx, testUser)
	require.NoError(t, err)

	const workers = 8

	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		wins  atomic.Int32
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, err := service.ConsumeRefreshToken(testCtx, pair.RefreshToken); err == nil {
				wins.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

func TestConsumeRefreshToken_Invalid(t *testing.T) {
	repo := new(MockTokenRepository)
	service := newTestService(repo)

	accessToken, err := jwt.NewToken(testUser, jwt.TypeAccess, testSecret, time.Hour)
	require.NoError(t, err)
	foreign, err := jwt.NewToken(testUser, jwt.TypeRefresh, "other-secret", time.Hour)
	require.NoError(t, err)
	expired, err := jwt.NewToken(testUser, jwt.TypeRefresh, testSecret, -time.Minute)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"garbage":       "not-a-jwt",
		"access token":  accessToken,
		"wrong secret":  foreign,
		"expired token": expired,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := service.ConsumeRefreshToken(testCtx, token)
			assert.Error(t, err)
		})
	}

	repo.AssertNotCalled(t, "ConsumeRefreshToken", mock.Anything, mock.Anything, mock.Anything)
}

func TestRevokeAll(t *testing.T) {
	repo := new(MockTokenRepository)
	service := newTestService(repo)

	repo.On("DeleteAllUserTokens", testCtx, testUser.ID.String()).Return(nil).Once()
	require.NoError(t, service.RevokeAll(testCtx, testUser.ID))

	expectedErr := errors.New("redis down")
	repo.On("DeleteAllUserTokens", testCtx, testUser.ID.String()).Return(expectedErr).Once()
	assert.ErrorIs(t, service.RevokeAll(testCtx, testUser.ID), expectedErr)

	repo.AssertExpectations(t)
}
