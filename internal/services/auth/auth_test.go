package auth

import (
	"context"
	"errors"
	"testing"

	"qr_photo/internal/domain/models"
	"qr_photo/internal/lib/apperr"
	"qr_photo/internal/lib/jwt"
	"qr_photo/internal/lib/logger/handlers/slogdiscard"
	"qr_photo/internal/storage"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) UserByID(ctx context.Context, userID uuid.UUID) (models.User, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *MockUserRepository) UserByUsername(ctx context.Context, username string) (models.User, error) {
	args := m.Called(ctx, username)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *MockUserRepository) HasSuperadmin(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) SaveUser(ctx context.Context, user models.User) (uuid.UUID, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

type MockTokenIssuer struct {
	mock.Mock
}

func (m *MockTokenIssuer) GenerateTokens(ctx context.Context, user models.User) (models.TokenPair, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(models.TokenPair), args.Error(1)
}

func (m *MockTokenIssuer) ConsumeRefreshToken(ctx context.Context, refreshToken string) (models.TokenClaims, error) {
	args := m.Called(ctx, refreshToken)
	return args.Get(0).(models.TokenClaims), args.Error(1)
}

func (m *MockTokenIssuer) RevokeAll(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func setup(t *testing.T) (*Auth, *MockUserRepository, *MockTokenIssuer) {
	t.Helper()

	users := new(MockUserRepository)
	tokens := new(MockTokenIssuer)

	return New(slogdiscard.NewDiscardLogger(), users, users, tokens), users, tokens
}

func testUser(t *testing.T, password string) models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	return models.User{
		ID:           uuid.New(),
		Username:     "admin",
		PasswordHash: hash,
	}
}

func TestAuth_Login(t *testing.T) {
	ctx := context.Background()
	user := testUser(t, "secret-pass")
	pair := models.TokenPair{AccessToken: "a", TokenType: "bearer", RefreshToken: "r", UserID: user.ID}

	t.Run("success", func(t *testing.T) {
		a, users, tokens := setup(t)
		users.On("UserByUsername", ctx, "admin").Return(user, nil)
		tokens.On("GenerateTokens", ctx, user).Return(pair, nil)

		got, err := a.Login(ctx, "admin", "secret-pass")

		require.NoError(t, err)
		assert.Equal(t, pair, got)
		tokens.AssertExpectations(t)
	})

	t.Run("wrong password", func(t *testing.T) {
		a, users, tokens := setup(t)
		users.On("UserByUsername", ctx, "admin").Return(user, nil)

		_, err := a.Login(ctx, "admin", "nope")

		assert.ErrorIs(t, err, ErrInvalidCredentials)
		assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))
		tokens.AssertNotCalled(t, "GenerateTokens", mock.Anything, mock.Anything)
	})

	t.Run("unknown user", func(t *testing.T) {
		a, users, _ := setup(t)
		users.On("UserByUsername", ctx, "ghost").Return(models.User{}, storage.ErrUserNotFound)

		_, err := a.Login(ctx, "ghost", "x")

		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("storage failure", func(t *testing.T) {
		a, users, _ := setup(t)
		users.On("UserByUsername", ctx, "admin").Return(models.User{}, errors.New("db down"))

		_, err := a.Login(ctx, "admin", "secret-pass")

		require.Error(t, err)
		assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	})
}

func TestAuth_CurrentUser(t *testing.T) {
	ctx := context.Background()
	user := testUser(t, "pw")

	t.Run("existing user", func(t *testing.T) {
		a, users, _ := setup(t)
		users.On("UserByID", ctx, user.ID).Return(user, nil)

		got, err := a.CurrentUser(ctx, user.ID)

		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
	})

	t.Run("user deleted after issue", func(t *testing.T) {
		a, users, _ := setup(t)
		users.On("UserByID", ctx, user.ID).Return(models.User{}, storage.ErrUserNotFound)

		_, err := a.CurrentUser(ctx, user.ID)

		assert.ErrorIs(t, err, ErrUserNotFound)
		assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))
	})

	t.Run("storage failure", func(t *testing.T) {
		a, users, _ := setup(t)
		users.On("UserByID", ctx, user.ID).Return(models.User{}, errors.New("db down"))

		_, err := a.CurrentUser(ctx, user.ID)

		assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	})
}

func TestAuth_Refresh(t *testing.T) {
	ctx := context.Background()
	user := testUser(t, "pw")
	pair := models.TokenPair{AccessToken: "a2", RefreshToken: "r2"}

	t.Run("rotates tokens", func(t *testing.T) {
		a, users, tokens := setup(t)
		tokens.On("ConsumeRefreshToken", ctx, "r1").Return(models.TokenClaims{UserID: user.ID}, nil)
		users.On("UserByID", ctx, user.ID).Return(user, nil)
		tokens.On("GenerateTokens", ctx, user).Return(pair, nil)

		got, err := a.Refresh(ctx, "r1")

		require.NoError(t, err)
		assert.Equal(t, pair, got)
	})

	t.Run("rejected token", func(t *testing.T) {
		a, _, tokens := setup(t)
		tokens.On("ConsumeRefreshToken", ctx, "used").Return(models.TokenClaims{}, jwt.ErrWrongTokenType)

		_, err := a.Refresh(ctx, "used")

		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("store failure is internal", func(t *testing.T) {
		a, _, tokens := setup(t)
		tokens.On("ConsumeRefreshToken", ctx, "r1").Return(models.TokenClaims{}, errors.New("redis down"))

		_, err := a.Refresh(ctx, "r1")

		require.Error(t, err)
		assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	})
}

func TestAuth_Logout(t *testing.T) {
	ctx := context.Background()
	a, _, tokens := setup(t)
	id := uuid.New()

	tokens.On("RevokeAll", ctx, id).Return(nil)

	require.NoError(t, a.Logout(ctx, id))
	tokens.AssertExpectations(t)
}

func TestAuth_EnsureSuperadmin(t *testing.T) {
	ctx := context.Background()

	t.Run("creates when missing", func(t *testing.T) {
		a, users, _ := setup(t)
		users.On("HasSuperadmin", ctx).Return(false, nil)
		users.On("SaveUser", ctx, mock.MatchedBy(func(u models.User) bool {
			return u.Username == "superadmin" &&
				u.IsSuperadmin &&
				u.CreatedBy == models.CreatedBySystem &&
				len(u.AllowedSessions) == 0 &&
				bcrypt.CompareHashAndPassword(u.PasswordHash, []byte("changeme123")) == nil
		})).Return(uuid.New(), nil)

		require.NoError(t, a.EnsureSuperadmin(ctx, "superadmin", "changeme123"))
		users.AssertExpectations(t)
	})

	t.Run("keeps existing", func(t *testing.T) {
		a, users, _ := setup(t)
		users.On("HasSuperadmin", ctx).Return(true, nil)

		require.NoError(t, a.EnsureSuperadmin(ctx, "superadmin", "changeme123"))
		users.AssertNotCalled(t, "SaveUser", mock.Anything, mock.Anything)
	})
}
