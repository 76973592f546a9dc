package jwt_test

import (
	"testing"
	"time"

	"qr_photo/internal/domain/models"
	"qr_photo/internal/lib/jwt"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

var testUser = models.User{
	ID:       uuid.MustParse("123e4567-e89b-12d3-a456-426614174000"),
	Username: "staff1",
}

func TestNewToken_RoundTrip(t *testing.T) {
	issued := time.Now()

	token, err := jwt.NewToken(testUser, jwt.TypeAccess, secret, time.Hour)
	require.NoError(t, err)

	claims, err := jwt.ParseToken(token, jwt.TypeAccess, secret)
	require.NoError(t, err)

	assert.Equal(t, testUser.ID, claims.UserID)
	assert.Equal(t, "staff1", claims.Username)
	assert.InDelta(t, issued.Add(time.Hour).Unix(), claims.ExpiresAt, 1)
}

func TestParseToken_Rejects(t *testing.T) {
	access, err := jwt.NewToken(testUser, jwt.TypeAccess, secret, time.Hour)
	require.NoError(t, err)

	expired, err := jwt.NewToken(testUser, jwt.TypeAccess, secret, -time.Minute)
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		_, err := jwt.ParseToken(access, jwt.TypeAccess, "other")
		assert.ErrorIs(t, err, jwt.ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		_, err := jwt.ParseToken(expired, jwt.TypeAccess, secret)
		assert.ErrorIs(t, err, jwt.ErrInvalidToken)
	})

	t.Run("access token used as refresh token", func(t *testing.T) {
		_, err := jwt.ParseToken(access, jwt.TypeRefresh, secret)
		assert.ErrorIs(t, err, jwt.ErrWrongTokenType)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := jwt.ParseToken("not.a.token", jwt.TypeAccess, secret)
		assert.ErrorIs(t, err, jwt.ErrInvalidToken)
	})
}

func TestNewToken_Unique(t *testing.T) {
	a, err := jwt.NewToken(testUser, jwt.TypeRefresh, secret, time.Hour)
	require.NoError(t, err)
	b, err := jwt.NewToken(testUser, jwt.TypeRefresh, secret, time.Hour)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}
