package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	redisapp "qr_photo/internal/storage/redis"

	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisRepo() (*RedisTokenRepo, redismock.ClientMock) {
	db, mock := redismock.NewClientMock()
	return NewRedisTokenRepo(&redisapp.Client{Client: db}), mock
}

func TestRedisTokenRepo_SaveRefreshToken(t *testing.T) {
	ctx := context.Background()
	repo, mock := setupRedisRepo()
	userID := uuid.New().String()
	token := "test_token"
	exp := 24 * time.Hour

	t.Run("successful save", func(t *testing.T) {
		mock.ExpectSet(refreshTokenKey(userID, token), "1", exp).SetVal("OK")
		assert.NoError(t, repo.SaveRefreshToken(ctx, userID, token, exp))
	})

	t.Run("redis error", func(t *testing.T) {
		mock.ExpectSet(refreshTokenKey(userID, token), "1", exp).SetErr(redis.ErrClosed)
		assert.ErrorIs(t, repo.SaveRefreshToken(ctx, userID, token, exp), redis.ErrClosed)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisTokenRepo_ConsumeRefreshToken(t *testing.T) {
	ctx := context.Background()
	repo, mock := setupRedisRepo()
	userID := uuid.New().String()
	token := "test_token"

	t.Run("token exists", func(t *testing.T) {
		mock.ExpectDel(refreshTokenKey(userID, token)).SetVal(1)
		ok, err := repo.ConsumeRefreshToken(ctx, userID, token)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("token missing or already used", func(t *testing.T) {
		mock.ExpectDel(refreshTokenKey(userID, token)).SetVal(0)
		ok, err := repo.ConsumeRefreshToken(ctx, userID, token)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("redis error", func(t *testing.T) {
		mock.ExpectDel(refreshTokenKey(userID, token)).SetErr(redis.ErrClosed)
		ok, err := repo.ConsumeRefreshToken(ctx, userID, token)
		assert.ErrorIs(t, err, redis.ErrClosed)
		assert.False(t, ok)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisTokenRepo_DeleteAllUserTokens(t *testing.T) {
	ctx := context.Background()
	repo, mock := setupRedisRepo()
	userID := uuid.New().String()
	pattern := refreshTokenKey(userID, "*")

	t.Run("deletes every key of the user", func(t *testing.T) {
		keys := []string{refreshTokenKey(userID, "a"), refreshTokenKey(userID, "b")}
		mock.ExpectKeys(pattern).SetVal(keys)
		mock.ExpectDel(keys...).SetVal(2)
		assert.NoError(t, repo.DeleteAllUserTokens(ctx, userID))
	})

	t.Run("no keys is not an error", func(t *testing.T) {
		mock.ExpectKeys(pattern).SetVal([]string{})
		assert.NoError(t, repo.DeleteAllUserTokens(ctx, userID))
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCacheTokenRepo(t *testing.T) {
	ctx := context.Background()
	repo := NewCacheTokenRepo(time.Minute)
	alice, bob := uuid.New().String(), uuid.New().String()

	require.NoError(t, repo.SaveRefreshToken(ctx, alice, "t1", time.Hour))
	require.NoError(t, repo.SaveRefreshToken(ctx, alice, "t2", time.Hour))
	require.NoError(t, repo.SaveRefreshToken(ctx, bob, "t3", time.Hour))

	ok, _ := repo.ConsumeRefreshToken(ctx, bob, "t1")
	assert.False(t, ok, "tokens are bound to their user")

	ok, err := repo.ConsumeRefreshToken(ctx, alice, "t1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = repo.ConsumeRefreshToken(ctx, alice, "t1")
	assert.False(t, ok, "a token is consumed once")

	require.NoError(t, repo.DeleteAllUserTokens(ctx, alice))
	ok, _ = repo.ConsumeRefreshToken(ctx, alice, "t2")
	assert.False(t, ok)
	ok, _ = repo.ConsumeRefreshToken(ctx, bob, "t3")
	assert.True(t, ok)

	t.Run("expired token is gone", func(t *testing.T) {
		require.NoError(t, repo.SaveRefreshToken(ctx, bob, "short", time.Millisecond))
		time.Sleep(5 * time.Millisecond)
		ok, err := repo.ConsumeRefreshToken(ctx, bob, "short")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("concurrent consumers", func(t *testing.T) {
		require.NoError(t, repo.SaveRefreshToken(ctx, bob, "shared", time.Hour))

		var (
			wg   sync.WaitGroup
			wins atomic.Int32
		)
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if ok, err := repo.ConsumeRefreshToken(ctx, bob, "shared"); err == nil && ok {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), wins.Load())
	})
}
