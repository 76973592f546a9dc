package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	redisapp "qr_photo/internal/storage/redis"

	"github.com/patrickmn/go-cache"
)

const refreshKeyPrefix = "qr_photo:refresh:"

// RedisTokenRepo keeps refresh tokens as expiring Redis keys.
type RedisTokenRepo struct {
	Client *redisapp.Client
}

func NewRedisTokenRepo(client *redisapp.Client) *RedisTokenRepo {
	return &RedisTokenRepo{Client: client}
}

func (r *RedisTokenRepo) SaveRefreshToken(ctx context.Context, userID, token string, exp time.Duration) error {
	return r.Client.Set(ctx, refreshTokenKey(userID, token), "1", exp).Err()
}

// DEL is atomic, only the caller that removed the key sees a count of 1.
func (r *RedisTokenRepo) ConsumeRefreshToken(ctx context.Context, userID, token string) (bool, error) {
	n, err := r.Client.Del(ctx, refreshTokenKey(userID, token)).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *RedisTokenRepo) DeleteAllUserTokens(ctx context.Context, userID string) error {
	keys, err := r.Client.Keys(ctx, refreshTokenKey(userID, "*")).Result()
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return r.Client.Del(ctx, keys...).Err()
}

func refreshTokenKey(userID, token string) string {
	return refreshKeyPrefix + userID + ":" + token
}

// CacheTokenRepo is the in-process refresh token store used when no Redis
// address is configured. Tokens do not survive a restart.
type CacheTokenRepo struct {
	mu    sync.Mutex
	cache *cache.Cache
}

func NewCacheTokenRepo(cleanupInterval time.Duration) *CacheTokenRepo {
	return &CacheTokenRepo{
		cache: cache.New(cache.NoExpiration, cleanupInterval),
	}
}

func (r *CacheTokenRepo) SaveRefreshToken(_ context.Context, userID, token string, exp time.Duration) error {
	r.cache.Set(refreshTokenKey(userID, token), userID, exp)
	return nil
}

func (r *CacheTokenRepo) ConsumeRefreshToken(_ context.Context, userID, token string) (bool, error) {
	key := refreshTokenKey(userID, token)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, found := r.cache.Get(key); !found {
		return false, nil
	}
	r.cache.Delete(key)

	return true, nil
}

func (r *CacheTokenRepo) DeleteAllUserTokens(_ context.Context, userID string) error {
	prefix := refreshTokenKey(userID, "")
	for key := range r.cache.Items() {
		if strings.HasPrefix(key, prefix) {
			r.cache.Delete(key)
		}
	}
	return nil
}
