package kvstore

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

var _ Repo = (*RedisRepo)(nil)

// RedisRepo shares client state between machines through a Redis hash per profile.
type RedisRepo struct {
	client *redis.Client
	hash   string
}

// NewRedisClient connects from a redis:// URL, falling back to a bare host:port address.
func NewRedisClient(redisURL string) (*redis.Client, error) {
	redisURL = strings.TrimSpace(redisURL)
	if redisURL == "" {
		return nil, errors.New("[NewRedisClient] redis url is required")
	}
	if strings.Contains(redisURL, "://") {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, errors.Wrap(err, "[NewRedisClient] parse url")
		}
		return redis.NewClient(opt), nil
	}
	return redis.NewClient(&redis.Options{Addr: redisURL}), nil
}

// NewRedisRepo keeps all keys of one profile in the hash "tracker:<profile>".
func NewRedisRepo(client *redis.Client, profile string) *RedisRepo {
	return &RedisRepo{client: client, hash: HashKey(profile)}
}

// HashKey returns the Redis hash name used for a profile.
func HashKey(profile string) string {
	if profile == "" {
		profile = "default"
	}
	return "tracker:" + profile
}

func (r *RedisRepo) Get(ctx context.Context, key string) (string, error) {
	value, err := r.client.HGet(ctx, r.hash, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", errors.Wrap(err, "[RedisRepo] hget")
	}
	return value, nil
}

func (r *RedisRepo) Set(ctx context.Context, key, value string) error {
	if err := r.client.HSet(ctx, r.hash, key, value).Err(); err != nil {
		return errors.Wrap(err, "[RedisRepo] hset")
	}
	return nil
}

func (r *RedisRepo) Delete(ctx context.Context, key string) error {
	if err := r.client.HDel(ctx, r.hash, key).Err(); err != nil {
		return errors.Wrap(err, "[RedisRepo] hdel")
	}
	return nil
}
