package lock

import (
	"context"
	"sync"
	"time"

	"github.com/alimikegami/marketplace/payment-service/config"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func CreateRedisClient(conf config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     conf.Address,
		Password: conf.Password,
		DB:       conf.DB,
	})

	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		return nil, err
	}

	log.Info().Str("component", "CreateRedisClient").Str("addr", conf.Address).Msg("redis connected")
	return rdb, nil
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker hands out short leases so only one sweep runs at a time across
// instances. Release only frees a lease still held under the given token.
type RedisLocker struct {
	rdb *redis.Client
}

func CreateRedisLocker(rdb *redis.Client) *RedisLocker {
	return &RedisLocker{rdb: rdb}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()

	ok, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "RedisLocker.Acquire").Msg("")
		return "", false, err
	}

	return token, ok, nil
}

func (l *RedisLocker) Release(ctx context.Context, key string, token string) error {
	err := releaseScript.Run(ctx, l.rdb, []string{key}, token).Err()
	if err != nil && err != redis.Nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "RedisLocker.Release").Msg("")
		return err
	}
	return nil
}

type lease struct {
	token     string
	expiresAt time.Time
}

// LocalLocker is the in-process fallback used when Redis is not configured.
type LocalLocker struct {
	mu     sync.Mutex
	leases map[string]lease
	now    func() time.Time
}

func CreateLocalLocker() *LocalLocker {
	return &LocalLocker{
		leases: make(map[string]lease),
		now:    time.Now,
	}
}

func (l *LocalLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if current, ok := l.leases[key]; ok && now.Before(current.expiresAt) {
		return "", false, nil
	}

	token := uuid.NewString()
	l.leases[key] = lease{token: token, expiresAt: now.Add(ttl)}

	return token, true, nil
}

func (l *LocalLocker) Release(ctx context.Context, key string, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if current, ok := l.leases[key]; ok && current.token == token {
		delete(l.leases, key)
	}
	return nil
}
